// Package api is the client's single request pipeline to the taskboard REST
// API. Every call carries the stored bearer token; a 401 triggers at most one
// token refresh and one replay of the original request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/gosuda/taskboard/internal/client/credentials"
)

const (
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api/v1.
	BaseURL     string
	Credentials credentials.Store
	// Timeout bounds each HTTP round trip. Defaults to DefaultTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

type Client struct {
	baseURL string
	http    *http.Client
	creds   credentials.Store
	log     zerolog.Logger

	refresh singleflight.Group

	mu        sync.Mutex
	onExpired []func()
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// Copy so the caller's client keeps its own timeout.
	clone := *hc
	clone.Timeout = timeout

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    &clone,
		creds:   opts.Credentials,
		log:     logger.With().Str("component", "api").Logger(),
	}
}

// Credentials exposes the shared token store.
func (c *Client) Credentials() credentials.Store { return c.creds }

// OnSessionExpired registers fn to run after an unrecoverable 401 has cleared
// the stored credentials.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = append(c.onExpired, fn)
}

// Refresh exchanges the stored refresh token for a new access token and saves
// it. Concurrent callers share one request.
func (c *Client) Refresh(ctx context.Context) (*oauth2.Token, error) {
	return c.refreshFrom(ctx, nil)
}

// refreshFrom refreshes unless the stored access token already differs from
// used, which means another caller refreshed in the meantime.
func (c *Client) refreshFrom(ctx context.Context, used *oauth2.Token) (*oauth2.Token, error) {
	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		if cur := c.creds.Token(); used != nil && cur != nil && cur.AccessToken != "" && cur.AccessToken != used.AccessToken {
			return cur, nil
		}
		// Detached from any one caller's cancellation since others share it.
		return c.doRefresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	tok, _ := v.(*oauth2.Token)
	return tok, nil
}

func (c *Client) doRefresh(ctx context.Context) (*oauth2.Token, error) {
	refresh := c.creds.RefreshToken()
	if refresh == "" {
		return nil, fmt.Errorf("api.Refresh: no refresh token: %w", ErrSessionExpired)
	}

	var out refreshResponse
	if err := c.call(ctx, http.MethodPost, "/auth/refresh", nil, refreshRequest{RefreshToken: refresh}, &out, nil); err != nil {
		return nil, fmt.Errorf("api.Refresh: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("api.Refresh: empty access token: %w", ErrSessionExpired)
	}

	expiry := credentials.Expiry(out.AccessToken)
	if out.RefreshToken != "" {
		err := c.creds.Save(&oauth2.Token{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken, Expiry: expiry})
		if err != nil {
			return nil, fmt.Errorf("api.Refresh: %w", err)
		}
	} else if err := c.creds.SetAccessToken(out.AccessToken, expiry); err != nil {
		return nil, fmt.Errorf("api.Refresh: %w", err)
	}

	c.log.Debug().Msg("access token refreshed")
	return c.creds.Token(), nil
}

// do runs an authenticated request with refresh-and-replay on 401.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	tok := c.creds.Token()
	err := c.call(ctx, method, path, query, in, out, tok)
	if !IsKind(err, KindUnauthorized) || isAuthPath(path) {
		return err
	}

	fresh, rerr := c.tokenAfter(ctx, tok)
	if rerr != nil {
		c.log.Info().Err(rerr).Str("path", path).Msg("token refresh failed")
		c.expire()
		return fmt.Errorf("api: %s %s: %w", method, path, ErrSessionExpired)
	}

	// The replay is final: a second 401 ends the session.
	err = c.call(ctx, method, path, query, in, out, fresh)
	if IsKind(err, KindUnauthorized) {
		c.expire()
		return fmt.Errorf("api: %s %s: %w", method, path, ErrSessionExpired)
	}
	return err
}

// tokenAfter returns a token newer than used, refreshing only when nobody
// else already has.
func (c *Client) tokenAfter(ctx context.Context, used *oauth2.Token) (*oauth2.Token, error) {
	current := c.creds.Token()
	if current != nil && current.AccessToken != "" && (used == nil || current.AccessToken != used.AccessToken) {
		return current, nil
	}
	return c.refreshFrom(ctx, used)
}

func (c *Client) expire() {
	if err := c.creds.Clear(); err != nil {
		c.log.Error().Err(err).Msg("clear credentials")
	}

	c.mu.Lock()
	fns := append([]func(){}, c.onExpired...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// call performs one HTTP round trip.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any, tok *oauth2.Token) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != nil && tok.AccessToken != "" {
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &Error{Kind: KindNetwork, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp, method, path)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindServer, Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type problem struct {
	Title   string        `json:"title"`
	Detail  string        `json:"detail"`
	Errors  []ErrorDetail `json:"errors"`
	Message string        `json:"message"`
}

func decodeError(resp *http.Response, method, path string) error {
	e := &Error{
		Kind:   kindForStatus(resp.StatusCode),
		Method: method,
		Path:   path,
		Status: resp.StatusCode,
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return e
	}
	var p problem
	if json.Unmarshal(data, &p) != nil {
		e.Detail = strings.TrimSpace(string(data))
		return e
	}
	e.Title = p.Title
	e.Detail = p.Detail
	if e.Detail == "" {
		e.Detail = p.Message
	}
	e.Details = p.Errors
	return e
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}
