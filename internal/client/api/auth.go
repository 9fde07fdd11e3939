package api

import (
	"context"
	"fmt"
	"net/http"
)

// Login authenticates with username and password. Tokens are not stored
// here; the session store owns that.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", nil, req, &out, nil); err != nil {
		return nil, fmt.Errorf("api.Login: %w", err)
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/signup", nil, req, &out, nil); err != nil {
		return nil, fmt.Errorf("api.Signup: %w", err)
	}
	return &out, nil
}

// Logout revokes the refresh token server-side. It never refreshes.
func (c *Client) Logout(ctx context.Context) error {
	tok := c.creds.Token()
	if tok == nil {
		return nil
	}
	err := c.call(ctx, http.MethodPost, "/auth/logout", nil, logoutRequest{RefreshToken: tok.RefreshToken}, nil, tok)
	if err != nil {
		return fmt.Errorf("api.Logout: %w", err)
	}
	return nil
}
