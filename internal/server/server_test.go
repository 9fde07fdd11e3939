package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/config"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
	"github.com/gosuda/taskboard/internal/server"
	redisstore "github.com/gosuda/taskboard/internal/store/redis"
)

const testSecret = "server-test-secret-at-least-32-chars"

// ---------------------------------------------------------------------------
// Stubs. Embedded interfaces panic on calls the tests do not expect.
// ---------------------------------------------------------------------------

var member = &domain.User{ID: 1, Username: "member", OrganizationID: func() *int64 { v := int64(10); return &v }()}

type userRepo struct{ domain.UserRepository }

func (userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if id == member.ID {
		return member, nil
	}
	return nil, domain.ErrNotFound
}

type orgRepo struct{ domain.OrganizationRepository }

func (orgRepo) List(context.Context) ([]*domain.Organization, error) {
	return []*domain.Organization{{ID: 10, Name: "Acme", Slug: "acme"}}, nil
}

func (orgRepo) GetByID(_ context.Context, id int64) (*domain.Organization, error) {
	if id == 10 {
		return &domain.Organization{ID: 10, Name: "Acme", Slug: "acme"}, nil
	}
	return nil, domain.ErrNotFound
}

type projectRepo struct{ domain.ProjectRepository }

func (projectRepo) GetByID(_ context.Context, id int64) (*domain.Project, error) {
	if id == 7 {
		return &domain.Project{ID: 7, OrganizationID: 10, Title: "Roadmap"}, nil
	}
	return nil, domain.ErrNotFound
}

type stubStore struct{}

func (stubStore) Organizations() domain.OrganizationRepository { return orgRepo{} }
func (stubStore) Users() domain.UserRepository                 { return userRepo{} }
func (stubStore) Projects() domain.ProjectRepository           { return projectRepo{} }
func (stubStore) Tasks() domain.TaskRepository                 { return nil }
func (stubStore) Comments() domain.CommentRepository           { return nil }

type stubAuth struct{}

func (stubAuth) Signup(context.Context, auth.NewUser) (*domain.User, auth.Tokens, error) {
	return nil, auth.Tokens{}, auth.ErrUserAlreadyExists
}

func (stubAuth) Login(context.Context, string, string) (*domain.User, auth.Tokens, error) {
	return nil, auth.Tokens{}, auth.ErrInvalidCredentials
}

func (stubAuth) RefreshToken(context.Context, string) (string, error) { return "", auth.ErrInvalidToken }
func (stubAuth) Logout(context.Context, string) error                 { return nil }
func (stubAuth) CreateUser(context.Context, auth.NewUser) (*domain.User, error) {
	return nil, auth.ErrUserAlreadyExists
}

type nopPublisher struct{}

func (nopPublisher) PublishOrganization(context.Context, int64, events.Event) {}
func (nopPublisher) PublishProject(context.Context, int64, events.Event)      {}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour},
		Server: config.ServerConfig{
			Addr:         ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
		},
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 100, Burst: 100,
			PublicRequestsPerSecond: 100, PublicBurst: 100,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *redisstore.PubSub) {
	t.Helper()

	mr := miniredis.RunT(t)
	ps, err := redisstore.New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(server.New(ctx, cfg, stubStore{}, stubAuth{}, nopPublisher{}, ps).Handler())
	t.Cleanup(srv.Close)
	return srv, ps
}

func token(t *testing.T) string {
	t.Helper()
	tok, err := auth.IssueAccessToken(testSecret, member, time.Minute)
	require.NoError(t, err)
	return tok
}

func get(t *testing.T, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testConfig())
	resp := get(t, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_PublicAndProtectedRoutes(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		path   string
		bearer string
		want   int
	}{
		{name: "public organizations", path: "/api/v1/public/organizations", want: http.StatusOK},
		{name: "protected without token", path: "/api/v1/users/me", want: http.StatusUnauthorized},
		{name: "protected with token", path: "/api/v1/users/me", bearer: token(t), want: http.StatusOK},
		{name: "protected with garbage token", path: "/api/v1/organizations", bearer: "garbage", want: http.StatusUnauthorized},
		{name: "organizations with token", path: "/api/v1/organizations", bearer: token(t), want: http.StatusOK},
		{name: "unknown route without static dir", path: "/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := get(t, srv.URL+tt.path, tt.bearer)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestServer_PublicRateLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RateLimit.PublicRequestsPerSecond = 0.001
	cfg.RateLimit.PublicBurst = 1
	srv, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/v1/public/organizations", "").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, get(t, srv.URL+"/api/v1/public/organizations", "").StatusCode)
}

func TestServer_StaticFallback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))

	cfg := testConfig()
	cfg.Server.StaticDir = dir
	srv, _ := newTestServer(t, cfg)

	resp := get(t, srv.URL+"/projects/7", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = get(t, srv.URL+"/app.js", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
}

func TestServer_WebSocket(t *testing.T) {
	t.Parallel()

	srv, ps := newTestServer(t, testConfig())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.Dial(ctx, wsURL+"?token="+token(t), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	read := func() events.Event {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		ev, err := events.Decode(data)
		require.NoError(t, err)
		return ev
	}

	assert.Equal(t, events.ConnectionEstablished{UserID: 1, Username: "member"}, read())

	sub, err := json.Marshal(events.Subscribe(7))
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, sub))
	assert.Equal(t, events.Subscribed{ProjectID: 7}, read())

	require.NoError(t, ps.PublishEvent(ctx, redisstore.ProjectChannel(7), events.TaskDeleted{ID: 3, ProjectID: 7}))
	assert.Equal(t, events.TaskDeleted{ID: 3, ProjectID: 7}, read())
}
