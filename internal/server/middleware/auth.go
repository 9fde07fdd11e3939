package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
)

// UserLoader resolves the user named by a token. domain.UserRepository
// satisfies this interface.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Auth authenticates requests with an access token taken from the
// Authorization header or, for browser websocket upgrades, the "token" query
// parameter. The current user row is loaded so role and organization changes
// apply without reissuing tokens.
func Auth(jwtSecret string, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				tok = r.URL.Query().Get("token")
			}
			if tok == "" {
				writeProblem(w, http.StatusUnauthorized, "missing credentials")
				return
			}

			claims, err := auth.ValidateAccessToken(jwtSecret, tok)
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					log.Error().Err(err).Int64("user_id", claims.UserID).Msg("auth: failed to load user")
				}
				writeProblem(w, http.StatusUnauthorized, "user no longer exists")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return auth[7:]
	}
	return ""
}

type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{Title: http.StatusText(status), Status: status, Detail: detail})
}
