package server

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/gosuda/taskboard/internal/api/v1"
)

func registerPublicRoutes(api huma.API, store v1.DataStore, authSvc v1.AuthService) {
	v1.RegisterAuthRoutes(api, authSvc)
	v1.RegisterPublicRoutes(api, store)
}

func registerAPIRoutes(api huma.API, store v1.DataStore, authSvc v1.AuthService, pub v1.EventPublisher) {
	v1.RegisterLogoutRoute(api, authSvc)
	v1.RegisterUserRoutes(api, store, authSvc)
	v1.RegisterOrganizationRoutes(api, store)
	v1.RegisterProjectRoutes(api, store, pub)
	v1.RegisterTaskRoutes(api, store, pub)
	v1.RegisterCommentRoutes(api, store, pub)
	v1.RegisterBoardRoutes(api, store)
}

// originPatterns turns CORS origins into the host patterns the websocket
// handshake checks.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
