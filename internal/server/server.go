package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/taskboard/internal/api/v1"
	"github.com/gosuda/taskboard/internal/api/ws"
	"github.com/gosuda/taskboard/internal/config"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

const apiVersion = "1.0.0"

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes wired. ctx bounds the background
// sweepers of the rate limiters.
func New(ctx context.Context, cfg *config.Config, store v1.DataStore, authSvc v1.AuthService, pub v1.EventPublisher, sub ws.Subscriber) *Server {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	authenticate := middleware.Auth(cfg.JWT.Secret, store.Users())

	router.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated: login, signup, refresh and the signup organization list.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.RateLimit.PublicRequestsPerSecond, cfg.RateLimit.PublicBurst))

			publicAPI := humachi.New(r, apiConfig("Taskboard Auth API"))
			registerPublicRoutes(publicAPI, store, authSvc)
		})

		// Everything else requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RateLimit(ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

			api := humachi.New(r, apiConfig("Taskboard API"))
			registerAPIRoutes(api, store, authSvc, pub)
		})
	})

	router.With(authenticate).Handle("/ws", ws.NewHub(sub, store.Projects(), originPatterns(cfg.Server.CORSOrigins)))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Registered last so API and push routes take priority.
	if cfg.Server.StaticDir != "" {
		router.NotFound(spaFileServer(os.DirFS(cfg.Server.StaticDir)).ServeHTTP)
		log.Info().Str("dir", cfg.Server.StaticDir).Msg("serving static front-end")
	}

	return s
}

func apiConfig(title string) huma.Config {
	c := huma.DefaultConfig(title, apiVersion)
	c.Servers = []*huma.Server{
		{URL: "/api/v1"},
	}
	return c
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
