package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/api/handlers"
	appMiddleware "github.com/jacemadedev/Supastart-by-Klip-sub001/internal/api/middlewares"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/config"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/services"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Chat      *handlers.ChatHandler
	Sessions  *handlers.SessionHandler
	Artifacts *handlers.ArtifactHandler
	Credits   *handlers.CreditHandler
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	side       *services.SideChannel
	log        *slog.Logger
}

// NewRouter builds and wires all routes.
func NewRouter(cfg *config.Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", handlers.Health)

	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

		// Streams for as long as the provider does, so no request timeout here.
		protected.Post("/chat", h.Chat.Chat)

		protected.Route("/api", func(api chi.Router) {
			api.Post("/chat", h.Chat.Chat)

			api.Group(func(crud chi.Router) {
				crud.Use(middleware.Timeout(60 * time.Second))

				crud.Get("/credits", h.Credits.Get)

				crud.Get("/sessions", h.Sessions.List)
				crud.Post("/sessions", h.Sessions.Create)
				crud.Get("/sessions/{id}", h.Sessions.Get)
				crud.Patch("/sessions/{id}", h.Sessions.Update)
				crud.Delete("/sessions/{id}", h.Sessions.Delete)
				crud.Get("/sessions/{id}/interactions", h.Sessions.ListInteractions)
				crud.Post("/sessions/{id}/interactions", h.Sessions.AppendInteraction)

				crud.Get("/interactions/{id}/artifacts", h.Artifacts.List)
			})
			api.Post("/interactions/{id}/artifacts", h.Artifacts.Upload)
			api.Get("/artifacts/{id}/content", h.Artifacts.Download)
		})
	})

	return r
}

func NewServer(cfg *config.Config, h Handlers, side *services.SideChannel, log *slog.Logger) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv, side: side, log: log}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http_listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and then for
// background log writes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http_shutting_down")
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.side.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("background_writes_abandoned")
	}
	return err
}
