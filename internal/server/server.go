package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/ocrstudio/internal/audit"
	"github.com/ziadkadry99/ocrstudio/internal/db"
	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/logger"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
	"github.com/ziadkadry99/ocrstudio/internal/pipeline"
)

// Config holds server configuration.
type Config struct {
	Port      int
	MaxUpload int64         // largest accepted upload in bytes
	AllowAll  bool          // allow all CORS origins (dev mode)
	Timeout   time.Duration // per-request timeout for /api routes
}

// Server is the OCR configuration console backend.
type Server struct {
	cfg        Config
	db         *db.DB
	log        zerolog.Logger
	configs    *ocrconfig.Store
	audit      *audit.Store
	service    *pipeline.Service
	router     chi.Router
	httpServer *http.Server
}

// New creates a server backed by database. extractor may be nil, in which
// case the document endpoints answer 503.
func New(cfg Config, database *db.DB, extractor pipeline.Extractor, catalog []fields.Field, log zerolog.Logger) *Server {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	auditStore := audit.NewStore(database)
	configs := ocrconfig.NewStore(database, auditStore)

	s := &Server{
		cfg:     cfg,
		db:      database,
		log:     log,
		configs: configs,
		audit:   auditStore,
		service: pipeline.NewService(configs, extractor, catalog, pipeline.NewRunStore(database)),
	}
	s.router = s.buildRouter(catalog)
	return s
}

// withLogger stores a request-scoped logger in the request context.
func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter(catalog []fields.Field) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.withLogger)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.PingContext(r.Context()); err != nil {
			ocrconfig.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		ocrconfig.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The sandbox socket is long-lived, so only the plain API gets a timeout.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Timeout))
		ocrconfig.RegisterRoutes(r, s.configs, catalog)
		audit.RegisterRoutes(r, s.audit)
		pipeline.RegisterRoutes(r, s.service, pipeline.RouteOptions{
			MaxUpload:       s.cfg.MaxUpload,
			AllowAllOrigins: s.cfg.AllowAll,
		})
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Configs returns the configuration store.
func (s *Server) Configs() *ocrconfig.Store { return s.configs }

// Service returns the document pipeline.
func (s *Server) Service() *pipeline.Service { return s.service }

// Run listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("ocrstudio server listening")
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
