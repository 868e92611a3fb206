// Package server exposes the agent and the address book over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/sui-agent/internal/auth"
)

// Config wires the server's collaborators.
type Config struct {
	Port           int
	RequestTimeout time.Duration
	Logger         *slog.Logger
	// Authenticator is optional; nil serves without API keys.
	Authenticator *auth.Authenticator
	Agent         Chatter
	AddressBook   ContactBook
}

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	http   *http.Server
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{agent: cfg.Agent, book: cfg.AddressBook}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/api/v1/health", h.health)

	r.Group(func(r chi.Router) {
		if cfg.Authenticator != nil {
			r.Use(AuthMiddleware(cfg.Authenticator))
		}
		r.Use(TimeoutMiddleware(cfg.RequestTimeout))

		r.Post("/api/v1/chat", h.chat)
		if cfg.AddressBook != nil {
			r.Post("/api/v1/contacts", h.saveContact)
			r.Post("/api/v1/contacts/list", h.listContacts)
			r.Post("/api/v1/contacts/resolve", h.resolveContact)
			r.Post("/api/v1/contacts/delete", h.deleteContact)
			r.Post("/api/v1/contacts/export", h.exportContacts)
			r.Post("/api/v1/contacts/import", h.importContacts)
		}
	})

	s := &Server{
		Router: r,
		Port:   cfg.Port,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router wrapped with OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Router, "sui-agent")
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
