package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/de-tools/autofixer/pkg/handlers/autofixer"
	autofixermiddleware "github.com/de-tools/autofixer/pkg/server/middleware"
	"github.com/de-tools/autofixer/pkg/services/config"
	"github.com/de-tools/autofixer/pkg/services/lifecycle"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type WebAPI struct {
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Controller lifecycle.Controller
	Logger     zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) http.Handler {
	fixHandler := autofixer.NewHandler(config.Dependencies.Controller)
	logger := config.Dependencies.Logger

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(autofixermiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/autofixer", func(r chi.Router) {
		r.Get("/diagnose", fixHandler.Diagnose)
		r.Post("/generate-fix", fixHandler.GenerateFix)
		r.Post("/apply-fix", fixHandler.ApplyFix)
		// Paths used by the existing dashboard client.
		r.Post("/generate_fix", fixHandler.GenerateFix)
		r.Post("/apply_fix", fixHandler.ApplyFix)
		r.Post("/benchmark", fixHandler.Benchmark)
		r.Post("/cancel", fixHandler.Cancel)
		r.Get("/issues/{issueID}/state", fixHandler.GetState)
	})
	router.Handle("/metrics", promhttp.Handler())

	return router
}

func NewWebAPI(config Config) *WebAPI {
	logger := config.Dependencies.Logger
	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &WebAPI{
		logger:          &logger,
		shutdownTimeout: shutdownTimeout,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           ConfigureRouter(config),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Initialize wires the backend caller, the issue registry and the lifecycle controller
// from cfg. The returned WebAPI owns all of them until Shutdown.
func Initialize(logger zerolog.Logger, cfg *config.Config) (*WebAPI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctrl, err := lifecycle.NewFromConfig(cfg.Backend)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("backend", cfg.Backend.BaseURL).
		Dur("timeout", cfg.Backend.Timeout()).
		Int("max_retries", cfg.Backend.MaxRetries).
		Msg("autofixer initialized")

	return NewWebAPI(Config{
		Addr:            net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
		Dependencies: Dependencies{
			Controller: ctrl,
			Logger:     logger,
		},
	}), nil
}

func (w *WebAPI) Handler() http.Handler {
	return w.server.Handler
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		return w.Shutdown(ctx)
	}
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
// Pending backend calls are abandoned with their requests.
func (w *WebAPI) Shutdown(ctx context.Context) error {
	err := w.server.Shutdown(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("graceful shutdown failed")
		err = w.server.Close()
	}
	return err
}
