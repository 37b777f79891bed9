package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/cryptox"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/aussiebroadwan/inventory/pkg/invtest"
	"github.com/aussiebroadwan/inventory/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application serves the fake inventory backend for local development.
type Application struct {
	cfg    Config
	logger *slog.Logger

	backend *invtest.Backend
	server  *http.Server
}

// New creates the backend, seeds the admin account and demo data, and
// prepares the HTTP server.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "inventory-mock",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	backend, err := invtest.New(
		invtest.WithAccessTTL(cfg.AccessTTL),
		invtest.WithLogger(app.logger),
		invtest.WithPasswordParams(cryptox.DefaultParams),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}
	app.backend = backend

	if err := app.seed(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", backend)
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return app, nil
}

// Handler returns the root handler, for tests.
func (app *Application) Handler() http.Handler { return app.server.Handler }

func (app *Application) seed() error {
	password := app.cfg.AdminPassword
	if password == "" {
		generated, err := cryptox.GeneratePassword()
		if err != nil {
			return fmt.Errorf("failed to generate admin password: %w", err)
		}
		password = generated
		app.logger.Warn("generated admin password", "username", app.cfg.AdminUsername, "password", password)
	}
	if _, err := app.backend.AddUser(app.cfg.AdminUsername, password, invtest.RoleAdmin); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	for i := range app.cfg.SeedServers {
		app.backend.AddServer(inventory.CreateServerRequest{
			Name:   fmt.Sprintf("server-%02d", i+1),
			Status: i%3 != 2,
			IP:     fmt.Sprintf("10.0.%d.%d", i/250, i%250+1),
		})
	}
	if app.cfg.SeedServers > 0 {
		app.logger.Info("seeded demo servers", "count", app.cfg.SeedServers)
	}
	return nil
}

// Run starts the server and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("inventory mock starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the server.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down inventory mock...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		return app.server.Close()
	}

	app.logger.Info("inventory mock stopped")
	return nil
}
