package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nkiryanov/aicheck/internal/db"
	"github.com/nkiryanov/aicheck/internal/handlers"
	"github.com/nkiryanov/aicheck/internal/handlers/render"
	"github.com/nkiryanov/aicheck/internal/logger"
	"github.com/nkiryanov/aicheck/internal/metrics"
	"github.com/nkiryanov/aicheck/internal/repository"
	"github.com/nkiryanov/aicheck/internal/repository/file"
	"github.com/nkiryanov/aicheck/internal/repository/postgres"
	"github.com/nkiryanov/aicheck/internal/service/copyleaks"
	"github.com/nkiryanov/aicheck/internal/service/detector"
	"github.com/nkiryanov/aicheck/internal/service/tokenmanager"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger

	// Called after the server stopped
	closers []func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{
		ListenAddr: c.ListenAddr,
		Logger:     logger,
	}

	// Initialize credential storage
	repo, err := app.credentialRepo(ctx, c)
	if err != nil {
		return nil, err
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("error while registering metrics. Err: %w", err)
	}

	// Initialize services
	client := copyleaks.NewClient(copyleaks.Config{
		IdentityURL: c.IdentityURL,
		APIURL:      c.APIURL,
		Timeout:     c.Timeout,
	}, logger)

	tokenManager, err := tokenmanager.New(tokenmanager.Config{Email: c.Email, APIKey: c.APIKey}, client, repo, logger, m)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	detectorService := detector.NewService(detector.Config{Sandbox: c.Sandbox}, client, tokenManager, logger, m)

	pages, err := render.NewPages()
	if err != nil {
		app.close()
		return nil, fmt.Errorf("error while loading templates. Err: %w", err)
	}

	app.Handler = handlers.NewRouter(detectorService, pages, m.Handler(), logger)
	return app, nil
}

// Database when configured, token file otherwise
func (s *ServerApp) credentialRepo(ctx context.Context, c *Config) (repository.CredentialRepo, error) {
	if c.DatabaseDSN != "" {
		pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		s.Logger.Info("Access token is persisted to database")
		return postgres.NewCredentialRepo(pool), nil
	}

	var sealer file.Sealer
	if c.SecretKey != "" {
		secretbox, err := file.NewSecretboxSealer(c.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("error while creating token file sealer. Err: %w", err)
		}
		sealer = secretbox
	}

	s.Logger.Info("Access token is persisted to file", "path", c.TokenFile, "encrypted", sealer != nil)
	return file.NewCredentialRepo(c.TokenFile, sealer), nil
}

func (s *ServerApp) close() {
	for _, fn := range s.closers {
		fn()
	}
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.Logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
