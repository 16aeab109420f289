package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/shortener/internal/db"
	"github.com/nkiryanov/shortener/internal/handlers"
	"github.com/nkiryanov/shortener/internal/logger"
	"github.com/nkiryanov/shortener/internal/metrics"
	"github.com/nkiryanov/shortener/internal/repository"
	"github.com/nkiryanov/shortener/internal/repository/postgres"
	"github.com/nkiryanov/shortener/internal/repository/sqlite"
	"github.com/nkiryanov/shortener/internal/service/auth"
	"github.com/nkiryanov/shortener/internal/service/auth/tokenmanager"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	close  func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	storage, closeStorage, err := openStorage(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessTokenSecret,
		AccessTTL:     c.AccessTokenTTL,
		RefreshSecret: c.RefreshTokenSecret,
		RefreshTTL:    c.RefreshTokenTTL,
	})
	if err != nil {
		closeStorage()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	cookies, err := auth.NewCookieBinder(c.AccessCookieName, c.RefreshCookieName)
	if err != nil {
		closeStorage()
		return nil, fmt.Errorf("error while creating cookie binder. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{Logger: l}, tokenManager, storage.User())
	if err != nil {
		closeStorage()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	router := handlers.NewRouter(
		handlers.Config{
			ShowErrorDetail:  c.Environment == logger.EnvDevelopment,
			CORSOrigins:      c.CORSOrigins,
			AuthRateLimitRPM: c.AuthRateLimitRPM,
			Metrics:          metrics.New(),
		},
		authService,
		cookies,
		storage,
		l,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    router,
		logger:     l,
		close:      closeStorage,
	}, nil
}

// Pick storage backend by DSN scheme
func openStorage(ctx context.Context, dsn string) (repository.Storage, func(), error) {
	if db.IsSQLite(dsn) {
		conn, err := db.ConnectAndMigrateSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStorage(conn), func() { _ = conn.Close() }, nil
	}

	pool, err := db.ConnectAndMigrate(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewStorage(pool), pool.Close, nil
}

// Close releases database connections
func (s *ServerApp) Close() {
	if s.close != nil {
		s.close()
	}
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
