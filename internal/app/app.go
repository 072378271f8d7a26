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

	"github.com/mic-e/abrechnung/internal/adapter/postgres"
	groupadapter "github.com/mic-e/abrechnung/internal/adapter/postgres/group"
	txadapter "github.com/mic-e/abrechnung/internal/adapter/postgres/transaction"
	"github.com/mic-e/abrechnung/internal/config"
	"github.com/mic-e/abrechnung/internal/currency"
	"github.com/mic-e/abrechnung/internal/service/transaction"
	"github.com/mic-e/abrechnung/internal/transport/middleware"
	"github.com/mic-e/abrechnung/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, connects to
// the database, wires the repositories and the transaction service into the
// HTTP server, and blocks until the context is canceled or a termination
// signal arrives, then shuts down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	transactionRepo := txadapter.New(pool)
	groupRepo := groupadapter.New(pool)
	currencies := currency.NewRegistry()

	svc := transaction.NewService(logger, transactionRepo, groupRepo, currencies, txManager, cfg.Transaction)

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(time.Minute)
		defer limiter.Stop()
	}

	router := rest.NewRouter(logger, cfg.CORS, rest.RouterDeps{
		Transactions:       rest.NewTransactionHandler(svc, logger),
		Health:             rest.NewHealthHandler(pool, BuildVersion()),
		RateLimiter:        limiter,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("context canceled")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
