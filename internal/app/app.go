// Package app holds the boot and shutdown plumbing shared by the
// service binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/logger"
)

const shutdownTimeout = 5 * time.Second

func NewLogger(cfg *config.Config, service string) (*zap.Logger, error) {
	return logger.New(logger.Options{
		Service:    service,
		Production: cfg.IsProduction(),
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
	})
}

// OpenDB opens the configured database and, when DB_AUTO_MIGRATE is on,
// migrates models.
func OpenDB(cfg *config.Config, log *zap.Logger, models ...any) (*gorm.DB, error) {
	if err := cfg.RequireDB(); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db, models...); err != nil {
			_ = database.Close(db)
			return nil, err
		}
		log.Info("database migrated", zap.Int("models", len(models)))
	}
	return db, nil
}

// Serve runs an HTTP server until ctx is cancelled, then drains it.
func Serve(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// RunAll runs every task until the first one fails or ctx ends.
func RunAll(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(func() error { return t(ctx) })
	}
	return g.Wait()
}
