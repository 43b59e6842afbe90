package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/app"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
	apphttp "github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/payments"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := app.NewLogger(cfg, "payment-service")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("payment service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.RequireAuth(); err != nil {
		return err
	}

	db, err := app.OpenDB(cfg, logger, payments.Models()...)
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	pub, err := events.FromConfig(ctx, cfg.Event, cfg.AWSRegion, logger)
	if err != nil {
		return err
	}
	pub = events.Safe(pub, logger, cfg.Event.PublishTimeout)
	defer pub.Close() //nolint:errcheck

	orderClient := payments.NewHTTPOrderClient(
		cfg.Upstream.OrderURL,
		cfg.Upstream.OrderMarkPaidPath,
		cfg.Upstream.OrderClientTimeout,
		&http.Client{},
	)
	svc := payments.NewService(payments.NewLedger(db), orderClient, pub, logger)

	router := apphttp.NewPaymentRouter(apphttp.Deps{
		Log:      logger,
		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret),
		DB:       sqlDB,
	}, svc)

	return app.Serve(ctx, ":"+cfg.Port, router, logger)
}
