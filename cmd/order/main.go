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
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/catalog"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/orders"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := app.NewLogger(cfg, "order-service")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("order service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.RequireAuth(); err != nil {
		return err
	}

	models := append(orders.Models(), &events.ProcessedEvent{})
	db, err := app.OpenDB(cfg, logger, models...)
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

	prices := catalog.NewHTTPResolver(cfg.Upstream.ProductURL, cfg.Upstream.PriceLookupTimeout, &http.Client{}, logger)
	repo := orders.NewRepo(db)
	svc := orders.NewService(repo, prices, pub, cfg.OrderPublishOnPay, logger)

	router := apphttp.NewOrderRouter(apphttp.Deps{
		Log:      logger,
		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret),
		DB:       sqlDB,
	}, svc)

	tasks := []func(context.Context) error{
		func(ctx context.Context) error { return app.Serve(ctx, ":"+cfg.Port, router, logger) },
	}

	if cfg.OrderReconcile {
		rcfg, err := cfg.ForReconciler()
		if err != nil {
			return err
		}
		dedupe, err := events.DedupeFromConfig(ctx, rcfg, db)
		if err != nil {
			return err
		}
		opts := []events.Option{}
		if dedupe != nil {
			opts = append(opts, events.WithDedupe(dedupe))
		}
		consumer := events.NewConsumer(rcfg.Consumer.Name, logger, opts...)
		orders.NewReconciler(repo, logger).Register(consumer)

		worker, err := events.WorkerFromConfig(ctx, rcfg, consumer, logger)
		if err != nil {
			return err
		}
		tasks = append(tasks, worker.Run)
	}

	return app.RunAll(ctx, tasks...)
}
