// Command notifier sends customer emails for domain events. Inside AWS
// Lambda it serves SQS, EventBridge and direct invocations; elsewhere it
// runs a long-lived worker on the configured broker.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/app"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/email"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/notifications"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := app.NewLogger(cfg, "notification-service")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, cleanup, err := buildConsumer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("notifier setup failed", zap.Error(err))
	}
	defer cleanup()

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.StartWithOptions(consumer.LambdaHandler(), lambda.WithContext(ctx))
		return
	}

	worker, err := events.WorkerFromConfig(ctx, cfg, consumer, logger)
	if err != nil {
		logger.Fatal("notifier setup failed", zap.Error(err))
	}
	if err := worker.Run(ctx); err != nil {
		logger.Fatal("notifier stopped", zap.Error(err))
	}
}

func buildConsumer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*events.Consumer, func(), error) {
	cleanup := func() {}

	sender, err := email.NewSender(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}

	var db *gorm.DB
	if cfg.Consumer.Dedupe == "db" {
		db, err = app.OpenDB(cfg, logger, &events.ProcessedEvent{})
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { _ = database.Close(db) }
	}
	dedupe, err := events.DedupeFromConfig(ctx, cfg, db)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	var opts []events.Option
	if dedupe != nil {
		opts = append(opts, events.WithDedupe(dedupe))
	}
	consumer := events.NewConsumer(cfg.Consumer.Name, logger, opts...)
	notifications.NewHandlers(sender, logger).Register(consumer)
	return consumer, cleanup, nil
}
