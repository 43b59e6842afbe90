package events

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
)

const (
	BackendRabbitMQ = "rabbitmq"
	BackendSQS      = "sqs"
	BackendKafka    = "kafka"
	BackendNoop     = "noop"
)

// FromConfig builds the one publisher this process will use.
func FromConfig(ctx context.Context, cfg config.EventConfig, awsRegion string, log *zap.Logger) (Publisher, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendRabbitMQ
	}

	switch backend {
	case BackendRabbitMQ:
		if cfg.RabbitMQURL == "" {
			return nil, fmt.Errorf("events: RABBITMQ_URL required for rabbitmq backend")
		}
		return NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.Exchange, log), nil

	case BackendSQS:
		if cfg.SQSQueueURL == "" {
			return nil, fmt.Errorf("events: SQS_QUEUE_URL required for sqs backend")
		}
		client, err := NewSQSClient(ctx, awsRegion)
		if err != nil {
			return nil, err
		}
		return NewSQSPublisher(client, cfg.SQSQueueURL), nil

	case BackendKafka:
		if cfg.KafkaBrokers == "" || cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("events: KAFKA_BROKERS and KAFKA_TOPIC required for kafka backend")
		}
		return NewKafkaPublisher(NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)), nil

	case BackendNoop:
		return Noop{Log: log}, nil

	default:
		return nil, fmt.Errorf("events: unknown EVENT_BACKEND %q", cfg.Backend)
	}
}

func NewSQSClient(ctx context.Context, region string) (*sqs.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("events: aws config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// Worker pulls messages from a broker into a Consumer until ctx ends.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFromConfig builds the long-running consumer loop for the
// configured backend. The noop backend has nothing to consume.
func WorkerFromConfig(ctx context.Context, cfg *config.Config, c *Consumer, log *zap.Logger) (Worker, error) {
	ev, cc := cfg.Event, cfg.Consumer
	switch strings.ToLower(strings.TrimSpace(ev.Backend)) {
	case "", BackendRabbitMQ:
		return NewRabbitMQWorker(ev.RabbitMQURL, ev.Exchange, cc.Queue, c, cc.BatchSize, cc.BatchWait, log), nil
	case BackendSQS:
		if ev.SQSQueueURL == "" {
			return nil, fmt.Errorf("events: SQS_QUEUE_URL required for sqs worker")
		}
		client, err := NewSQSClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return NewSQSWorker(client, ev.SQSQueueURL, c, cc.BatchSize, log), nil
	case BackendKafka:
		return NewKafkaWorker(NewKafkaReader(ev.KafkaBrokers, ev.KafkaTopic, cc.KafkaGroup), c, log), nil
	default:
		return nil, fmt.Errorf("events: no worker for EVENT_BACKEND %q", ev.Backend)
	}
}

// DedupeFromConfig returns nil when CONSUMER_DEDUPE is none. db is only
// used by the db store.
func DedupeFromConfig(ctx context.Context, cfg *config.Config, db *gorm.DB) (DedupeStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Consumer.Dedupe)) {
	case "", "none":
		return nil, nil
	case "db":
		if db == nil {
			return nil, fmt.Errorf("events: CONSUMER_DEDUPE=db needs a database")
		}
		return NewGormDedupe(db), nil
	case "dynamodb":
		client, err := NewDynamoClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return NewDynamoDedupe(client, cfg.Consumer.DedupeTable), nil
	default:
		return nil, fmt.Errorf("events: unknown CONSUMER_DEDUPE %q", cfg.Consumer.Dedupe)
	}
}
