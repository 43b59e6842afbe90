package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dedupeItem struct {
	PK          string `dynamodbav:"PK"`
	EventType   string `dynamodbav:"event_type"`
	ProcessedAt string `dynamodbav:"processed_at"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`
}

// DynamoDedupe keeps markers in a DynamoDB table keyed by
// "CONSUMER#<name>#MSG#<id>". Items carry a TTL attribute so the table
// does not grow forever; redelivery windows are far shorter.
type DynamoDedupe struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
}

func NewDynamoDedupe(client DynamoAPI, table string) *DynamoDedupe {
	return &DynamoDedupe{client: client, table: table, ttl: 14 * 24 * time.Hour}
}

func NewDynamoClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("events: aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

func dedupeKey(consumer, messageID string) string {
	return fmt.Sprintf("CONSUMER#%s#MSG#%s", consumer, messageID)
}

func (s *DynamoDedupe) Seen(ctx context.Context, consumer, messageID string) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: dedupeKey(consumer, messageID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("dynamodb: get: %w", err)
	}
	return len(out.Item) > 0, nil
}

func (s *DynamoDedupe) MarkProcessed(ctx context.Context, consumer, messageID, eventType string, _ []byte) error {
	now := time.Now().UTC()
	av, err := attributevalue.MarshalMap(dedupeItem{
		PK:          dedupeKey(consumer, messageID),
		EventType:   eventType,
		ProcessedAt: now.Format(time.RFC3339),
		ExpiresAt:   now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: marshal: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dynamodb: put: %w", err)
	}
	return nil
}
