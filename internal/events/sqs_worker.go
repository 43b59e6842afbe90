package events

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// SQSWorker long-polls a queue outside Lambda. Messages that fail are
// left on the queue and come back after the visibility timeout.
type SQSWorker struct {
	client    SQSAPI
	queueURL  string
	consumer  *Consumer
	log       *zap.Logger
	batchSize int32
	wait      int32
	backoff   time.Duration
}

func NewSQSWorker(client SQSAPI, queueURL string, c *Consumer, batchSize int, log *zap.Logger) *SQSWorker {
	if batchSize < 1 || batchSize > 10 {
		batchSize = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SQSWorker{
		client:    client,
		queueURL:  queueURL,
		consumer:  c,
		log:       log,
		batchSize: int32(batchSize),
		wait:      20,
		backoff:   2 * time.Second,
	}
}

func (w *SQSWorker) Run(ctx context.Context) error {
	w.log.Info("sqs worker started", zap.String("queue_url", w.queueURL))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := w.poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			w.log.Error("sqs poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.backoff):
			}
		}
	}
}

func (w *SQSWorker) poll(ctx context.Context) error {
	out, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(w.queueURL),
		MaxNumberOfMessages:   w.batchSize,
		WaitTimeSeconds:       w.wait,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return err
	}
	if len(out.Messages) == 0 {
		return nil
	}

	msgs := make([]Message, 0, len(out.Messages))
	handles := make(map[string]string, len(out.Messages))
	for _, m := range out.Messages {
		id := aws.ToString(m.MessageId)
		msgs = append(msgs, Message{ID: id, Body: []byte(aws.ToString(m.Body))})
		handles[id] = aws.ToString(m.ReceiptHandle)
	}

	res := w.consumer.ProcessBatch(ctx, msgs)
	failed := make(map[string]bool, len(res.Failed))
	for _, id := range res.Failed {
		failed[id] = true
	}

	var entries []types.DeleteMessageBatchRequestEntry
	for i, m := range msgs {
		if failed[m.ID] || handles[m.ID] == "" {
			continue
		}
		entries = append(entries, types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(strconv.Itoa(i)),
			ReceiptHandle: aws.String(handles[m.ID]),
		})
	}
	if len(entries) == 0 {
		return nil
	}

	del, err := w.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(w.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return err
	}
	for _, f := range del.Failed {
		w.log.Warn("sqs delete failed",
			zap.String("entry", aws.ToString(f.Id)),
			zap.String("code", aws.ToString(f.Code)))
	}
	return nil
}
