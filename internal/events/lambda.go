package events

import (
	"context"
	"encoding/json"
	"errors"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// SQSLambdaHandler adapts the consumer to an SQS-triggered Lambda. The
// response uses the partial batch shape so only failed records are
// retried (the function needs ReportBatchItemFailures enabled).
func (c *Consumer) SQSLambdaHandler() func(ctx context.Context, ev lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
	return func(ctx context.Context, ev lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
		msgs := make([]Message, 0, len(ev.Records))
		for _, r := range ev.Records {
			msgs = append(msgs, Message{ID: r.MessageId, Body: []byte(r.Body)})
		}

		res := c.ProcessBatch(ctx, msgs)

		resp := lambdaevents.SQSEventResponse{
			BatchItemFailures: make([]lambdaevents.SQSBatchItemFailure, 0, len(res.Failed)),
		}
		for _, id := range res.Failed {
			resp.BatchItemFailures = append(resp.BatchItemFailures, lambdaevents.SQSBatchItemFailure{ItemIdentifier: id})
		}
		return resp, nil
	}
}

// LambdaResult is returned for non-SQS invocations.
type LambdaResult struct {
	OK     bool   `json:"ok"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

type lambdaProbe struct {
	Records    json.RawMessage `json:"Records"`
	ID         string          `json:"id"`
	DetailType string          `json:"detail-type"`
	DetailAlt  string          `json:"detailType"`
	Detail     json.RawMessage `json:"detail"`
}

// LambdaHandler accepts the three shapes the notifier is invoked with:
// an SQS batch, an EventBridge event whose detail-type is the event type,
// and a direct {type, payload} invoke. Only the SQS shape reports
// per-record failures; the others return the handler error so Lambda's
// async retry applies.
func (c *Consumer) LambdaHandler() func(ctx context.Context, raw json.RawMessage) (any, error) {
	sqsHandler := c.SQSLambdaHandler()
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p lambdaProbe
		if err := json.Unmarshal(raw, &p); err != nil {
			c.log.Warn("unsupported lambda event", zap.Error(err))
			return LambdaResult{Error: "Unsupported event format"}, nil
		}

		if len(p.Records) > 0 && p.Records[0] == '[' {
			var ev lambdaevents.SQSEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				return LambdaResult{Error: "Unsupported event format"}, nil
			}
			if len(ev.Records) > 0 {
				return sqsHandler(ctx, ev)
			}
		}

		detailType := p.DetailType
		if detailType == "" {
			detailType = p.DetailAlt
		}
		if detailType != "" && len(p.Detail) > 0 && p.Detail[0] == '{' {
			body, err := json.Marshal(Envelope{Type: detailType, Payload: p.Detail})
			if err != nil {
				return nil, err
			}
			if _, err := c.processOne(ctx, Message{ID: p.ID, Body: body}); err != nil {
				return nil, err
			}
			return LambdaResult{OK: true, Source: "eventbridge"}, nil
		}

		_, err := c.processOne(ctx, Message{Body: raw})
		switch {
		case errors.Is(err, ErrMalformedMessage), errors.Is(err, ErrBadEnvelope):
			c.log.Warn("unsupported lambda event", zap.Error(err))
			return LambdaResult{Error: "Unsupported event format"}, nil
		case err != nil:
			return nil, err
		}
		return LambdaResult{OK: true, Source: "direct"}, nil
	}
}
