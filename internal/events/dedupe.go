package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database"
)

// DedupeStore remembers which message ids a consumer already handled.
type DedupeStore interface {
	Seen(ctx context.Context, consumer, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, messageID, eventType string, body []byte) error
}

type ProcessedEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Consumer    string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_processed_events_consumer_message,priority:1"`
	MessageID   string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_processed_events_consumer_message,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json"`
	ProcessedAt time.Time      `gorm:"not null"`
}

func (ProcessedEvent) TableName() string { return "processed_events" }

// GormDedupe stores markers in processed_events; the unique
// (consumer, message_id) index makes concurrent marks safe.
type GormDedupe struct{ db *gorm.DB }

func NewGormDedupe(db *gorm.DB) *GormDedupe { return &GormDedupe{db: db} }

func (s *GormDedupe) Seen(ctx context.Context, consumer, messageID string) (bool, error) {
	var pe ProcessedEvent
	err := s.db.WithContext(ctx).
		Select("id").
		First(&pe, "consumer = ? AND message_id = ?", consumer, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GormDedupe) MarkProcessed(ctx context.Context, consumer, messageID, eventType string, body []byte) error {
	pe := ProcessedEvent{
		ID:          uuid.NewString(),
		Consumer:    consumer,
		MessageID:   messageID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
	}
	if _, payload, err := ParseEnvelope(body); err == nil {
		pe.PayloadJSON = datatypes.JSON(payload)
	}
	err := s.db.WithContext(ctx).Create(&pe).Error
	if database.IsDuplicate(err) {
		return nil
	}
	return err
}
