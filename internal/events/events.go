// Package events publishes booking lifecycle events to a message broker.
package events

import (
	"context"
	"fmt"
	"time"

	"cinema-seat-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

type BookingEvent struct {
	Type        string      `json:"type"`
	BookingID   uuid.UUID   `json:"booking_id"`
	BookingCode string      `json:"booking_code"`
	ShowID      uuid.UUID   `json:"show_id"`
	CustomerID  uuid.UUID   `json:"customer_id"`
	Seats       []EventSeat `json:"seats"`
	TotalPrice  int64       `json:"total_price"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

type EventSeat struct {
	PositionNo int       `json:"position_no"`
	TierID     uuid.UUID `json:"tier_id"`
	Price      int64     `json:"price"`
}

type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

// NewPublisher picks the broker from cfg.Driver: rabbitmq, kafka or none.
func NewPublisher(cfg utils.EventsConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return NopPublisher{}, nil
	case "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitMQURL, cfg.Queue, log)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event BookingEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
