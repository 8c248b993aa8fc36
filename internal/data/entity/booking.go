package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	Base
	Code        string        `db:"code"`
	ShowID      uuid.UUID     `db:"show_id"`
	CustomerID  uuid.UUID     `db:"customer_id"`
	TotalSeats  int           `db:"total_seats"`
	TotalPrice  int64         `db:"total_price"`
	Status      BookingStatus `db:"status"`
	CancelledAt *time.Time    `db:"cancelled_at"`
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}
