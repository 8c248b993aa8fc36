package entity

import (
	"time"

	"github.com/google/uuid"
)

// BookedSeat claims one seat position for a booking. At most one active row
// may exist per seat position.
type BookedSeat struct {
	BaseSimple
	BookingID      uuid.UUID  `db:"booking_id"`
	SeatPositionID uuid.UUID  `db:"seat_position_id"`
	ShowID         uuid.UUID  `db:"show_id"`
	TierID         uuid.UUID  `db:"tier_id"`
	PositionNo     int        `db:"position_no"`
	Price          int64      `db:"price"`
	Active         bool       `db:"active"`
	ReleasedAt     *time.Time `db:"released_at"`
}
