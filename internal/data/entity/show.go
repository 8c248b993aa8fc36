package entity

import (
	"time"

	"github.com/google/uuid"
)

type Show struct {
	BaseSimple
	MovieID        uuid.UUID `db:"movie_id"`
	ShowingAt      time.Time `db:"showing_at"`
	TotalSeatCount int       `db:"total_seat_count"`
}

// IsClosed reports whether the show has already started at now.
func (s *Show) IsClosed(now time.Time) bool {
	return !s.ShowingAt.After(now)
}
