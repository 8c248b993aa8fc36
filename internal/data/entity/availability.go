package entity

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the ledger row for one (show, tier). Total is the number of
// seat positions of the tier in the show; 0 <= Remaining <= Total always holds.
type Availability struct {
	ShowID    uuid.UUID `db:"show_id"`
	TierID    uuid.UUID `db:"tier_id"`
	Remaining int       `db:"remaining"`
	Total     int       `db:"total"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (a *Availability) Booked() int {
	return a.Total - a.Remaining
}

func (a *Availability) SoldOut() bool {
	return a.Remaining == 0
}
