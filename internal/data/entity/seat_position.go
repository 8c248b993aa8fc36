package entity

import "github.com/google/uuid"

// SeatPosition is one physical seat of a show. PositionNo is unique within the show.
type SeatPosition struct {
	BaseSimple
	ShowID     uuid.UUID `db:"show_id"`
	TierID     uuid.UUID `db:"tier_id"`
	PositionNo int       `db:"position_no"`
}
