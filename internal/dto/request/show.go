package request

import "time"

type SeatAllocation struct {
	TierID    string `json:"tier_id" validate:"required,uuid"`
	Positions []int  `json:"positions" validate:"required,min=1,dive,min=1"`
}

// ScheduleShowRequest provisions a show with either its own seat map or a
// copy of another show's.
type ScheduleShowRequest struct {
	MovieID        string           `json:"movie_id" validate:"required,uuid"`
	ShowingAt      time.Time        `json:"showing_at" validate:"required"`
	Seats          []SeatAllocation `json:"seats,omitempty" validate:"omitempty,dive"`
	CopyLayoutFrom string           `json:"copy_layout_from,omitempty" validate:"omitempty,uuid"`
}

type ListShowsRequest struct {
	OnlyAvailable bool `json:"available"`
	IncludePast   bool `json:"include_past"`
}
