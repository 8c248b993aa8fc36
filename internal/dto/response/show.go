package response

import "time"

type TierResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type ShowResponse struct {
	ID             string    `json:"id"`
	MovieID        string    `json:"movie_id"`
	MovieName      string    `json:"movie_name"`
	ShowingAt      time.Time `json:"showing_at"`
	TotalSeatCount int       `json:"total_seat_count"`
	Remaining      int       `json:"remaining"`
	SoldOut        bool      `json:"sold_out"`
}

type TierAvailabilityResponse struct {
	TierID    string `json:"tier_id"`
	TierName  string `json:"tier_name"`
	Price     int64  `json:"price"`
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
	SoldOut   bool   `json:"sold_out"`
}

type AvailabilityResponse struct {
	ShowID    string                     `json:"show_id"`
	Tiers     []TierAvailabilityResponse `json:"tiers"`
	Remaining int                        `json:"remaining"`
	Total     int                        `json:"total"`
	SoldOut   bool                       `json:"sold_out"`
}

type SeatResponse struct {
	ID         string `json:"id"`
	PositionNo int    `json:"position_no"`
	Booked     bool   `json:"booked"`
}

type TierLayoutResponse struct {
	TierID   string         `json:"tier_id"`
	TierName string         `json:"tier_name"`
	Price    int64          `json:"price"`
	Seats    []SeatResponse `json:"seats"`
}

type LayoutResponse struct {
	ShowID string               `json:"show_id"`
	Tiers  []TierLayoutResponse `json:"tiers"`
}

type TierCorrection struct {
	TierID        string `json:"tier_id"`
	Total         int    `json:"total"`
	Booked        int    `json:"booked"`
	RemainingWas  int    `json:"remaining_was"`
	RemainingNow  int    `json:"remaining_now"`
	MissingLedger bool   `json:"missing_ledger,omitempty"`
}

type ReconcileResponse struct {
	ShowID      string           `json:"show_id"`
	Corrections []TierCorrection `json:"corrections"`
}
