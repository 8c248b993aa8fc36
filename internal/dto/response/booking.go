package response

import "time"

type BookedSeatResponse struct {
	SeatPositionID string `json:"seat_position_id"`
	PositionNo     int    `json:"position_no"`
	TierID         string `json:"tier_id"`
	TierName       string `json:"tier_name"`
	Price          int64  `json:"price"`
}

type BookingResponse struct {
	ID               string               `json:"id"`
	Code             string               `json:"code"`
	ShowID           string               `json:"show_id"`
	CustomerID       string               `json:"customer_id"`
	Status           string               `json:"status"`
	TotalSeats       int                  `json:"total_seats"`
	TotalPrice       int64                `json:"total_price"`
	Seats            []BookedSeatResponse `json:"seats"`
	CreatedAt        time.Time            `json:"created_at"`
	CancelledAt      *time.Time           `json:"cancelled_at,omitempty"`
	AlreadyCancelled bool                 `json:"already_cancelled,omitempty"`
}
