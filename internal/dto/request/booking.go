package request

type TierQuantity struct {
	TierID   string `json:"tier_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=50"`
}

// CreateBookingRequest asks for seats either by tier and quantity or by
// explicit seat. Exactly one of Tiers, SeatPositionIDs and SeatNumbers is set.
type CreateBookingRequest struct {
	ShowID          string         `json:"show_id" validate:"required,uuid"`
	CustomerID      string         `json:"customer_id" validate:"required,uuid"`
	Tiers           []TierQuantity `json:"tiers,omitempty" validate:"omitempty,max=10,dive"`
	SeatPositionIDs []string       `json:"seat_position_ids,omitempty" validate:"omitempty,max=50,unique,dive,uuid"`
	SeatNumbers     []int          `json:"seat_numbers,omitempty" validate:"omitempty,max=50,unique,dive,min=1"`
}
