package entity

// SeatTier is a named seat category. Price is in whole currency units and
// already carries any premium over the General tier.
type SeatTier struct {
	BaseSimple
	Name  string `db:"name"`
	Price int64  `db:"price"`
}
