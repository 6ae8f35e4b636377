package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order is one resting or terminal order tracked by the engine. Price is
// ignored semantically for Market orders but still carried (zero for a pure
// market order) so the type stays uniform across the lifecycle.
type Order struct {
	ID          uuid.UUID
	UserAddress string
	MarketID    string

	Price Amount // atomic quote units, multiple of the market's tick_size
	Size  Amount // atomic base units requested, multiple of lot_size

	Side   Side
	Type   OrderType
	Status OrderStatus

	FilledSize Amount

	CreatedAt time.Time // arrival at the command port, microsecond resolution
	UpdatedAt time.Time
}

// Remaining returns the quantity still open for matching.
func (o *Order) Remaining() Amount {
	return o.Size.Sub(o.FilledSize)
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%s market=%s side=%s type=%s price=%s size=%s filled=%s status=%s owner=%s}",
		o.ID, o.MarketID, o.Side, o.Type, o.Price, o.Size, o.FilledSize, o.Status, o.UserAddress,
	)
}
