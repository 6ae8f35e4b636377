package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trade is an immutable fill record. Price is always the maker's resting
// price; Side is the taker's side. The core surrenders Trades to the event
// port and retains no history of its own.
type Trade struct {
	ID       uuid.UUID
	MarketID string

	BuyerAddress  string
	SellerAddress string
	BuyerOrderID  uuid.UUID
	SellerOrderID uuid.UUID

	Price Amount
	Size  Amount
	Side  Side

	Timestamp time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{id=%s market=%s price=%s size=%s side=%s buyer=%s seller=%s}",
		t.ID, t.MarketID, t.Price, t.Size, t.Side, t.BuyerAddress, t.SellerAddress,
	)
}
