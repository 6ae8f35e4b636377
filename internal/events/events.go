// Package events implements the Event Port: a tagged union of domain events
// broadcast to subscribers over bounded, per-subscriber channels.
//
// Grounded on the teacher's internal/net/messages.go Report/ReportMessageType
// tagged union, generalized from a wire-serialized struct to an in-process Go
// interface, since the core itself never serializes — only internal/netproto
// does, at the boundary.
package events

import (
	"time"

	"github.com/google/uuid"

	"fenrir/internal/analytics"
	"fenrir/internal/common"
)

// Event is the sealed set of things the core ever emits. The unexported
// method keeps the union closed to this package.
type Event interface {
	event()
	MarketID() string
}

// TradeExecuted reports one completed trade.
type TradeExecuted struct {
	Trade common.Trade
}

func (TradeExecuted) event() {}

// MarketID implements Event.
func (e TradeExecuted) MarketID() string { return e.Trade.MarketID }

// OrderPlaced reports the terminal post-match state of a placed order —
// Pending (rested untouched), PartiallyFilled (rested with a fill),
// Filled, or Cancelled (immediate-or-cancel residual discarded).
type OrderPlaced struct {
	Order common.Order
}

func (OrderPlaced) event() {}

// MarketID implements Event.
func (e OrderPlaced) MarketID() string { return e.Order.MarketID }

// OrderCancelled reports a successful cancel.
type OrderCancelled struct {
	OrderID     uuid.UUID
	UserAddress string
	MarketID_   string
}

func (OrderCancelled) event() {}

// MarketID implements Event.
func (e OrderCancelled) MarketID() string { return e.MarketID_ }

// BalanceUpdated is emitted by the exchange layer above the core and merely
// relayed on the same port so subscribers have one stream to watch.
type BalanceUpdated struct {
	UserAddress string
	Ticker      string
	Available   common.Amount
	Locked      common.Amount
	MarketID_   string
}

func (BalanceUpdated) event() {}

// MarketID implements Event. BalanceUpdated is not market-scoped; callers
// that key on market should treat the empty string as "all markets".
func (e BalanceUpdated) MarketID() string { return e.MarketID_ }

// OrderbookSnapshot is emitted periodically by a snapshot task, not by the
// command path.
type OrderbookSnapshot struct {
	Snapshot  analytics.Snapshot
	Emitted   time.Time
	MarketID_ string
}

func (OrderbookSnapshot) event() {}

// MarketID implements Event.
func (e OrderbookSnapshot) MarketID() string { return e.MarketID_ }
