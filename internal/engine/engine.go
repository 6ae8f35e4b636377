// Package engine implements the Book Manager: the cross-market router that
// owns every per-market Book, the global order-id index, and the order
// lifecycle state machine driving place/cancel/cancel_all/snapshot.
//
// Grounded on the teacher's internal/engine/engine.go (the
// Engine{Books: map[...]OrderBook} shape), generalized from a fixed
// AssetType enum to the spec's open market_id string keyspace. The uuid
// index and a real cancel path are grounded on original_source's
// book_manager_adapter.rs (uuid_to_market: DashMap) — the teacher's own
// cancel path was a bare TODO.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fenrir/internal/analytics"
	"fenrir/internal/book"
	"fenrir/internal/common"
	"fenrir/internal/convert"
	"fenrir/internal/events"
	"fenrir/internal/matcher"
)

// market bundles one market's immutable definition with its live book and
// the converter scoped to its quanta.
type market struct {
	def  common.Market
	book *book.Book
	conv convert.Converter
}

// Engine is the Book Manager. The zero value is not usable; use New.
type Engine struct {
	bus *events.Bus

	marketsMu sync.RWMutex // guards creation/lookup of entries in markets
	markets   map[string]*market

	indexMu      sync.RWMutex // guards uuidToMarket only
	uuidToMarket map[uuid.UUID]string
}

// New creates an Engine broadcasting domain events on bus.
func New(bus *events.Bus) *Engine {
	return &Engine{
		bus:          bus,
		markets:      make(map[string]*market),
		uuidToMarket: make(map[uuid.UUID]string),
	}
}

// InitMarket registers a market, idempotently. A second call with the same
// market_id is a no-op regardless of whether the definition differs —
// markets are immutable after creation (spec.md §3).
func (e *Engine) InitMarket(def common.Market) error {
	if !def.Valid() {
		return common.NewCommandError(common.KindInvalidQuantum, common.ErrInvalidQuantum)
	}

	e.marketsMu.Lock()
	defer e.marketsMu.Unlock()

	if _, ok := e.markets[def.ID]; ok {
		return nil
	}
	e.markets[def.ID] = &market{
		def:  def,
		book: book.New(),
		conv: convert.New(def.TickSize, def.LotSize),
	}
	log.Info().Str("market_id", def.ID).Msg("engine: market initialized")
	return nil
}

func (e *Engine) lookupMarket(marketID string) (*market, error) {
	e.marketsMu.RLock()
	defer e.marketsMu.RUnlock()
	m, ok := e.markets[marketID]
	if !ok {
		return nil, common.NewCommandError(common.KindMarketNotFound, common.ErrMarketNotFound)
	}
	return m, nil
}

// HasMarket reports whether market_id has been initialized.
func (e *Engine) HasMarket(marketID string) bool {
	e.marketsMu.RLock()
	defer e.marketsMu.RUnlock()
	_, ok := e.markets[marketID]
	return ok
}

// Markets returns every initialized market_id, in no particular order.
func (e *Engine) Markets() []string {
	e.marketsMu.RLock()
	defer e.marketsMu.RUnlock()
	out := make([]string, 0, len(e.markets))
	for id := range e.markets {
		out = append(out, id)
	}
	return out
}

// MarketCount returns the number of initialized markets.
func (e *Engine) MarketCount() int {
	e.marketsMu.RLock()
	defer e.marketsMu.RUnlock()
	return len(e.markets)
}

// GetOrder returns the live state of a resting order, if any. A terminal
// (Filled/Cancelled) order is never resting and so is never found here —
// callers that need terminal state must capture it from the command
// result or the Event Port.
func (e *Engine) GetOrder(orderID uuid.UUID) (common.Order, bool) {
	e.indexMu.RLock()
	marketID, ok := e.uuidToMarket[orderID]
	e.indexMu.RUnlock()
	if !ok {
		return common.Order{}, false
	}

	m, err := e.lookupMarket(marketID)
	if err != nil {
		return common.Order{}, false
	}

	m.book.RLock()
	defer m.book.RUnlock()
	resting, ok := m.book.Get(orderID)
	if !ok {
		return common.Order{}, false
	}
	return restingToOrder(resting, marketID, m.conv), true
}

func restingToOrder(r book.RestingOrder, marketID string, conv convert.Converter) common.Order {
	filled := r.TotalLots - r.Remaining
	status := common.Pending
	if filled > 0 {
		status = common.PartiallyFilled
	}
	return common.Order{
		ID:          r.ID,
		UserAddress: r.UserAddress,
		MarketID:    marketID,
		Price:       conv.TicksToPrice(r.PriceTicks),
		Size:        conv.LotsToSize(r.TotalLots),
		Side:        r.Side,
		Type:        common.Limit,
		Status:      status,
		FilledSize:  conv.LotsToSize(filled),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.CreatedAt,
	}
}

// PlaceOrder validates, matches and (for a residual limit order) rests o,
// returning its terminal post-match state and the trades produced. This is
// the hot path (spec.md §4.4): one market lookup, one book-lock acquisition
// held for the whole operation, a synchronous Matcher traversal with no
// suspension inside it, then event emission.
func (e *Engine) PlaceOrder(o common.Order) (common.Order, []common.Trade, error) {
	m, err := e.lookupMarket(o.MarketID)
	if err != nil {
		return common.Order{}, nil, err
	}

	if o.Type == common.Limit && !m.conv.PriceDivisible(o.Price) {
		return common.Order{}, nil, common.NewCommandError(common.KindInvalidQuantum, common.ErrInvalidQuantum)
	}
	if !m.conv.SizeDivisible(o.Size) {
		return common.Order{}, nil, common.NewCommandError(common.KindInvalidQuantum, common.ErrInvalidQuantum)
	}
	if o.Size.LessThan(m.def.MinSize) {
		return common.Order{}, nil, common.NewCommandError(common.KindBelowMinSize, common.ErrBelowMinSize)
	}

	sizeLots := m.conv.SizeToLots(o.Size)
	var priceTicks uint64
	if o.Type == common.Limit {
		priceTicks = m.conv.PriceToTicks(o.Price)
	}

	now := time.Now().UTC()
	arrivedAt := o.CreatedAt
	if arrivedAt.IsZero() {
		arrivedAt = now
	}
	o.CreatedAt = arrivedAt

	taker := matcher.Taker{
		UserAddress:   o.UserAddress,
		Side:          o.Side,
		Type:          o.Type,
		PriceTicks:    priceTicks,
		RemainingLots: sizeLots,
	}

	m.book.Lock()
	result := matcher.Match(m.book, taker)

	trades := make([]common.Trade, 0, len(result.Fills))
	for _, fill := range result.Fills {
		trade := fillToTrade(o, fill, m.conv, now)
		trades = append(trades, trade)

		if fill.MakerFullyFilled {
			e.indexMu.Lock()
			delete(e.uuidToMarket, fill.MakerOrderID)
			e.indexMu.Unlock()
		}
		e.bus.Publish(events.TradeExecuted{Trade: trade})
	}

	filledLots := sizeLots - result.RemainingLots
	terminal := terminalOrder(o, filledLots, sizeLots, m.conv, now)

	switch {
	case result.RemainingLots == 0:
		// Fully filled, nothing to rest.
	case o.Type == common.Market:
		// Market residual is discarded per spec.md §4.3 edge case.
	case result.RemainingLots < m.conv.SizeToLots(m.def.MinSize):
		// Residual too small to rest; discarded silently per the resolved
		// open question (no extra event beyond the order's terminal state).
	default:
		resting := book.RestingOrder{
			ID:          o.ID,
			UserAddress: o.UserAddress,
			Side:        o.Side,
			PriceTicks:  priceTicks,
			TotalLots:   sizeLots,
			Remaining:   result.RemainingLots,
			CreatedAt:   arrivedAt,
		}
		m.book.Add(resting)
		e.indexMu.Lock()
		e.uuidToMarket[o.ID] = o.MarketID
		e.indexMu.Unlock()
	}

	// Published before releasing the book lock so a concurrent operation on
	// this same market cannot publish its own events ahead of this one's,
	// preserving per-market event order (spec.md §5 ordering guarantee 2).
	e.bus.Publish(events.OrderPlaced{Order: terminal})
	m.book.Unlock()

	if terminal.Status == common.Cancelled && len(trades) == 0 {
		return terminal, trades, common.NewCommandError(common.KindNoLiquidity, common.ErrNoLiquidity)
	}
	return terminal, trades, nil
}

func fillToTrade(taker common.Order, fill matcher.Fill, conv convert.Converter, now time.Time) common.Trade {
	price := conv.TicksToPrice(fill.PriceTicks)
	size := conv.LotsToSize(fill.Lots)

	t := common.Trade{
		ID:        uuid.New(),
		MarketID:  taker.MarketID,
		Price:     price,
		Size:      size,
		Side:      taker.Side,
		Timestamp: now,
	}
	if taker.Side == common.Buy {
		t.BuyerAddress = taker.UserAddress
		t.BuyerOrderID = taker.ID
		t.SellerAddress = fill.MakerUserAddr
		t.SellerOrderID = fill.MakerOrderID
	} else {
		t.SellerAddress = taker.UserAddress
		t.SellerOrderID = taker.ID
		t.BuyerAddress = fill.MakerUserAddr
		t.BuyerOrderID = fill.MakerOrderID
	}
	return t
}

// terminalOrder computes the taker's own terminal state per spec.md §4.3's
// edge-case rules. A Market order never rests: any fill makes it Filled,
// zero fills makes it Cancelled ("no liquidity"), regardless of how much of
// it was actually satisfied. A Limit order rests its residual when the
// residual clears min_size (status PartiallyFilled, or Pending if it rested
// untouched); a residual below min_size is discarded silently and the order
// is marked PartiallyFilled, or Cancelled if it never received a fill at
// all — though a fresh Limit order always has residual == size >= min_size
// at zero fills, so that last case cannot occur on placement.
func terminalOrder(o common.Order, filledLots, totalLots uint64, conv convert.Converter, now time.Time) common.Order {
	o.FilledSize = conv.LotsToSize(filledLots)
	o.UpdatedAt = now

	switch {
	case filledLots == totalLots:
		o.Status = common.Filled
	case o.Type == common.Market:
		if filledLots > 0 {
			o.Status = common.Filled
		} else {
			o.Status = common.Cancelled
		}
	case filledLots > 0:
		o.Status = common.PartiallyFilled
	default:
		o.Status = common.Pending
	}
	return o
}

// CancelOrder removes a resting order on behalf of its owner. Ownership
// mismatch is surfaced identically to an unknown id (OrderNotFound), per
// spec.md §7's anti-enumeration rule; the order itself is left untouched.
func (e *Engine) CancelOrder(orderID uuid.UUID, userAddress string) error {
	e.indexMu.RLock()
	marketID, ok := e.uuidToMarket[orderID]
	e.indexMu.RUnlock()
	if !ok {
		return common.NewCommandError(common.KindOrderNotFound, common.ErrOrderNotFound)
	}

	m, err := e.lookupMarket(marketID)
	if err != nil {
		return common.NewCommandError(common.KindOrderNotFound, common.ErrOrderNotFound)
	}

	m.book.Lock()
	resting, found := m.book.Get(orderID)
	if found && resting.UserAddress != userAddress {
		// Ownership is checked before removal so the order keeps its place
		// in its level's FIFO queue.
		found = false
	}
	if found {
		m.book.Remove(orderID)
		e.indexMu.Lock()
		delete(e.uuidToMarket, orderID)
		e.indexMu.Unlock()
		e.bus.Publish(events.OrderCancelled{OrderID: orderID, UserAddress: userAddress, MarketID_: marketID})
	}
	m.book.Unlock()

	if !found {
		return common.NewCommandError(common.KindOrderNotFound, common.ErrOrderNotFound)
	}
	return nil
}

// CancelAllOrders removes every resting order owned by user, scoped to one
// market if marketID is non-empty or across every market otherwise. It
// returns the cancelled orders with status Cancelled and the fill state they
// had when removed.
func (e *Engine) CancelAllOrders(userAddress, marketID string) ([]common.Order, error) {
	var targets []*market
	if marketID != "" {
		m, err := e.lookupMarket(marketID)
		if err != nil {
			return nil, err
		}
		targets = []*market{m}
	} else {
		e.marketsMu.RLock()
		for _, m := range e.markets {
			targets = append(targets, m)
		}
		e.marketsMu.RUnlock()
	}

	var cancelled []common.Order
	for _, m := range targets {
		m.book.Lock()
		ids := m.book.UserOrders(userAddress)
		for _, id := range ids {
			resting, ok := m.book.Remove(id)
			if !ok {
				continue
			}
			cancelled = append(cancelled, restingToOrder(resting, m.def.ID, m.conv))

			e.indexMu.Lock()
			delete(e.uuidToMarket, id)
			e.indexMu.Unlock()

			e.bus.Publish(events.OrderCancelled{OrderID: id, UserAddress: userAddress, MarketID_: m.def.ID})
		}
		m.book.Unlock()
	}

	for i := range cancelled {
		cancelled[i].Status = common.Cancelled
	}
	return cancelled, nil
}

// Snapshot returns a plain depth snapshot for one market (marketID != "") or
// every market.
func (e *Engine) Snapshot(marketID string) ([]analytics.Snapshot, error) {
	return e.snapshot(marketID, false, 0)
}

// EnrichedSnapshot returns a depth snapshot with derived stats, over the top
// depth levels of each side (depth<=0 means "all levels").
func (e *Engine) EnrichedSnapshot(marketID string, depth int) ([]analytics.Snapshot, error) {
	return e.snapshot(marketID, true, depth)
}

func (e *Engine) snapshot(marketID string, enriched bool, depth int) ([]analytics.Snapshot, error) {
	var targets []*market
	if marketID != "" {
		m, err := e.lookupMarket(marketID)
		if err != nil {
			return nil, err
		}
		targets = []*market{m}
	} else {
		e.marketsMu.RLock()
		for _, m := range e.markets {
			targets = append(targets, m)
		}
		e.marketsMu.RUnlock()
	}

	out := make([]analytics.Snapshot, 0, len(targets))
	for _, m := range targets {
		if enriched {
			out = append(out, analytics.Enriched(m.def.ID, m.book, m.conv, depth))
		} else {
			out = append(out, analytics.Plain(m.def.ID, m.book, m.conv))
		}
	}
	return out, nil
}
