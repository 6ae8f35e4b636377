// Package analytics computes plain and enriched orderbook snapshots from a
// market's book. All accumulation happens in tick/lot space over native
// uint64/int64; conversion back to atomic-unit Amounts happens only at the
// boundary, and decimal.Decimal is used solely to hold the derived ratio
// fields (spread_bps, vwap, imbalance).
//
// Grounded on original_source's book_manager_adapter.rs enriched_snapshots
// and OrderbookStats (the Option-typed stats fields, and the ticks_to_price/
// lots_to_size boundary conversion) — the teacher had no analytics layer.
package analytics

import (
	"github.com/shopspring/decimal"

	"fenrir/internal/book"
	"fenrir/internal/common"
	"fenrir/internal/convert"
)

// PriceLevel is one {price, size} pair in atomic units, as returned in a
// plain snapshot.
type PriceLevel struct {
	Price common.Amount
	Size  common.Amount
}

// Snapshot is a plain depth snapshot: resting volume by price level on each
// side, bids descending and asks ascending, atomic units. Empty levels are
// never included.
type Snapshot struct {
	MarketID string
	Bids     []PriceLevel
	Asks     []PriceLevel
	Stats    *Stats // nil for a plain Snapshot; present for an enriched one
}

// Stats holds the derived fields of an enriched snapshot. Every field is a
// pointer/nil-able quantity where the underlying book side may be empty, per
// spec.md's "Option-typed" rule — a one-sided or empty book is a fully valid
// market state, not an error.
type Stats struct {
	Spread    *common.Amount
	SpreadBps *decimal.Decimal
	VWAPBid   *decimal.Decimal
	VWAPAsk   *decimal.Decimal
	MidPrice  *common.Amount
	Imbalance *decimal.Decimal
	BidDepth  common.Amount
	AskDepth  common.Amount
}

// Plain builds a depth-only snapshot of every resting level on both sides.
func Plain(marketID string, bk *book.Book, conv convert.Converter) Snapshot {
	bk.RLock()
	defer bk.RUnlock()

	return Snapshot{
		MarketID: marketID,
		Bids:     levelsToAmounts(bk.Levels(common.Buy), conv),
		Asks:     levelsToAmounts(bk.Levels(common.Sell), conv),
	}
}

// Enriched builds a snapshot with derived stats over the top depth levels of
// each side. depth=0 means "all levels".
func Enriched(marketID string, bk *book.Book, conv convert.Converter, depth int) Snapshot {
	bk.RLock()
	defer bk.RUnlock()

	bidLevels := bk.Levels(common.Buy)
	askLevels := bk.Levels(common.Sell)
	if depth > 0 {
		bidLevels = truncate(bidLevels, depth)
		askLevels = truncate(askLevels, depth)
	}

	snap := Snapshot{
		MarketID: marketID,
		Bids:     levelsToAmounts(bidLevels, conv),
		Asks:     levelsToAmounts(askLevels, conv),
	}
	snap.Stats = computeStats(bidLevels, askLevels, conv)
	return snap
}

func truncate(levels []book.Level, depth int) []book.Level {
	if len(levels) <= depth {
		return levels
	}
	return levels[:depth]
}

func levelsToAmounts(levels []book.Level, conv convert.Converter) []PriceLevel {
	out := make([]PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, PriceLevel{
			Price: conv.TicksToPrice(lvl.PriceTicks),
			Size:  conv.LotsToSize(lvl.Remaining),
		})
	}
	return out
}

func computeStats(bids, asks []book.Level, conv convert.Converter) *Stats {
	s := &Stats{}

	var bidDepthLots, askDepthLots uint64
	var bidNotional, askNotional uint64 // Σ(price_ticks * lots), safe: ticks/lots are u64, depth is bounded
	for _, lvl := range bids {
		bidDepthLots += lvl.Remaining
		bidNotional += lvl.PriceTicks * lvl.Remaining
	}
	for _, lvl := range asks {
		askDepthLots += lvl.Remaining
		askNotional += lvl.PriceTicks * lvl.Remaining
	}

	s.BidDepth = conv.LotsToSize(bidDepthLots)
	s.AskDepth = conv.LotsToSize(askDepthLots)

	totalDepth := bidDepthLots + askDepthLots
	if totalDepth == 0 {
		zero := decimal.Zero
		s.Imbalance = &zero
	} else {
		imbalance := decimal.NewFromInt(int64(bidDepthLots) - int64(askDepthLots)).
			Div(decimal.NewFromInt(int64(totalDepth)))
		s.Imbalance = &imbalance
	}

	// bidNotional/askNotional and depth are both tick-space quantities, so
	// their ratio is an average price in ticks, not atomic quote units; it
	// must be scaled by tick_size before it means anything to a caller, the
	// same boundary conversion Spread/MidPrice apply below.
	tickSize, _ := decimal.NewFromString(conv.TickSize().String())
	if bidDepthLots > 0 {
		vwapTicks := decimal.NewFromInt(int64(bidNotional)).Div(decimal.NewFromInt(int64(bidDepthLots)))
		vwap := vwapTicks.Mul(tickSize)
		s.VWAPBid = &vwap
	}
	if askDepthLots > 0 {
		vwapTicks := decimal.NewFromInt(int64(askNotional)).Div(decimal.NewFromInt(int64(askDepthLots)))
		vwap := vwapTicks.Mul(tickSize)
		s.VWAPAsk = &vwap
	}

	if len(bids) == 0 || len(asks) == 0 {
		return s
	}

	bestBidTicks := bids[0].PriceTicks
	bestAskTicks := asks[0].PriceTicks

	spreadTicks := bestAskTicks - bestBidTicks
	spread := conv.TicksToPrice(spreadTicks)
	s.Spread = &spread

	midTicks := (bestBidTicks + bestAskTicks) / 2
	mid := conv.TicksToPrice(midTicks)
	s.MidPrice = &mid

	if midTicks > 0 {
		bps := decimal.NewFromInt(10_000).
			Mul(decimal.NewFromInt(int64(spreadTicks))).
			Div(decimal.NewFromInt(int64(midTicks)))
		s.SpreadBps = &bps
	}

	return s
}
