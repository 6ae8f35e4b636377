// Package matcher implements price-time-priority matching: given a taker
// order and a book, it produces fills against the book's opposite side and
// applies them, leaving any residual quantity to the caller to rest or
// discard.
//
// Grounded on the teacher's internal/engine/orderbook.go Match/handleLimit/
// handleMarket (the level-at-a-time sweep shape), with the self-trade
// skip-and-continue rule added per spec.md §4.3 step 2, which the teacher
// never implemented.
package matcher

import (
	"github.com/google/uuid"

	"fenrir/internal/book"
	"fenrir/internal/common"
)

// Taker describes the incoming order in tick/lot space, as seen by the
// matcher — the book manager has already converted price/size before
// calling Match.
type Taker struct {
	UserAddress   string
	Side          common.Side
	Type          common.OrderType
	PriceTicks    uint64 // meaningless for Market takers
	RemainingLots uint64
}

// Fill is one maker consumed by a match, priced at the maker's resting
// price per spec.md's maker-price rule (L4).
type Fill struct {
	MakerOrderID     uuid.UUID
	MakerUserAddr    string
	PriceTicks       uint64
	Lots             uint64
	MakerFullyFilled bool
}

// Result is the outcome of one matching pass.
type Result struct {
	Fills         []Fill
	RemainingLots uint64 // quantity left unmatched (0 if fully filled)
}

// Match walks bk's opposite side in price-time priority order, applying the
// price gate and self-trade filter from spec.md §4.3, and calls
// bk.ApplyFill for every maker it consumes. bk's write lock must already be
// held by the caller — Match performs no locking of its own.
func Match(bk *book.Book, taker Taker) Result {
	remaining := taker.RemainingLots
	var fills []Fill

	if remaining == 0 {
		return Result{}
	}

	for _, maker := range bk.OppositeOrders(taker.Side) {
		if remaining == 0 {
			break
		}

		if !priceGate(taker, maker.PriceTicks) {
			// Sorted best-first: once one candidate fails the gate, no
			// later candidate on this side can pass it either.
			break
		}

		if maker.UserAddress == taker.UserAddress {
			// Self-trade prevention: skip, don't stop — the next resting
			// order (same or worse price) may still belong to someone else.
			continue
		}

		fillLots := min(remaining, maker.Remaining)
		_, removed, ok := bk.ApplyFill(maker.ID, fillLots)
		if !ok {
			// The maker vanished between the snapshot and now. Match holds
			// the book's write lock for its whole traversal so this cannot
			// happen in practice; skip defensively rather than panic.
			continue
		}

		fills = append(fills, Fill{
			MakerOrderID:     maker.ID,
			MakerUserAddr:    maker.UserAddress,
			PriceTicks:       maker.PriceTicks,
			Lots:             fillLots,
			MakerFullyFilled: removed,
		})
		remaining -= fillLots
	}

	return Result{Fills: fills, RemainingLots: remaining}
}

func priceGate(taker Taker, makerPriceTicks uint64) bool {
	if taker.Type == common.Market {
		return true
	}
	if taker.Side == common.Buy {
		return taker.PriceTicks >= makerPriceTicks
	}
	return taker.PriceTicks <= makerPriceTicks
}
