// Package convert implements the scale converter: lossless conversion
// between a market's 128-bit atomic-unit prices/sizes and the 64-bit
// tick/lot space the book and matcher operate in.
//
// Grounded on original_source's price_converter.rs, the spec's own stated
// ancestor for this component.
package convert

import "fenrir/internal/common"

// Converter is parameterized by a single market's (tick_size, lot_size).
// It performs no validation itself — the caller (the book manager, at the
// command-port boundary) is responsible for rejecting a price or size that
// is not an exact multiple of its quantum before calling PriceToTicks or
// SizeToLots.
type Converter struct {
	tickSize common.Amount
	lotSize  common.Amount
}

// New builds a Converter for a market's tick_size and lot_size. Both must be
// positive; New does not itself check this — common.Market.Valid should be
// checked at InitMarket time instead.
func New(tickSize, lotSize common.Amount) Converter {
	return Converter{tickSize: tickSize, lotSize: lotSize}
}

// PriceToTicks truncates an atomic-unit price down to ticks. The caller must
// have already validated that price is an exact multiple of tick_size.
func (c Converter) PriceToTicks(price common.Amount) uint64 {
	q, _ := price.DivMod(c.tickSize)
	return q.Uint64()
}

// TicksToPrice scales a tick count back up to an atomic-unit price.
func (c Converter) TicksToPrice(ticks uint64) common.Amount {
	return common.AmountFromUint64(ticks).Mul(c.tickSize)
}

// SizeToLots truncates an atomic-unit size down to lots. The caller must
// have already validated that size is an exact multiple of lot_size.
func (c Converter) SizeToLots(size common.Amount) uint64 {
	q, _ := size.DivMod(c.lotSize)
	return q.Uint64()
}

// LotsToSize scales a lot count back up to an atomic-unit size.
func (c Converter) LotsToSize(lots uint64) common.Amount {
	return common.AmountFromUint64(lots).Mul(c.lotSize)
}

// PriceDivisible reports whether price is an exact multiple of tick_size.
// This is the validation the Converter itself does not do (§4.1); the book
// manager calls it at the command-port boundary before converting.
func (c Converter) PriceDivisible(price common.Amount) bool {
	return price.DivisibleBy(c.tickSize)
}

// SizeDivisible reports whether size is an exact multiple of lot_size.
func (c Converter) SizeDivisible(size common.Amount) bool {
	return size.DivisibleBy(c.lotSize)
}

// TickSize returns the market's price quantum.
func (c Converter) TickSize() common.Amount { return c.tickSize }

// LotSize returns the market's size quantum.
func (c Converter) LotSize() common.Amount { return c.lotSize }
