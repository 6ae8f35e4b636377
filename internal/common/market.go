package common

// Market is the immutable identity and quantum configuration of a trading
// pair. All three quanta (TickSize, LotSize, MinSize) must be positive;
// InitMarket is responsible for rejecting a misconfigured Market before it
// reaches a Book.
type Market struct {
	ID          string // e.g. "BTC/USDC"
	BaseTicker  string
	QuoteTicker string

	TickSize Amount // minimum price increment, atomic quote units
	LotSize  Amount // minimum size increment, atomic base units
	MinSize  Amount // smallest acceptable remaining size to rest, atomic base units

	MakerFeeBps int64
	TakerFeeBps int64
}

// Valid reports whether the market's quanta are usable by a Converter.
func (m Market) Valid() bool {
	return !m.TickSize.IsZero() && !m.LotSize.IsZero() && !m.MinSize.IsZero()
}
