package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fenrir/internal/common"
)

func amt(s string) common.Amount {
	a, err := common.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// BTC/USDC market config used throughout spec.md's scenarios.
var (
	btcTick = amt("1000000")
	btcLot  = amt("10000")
)

func TestPriceToTicks(t *testing.T) {
	c := New(btcTick, btcLot)

	assert.Equal(t, uint64(50_000), c.PriceToTicks(amt("50000000000")))
	assert.Equal(t, uint64(1), c.PriceToTicks(amt("1000000")))
	assert.Equal(t, uint64(10_000_000), c.PriceToTicks(amt("10000000000000")))
}

func TestTicksToPrice(t *testing.T) {
	c := New(btcTick, btcLot)

	assert.Equal(t, amt("50000000000"), c.TicksToPrice(50_000))
	assert.Equal(t, amt("1000000"), c.TicksToPrice(1))
}

func TestSizeToLots(t *testing.T) {
	c := New(btcTick, btcLot)

	assert.Equal(t, uint64(10_000), c.SizeToLots(amt("100000000")))
	assert.Equal(t, uint64(1), c.SizeToLots(amt("10000")))
	assert.Equal(t, uint64(1_000_000), c.SizeToLots(amt("10000000000")))
}

func TestLotsToSize(t *testing.T) {
	c := New(btcTick, btcLot)

	assert.Equal(t, amt("100000000"), c.LotsToSize(10_000))
	assert.Equal(t, amt("10000"), c.LotsToSize(1))
}

func TestRoundtripConversions(t *testing.T) {
	c := New(btcTick, btcLot)

	price := amt("50000000000")
	assert.Equal(t, price, c.TicksToPrice(c.PriceToTicks(price)))

	size := amt("100000000")
	assert.Equal(t, size, c.LotsToSize(c.SizeToLots(size)))
}

func TestDivisibility(t *testing.T) {
	c := New(btcTick, btcLot)

	assert.True(t, c.PriceDivisible(amt("50000000000")))
	assert.False(t, c.PriceDivisible(amt("50000001")))

	assert.True(t, c.SizeDivisible(amt("10000")))
	assert.False(t, c.SizeDivisible(amt("10001")))
}

func TestOverflowSafety(t *testing.T) {
	c := New(btcTick, btcLot)

	// $100,000 and 100 BTC: a direct 128-bit product would be enormous, but
	// scaled to ticks/lots the product stays well under u64::MAX.
	ticks := c.PriceToTicks(amt("10000000000000"))
	lots := c.SizeToLots(amt("10000000000"))

	assert.Equal(t, uint64(10_000_000), ticks)
	assert.Equal(t, uint64(1_000_000), lots)
	assert.Less(t, ticks*lots, uint64(1<<63))
}
