package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/common"
	"fenrir/internal/events"
)

const marketID = "BTC/USDC"

func amt(s string) common.Amount {
	a, err := common.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(events.NewBus())
	require.NoError(t, e.InitMarket(common.Market{
		ID:          marketID,
		BaseTicker:  "BTC",
		QuoteTicker: "USDC",
		TickSize:    amt("1000000"),
		LotSize:     amt("10000"),
		MinSize:     amt("10000"),
	}))
	return e
}

func limitOrder(user string, side common.Side, price, size string) common.Order {
	return common.Order{
		ID:          uuid.New(),
		UserAddress: user,
		MarketID:    marketID,
		Price:       amt(price),
		Size:        amt(size),
		Side:        side,
		Type:        common.Limit,
		CreatedAt:   time.Now().UTC(),
	}
}

// Scenario 1: full fill at maker price.
func TestPlaceOrder_FullFillAtMakerPrice(t *testing.T) {
	e := newTestEngine(t)

	seller, _, err := e.PlaceOrder(limitOrder("seller", common.Sell, "50000000000", "1000000"))
	require.NoError(t, err)
	assert.Equal(t, common.Pending, seller.Status)

	buyer, trades, err := e.PlaceOrder(limitOrder("buyer", common.Buy, "50000000000", "1000000"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, amt("50000000000").String(), trades[0].Price.String())
	assert.Equal(t, amt("1000000").String(), trades[0].Size.String())
	assert.Equal(t, common.Filled, buyer.Status)

	_, found := e.GetOrder(seller.ID)
	assert.False(t, found, "filled seller should no longer be resting")
}

// Scenario 2: partial fill of maker.
func TestPlaceOrder_PartialFillOfMaker(t *testing.T) {
	e := newTestEngine(t)

	seller, _, err := e.PlaceOrder(limitOrder("seller", common.Sell, "3000000000", "10000000"))
	require.NoError(t, err)

	buyer, trades, err := e.PlaceOrder(limitOrder("buyer", common.Buy, "3000000000", "3000000"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, amt("3000000").String(), trades[0].Size.String())
	assert.Equal(t, common.Filled, buyer.Status)

	resting, found := e.GetOrder(seller.ID)
	require.True(t, found)
	assert.Equal(t, common.PartiallyFilled, resting.Status)
	assert.Equal(t, amt("3000000").String(), resting.FilledSize.String())
}

// Scenario 3: price-time priority across levels.
func TestPlaceOrder_PriceTimePriorityAcrossLevels(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.PlaceOrder(limitOrder("s1", common.Sell, "100000000", "5000000"))
	require.NoError(t, err)
	_, _, err = e.PlaceOrder(limitOrder("s2", common.Sell, "95000000", "3000000"))
	require.NoError(t, err)

	buyer, trades, err := e.PlaceOrder(limitOrder("buyer", common.Buy, "105000000", "8000000"))
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, amt("95000000").String(), trades[0].Price.String())
	assert.Equal(t, amt("3000000").String(), trades[0].Size.String())
	assert.Equal(t, amt("100000000").String(), trades[1].Price.String())
	assert.Equal(t, amt("5000000").String(), trades[1].Size.String())
	assert.Equal(t, common.Filled, buyer.Status)
}

// Scenario 4: FIFO within a level.
func TestPlaceOrder_FIFOWithinLevel(t *testing.T) {
	e := newTestEngine(t)

	s1, _, err := e.PlaceOrder(limitOrder("s1", common.Sell, "40000000", "2000000"))
	require.NoError(t, err)
	s2, _, err := e.PlaceOrder(limitOrder("s2", common.Sell, "40000000", "2000000"))
	require.NoError(t, err)

	_, trades, err := e.PlaceOrder(limitOrder("buyer", common.Buy, "40000000", "2000000"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, s1.ID, trades[0].SellerOrderID)

	_, found := e.GetOrder(s2.ID)
	assert.True(t, found, "second seller untouched")
}

// Scenario 5: market order sweeps two levels.
func TestPlaceOrder_MarketOrderSweepsTwoLevels(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.PlaceOrder(limitOrder("s1", common.Sell, "1000000", "10000000"))
	require.NoError(t, err)
	_, _, err = e.PlaceOrder(limitOrder("s2", common.Sell, "1100000", "10000000"))
	require.NoError(t, err)

	taker := common.Order{
		ID:          uuid.New(),
		UserAddress: "taker",
		MarketID:    marketID,
		Size:        amt("15000000"),
		Side:        common.Buy,
		Type:        common.Market,
		CreatedAt:   time.Now().UTC(),
	}
	result, trades, err := e.PlaceOrder(taker)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, amt("10000000").String(), trades[0].Size.String())
	assert.Equal(t, amt("5000000").String(), trades[1].Size.String())
	assert.Equal(t, common.Filled, result.Status)
}

// Scenario 6: self-trade skipped.
func TestPlaceOrder_SelfTradeSkipped(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.PlaceOrder(limitOrder("u", common.Sell, "50000000000", "1000000"))
	require.NoError(t, err)

	buy, trades, err := e.PlaceOrder(limitOrder("u", common.Buy, "50000000000", "1000000"))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, common.Pending, buy.Status)

	_, found := e.GetOrder(buy.ID)
	assert.True(t, found, "buy should rest as a bid")
}

// Scenario 7: cancel by wrong user.
func TestCancelOrder_WrongUserYieldsOrderNotFound(t *testing.T) {
	e := newTestEngine(t)

	o, _, err := e.PlaceOrder(limitOrder("u1", common.Buy, "1000000", "10000"))
	require.NoError(t, err)

	err = e.CancelOrder(o.ID, "u2")
	assert.ErrorIs(t, err, common.ErrOrderNotFound)

	_, found := e.GetOrder(o.ID)
	assert.True(t, found, "order must still be resting after a failed cancel")
}

// L1: cancel idempotence after terminal.
func TestCancelOrder_AlreadyCancelledYieldsOrderNotFound(t *testing.T) {
	e := newTestEngine(t)

	o, _, err := e.PlaceOrder(limitOrder("u1", common.Buy, "1000000", "10000"))
	require.NoError(t, err)
	require.NoError(t, e.CancelOrder(o.ID, "u1"))

	err = e.CancelOrder(o.ID, "u1")
	assert.ErrorIs(t, err, common.ErrOrderNotFound)
}

// L2: add-then-cancel identity (no fills).
func TestCancelOrder_AddThenCancelRestoresEmptyBook(t *testing.T) {
	e := newTestEngine(t)

	o, _, err := e.PlaceOrder(limitOrder("u1", common.Buy, "1000000", "10000"))
	require.NoError(t, err)
	require.NoError(t, e.CancelOrder(o.ID, "u1"))

	snaps, err := e.Snapshot(marketID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Empty(t, snaps[0].Bids)
	assert.Empty(t, snaps[0].Asks)
}

func TestPlaceOrder_MarketOrderWithNoLiquidityIsCancelled(t *testing.T) {
	e := newTestEngine(t)

	taker := common.Order{
		ID:          uuid.New(),
		UserAddress: "taker",
		MarketID:    marketID,
		Size:        amt("10000"),
		Side:        common.Buy,
		Type:        common.Market,
		CreatedAt:   time.Now().UTC(),
	}
	result, trades, err := e.PlaceOrder(taker)
	assert.Empty(t, trades)
	assert.Equal(t, common.Cancelled, result.Status)
	assert.ErrorIs(t, err, common.ErrNoLiquidity)
}

func TestPlaceOrder_RejectsBelowMinSize(t *testing.T) {
	e := newTestEngine(t)

	// Size 0 is a multiple of lot_size, so it passes the quantum check and
	// is rejected by the min_size check alone.
	_, _, err := e.PlaceOrder(limitOrder("u1", common.Buy, "1000000", "0"))
	assert.ErrorIs(t, err, common.ErrBelowMinSize)
}

func TestPlaceOrder_RejectsUnknownMarket(t *testing.T) {
	e := newTestEngine(t)

	o := limitOrder("u1", common.Buy, "1000000", "10000")
	o.MarketID = "ETH/USDC"
	_, _, err := e.PlaceOrder(o)
	assert.ErrorIs(t, err, common.ErrMarketNotFound)
}

func TestCancelAllOrders_ScopedToOneMarket(t *testing.T) {
	e := newTestEngine(t)

	first, _, err := e.PlaceOrder(limitOrder("u1", common.Buy, "1000000", "10000"))
	require.NoError(t, err)
	second, _, err := e.PlaceOrder(limitOrder("u1", common.Buy, "2000000", "10000"))
	require.NoError(t, err)

	cancelled, err := e.CancelAllOrders("u1", marketID)
	require.NoError(t, err)
	assert.Len(t, cancelled, 2)

	_, found := e.GetOrder(first.ID)
	assert.False(t, found)
	_, found = e.GetOrder(second.ID)
	assert.False(t, found)
}
