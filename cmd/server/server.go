package main

import (
	"context"
	"os/signal"
	"syscall"

	"fenrir/internal/common"
	"fenrir/internal/engine"
	"fenrir/internal/events"
	"fenrir/internal/netproto"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	bus := events.NewBus()
	eng := engine.New(bus)

	for _, def := range defaultMarkets() {
		if err := eng.InitMarket(def); err != nil {
			panic(err)
		}
	}

	srv := netproto.NewServer("0.0.0.0", 9001, eng, bus)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}

// defaultMarkets seeds the demonstration server with a couple of markets so
// a freshly started instance can place orders without an out-of-band admin
// call. A production deployment would drive InitMarket from configuration
// or an upstream listings feed instead.
func defaultMarkets() []common.Market {
	atomic := func(v uint64) common.Amount { return common.AmountFromUint64(v) }

	return []common.Market{
		{
			ID:          "BTC/USDC",
			BaseTicker:  "BTC",
			QuoteTicker: "USDC",
			TickSize:    atomic(1_000_000),  // 0.01 USDC, at 8 decimals
			LotSize:     atomic(10_000),     // 0.0001 BTC, at 8 decimals
			MinSize:     atomic(10_000),
			MakerFeeBps: 10,
			TakerFeeBps: 20,
		},
		{
			ID:          "ETH/USDC",
			BaseTicker:  "ETH",
			QuoteTicker: "USDC",
			TickSize:    atomic(10_000),
			LotSize:     atomic(1_000),
			MinSize:     atomic(1_000),
			MakerFeeBps: 10,
			TakerFeeBps: 20,
		},
	}
}
