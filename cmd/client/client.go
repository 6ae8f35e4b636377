package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fenrir/internal/netproto"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	owner := flag.String("owner", "", "User address (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel']")

	marketID := flag.String("market", "BTC/USDC", "Market id")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.String("price", "0", "Limit price, in atomic quote units")
	qtyStr := flag.String("qty", "0", "Quantity, in atomic base units (comma-separated for several orders)")

	cancelID := flag.String("id", "", "Order id to cancel")

	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	side := uint8(0)
	if strings.ToLower(*sideStr) == "sell" {
		side = 1
	}
	orderType := uint8(0)
	if strings.ToLower(*typeStr) == "market" {
		orderType = 1
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, qty := range parseQuantities(*qtyStr) {
			msg := netproto.PlaceOrderMsg{
				OrderID:     newIDBytes(),
				MarketID:    *marketID,
				UserAddress: *owner,
				Side:        side,
				Type:        orderType,
				Price:       *price,
				Size:        qty,
			}
			if err := sendPlaceOrder(conn, msg); err != nil {
				log.Printf("failed to place order (qty %s): %v", qty, err)
				continue
			}
			fmt.Printf("-> sent %s %s order: %s %s @ %s\n", *marketID, strings.ToUpper(*sideStr), *typeStr, qty, *price)
			time.Sleep(5 * time.Millisecond)
		}
	case "cancel":
		if *cancelID == "" {
			log.Fatal("error: -id is required for cancel")
		}
		id, err := uuid.Parse(*cancelID)
		if err != nil {
			log.Fatalf("invalid -id: %v", err)
		}
		msg := netproto.CancelOrderMsg{OrderID: [16]byte(id), UserAddress: *owner}
		if err := sendCancelOrder(conn, msg); err != nil {
			log.Printf("failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> sent cancel request for %s\n", *cancelID)
		}
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nlistening for reports... (press ctrl+c to exit)")
	select {}
}

func newIDBytes() [16]byte {
	id := uuid.New()
	var out [16]byte
	copy(out[:], id[:])
	return out
}

// parseQuantities splits a comma-separated string of atomic-unit sizes into
// individual order requests.
func parseQuantities(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			log.Printf("warning: invalid quantity %q, skipping", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

func sendPlaceOrder(conn net.Conn, msg netproto.PlaceOrderMsg) error {
	payload, err := netproto.EncodePlaceOrder(msg)
	if err != nil {
		return err
	}
	return netproto.WriteFrame(conn, uint8(netproto.MsgPlaceOrder), payload)
}

func sendCancelOrder(conn net.Conn, msg netproto.CancelOrderMsg) error {
	payload, err := netproto.EncodeCancelOrder(msg)
	if err != nil {
		return err
	}
	return netproto.WriteFrame(conn, uint8(netproto.MsgCancelOrder), payload)
}

// readReports continuously reads and prints report frames from the server.
func readReports(conn net.Conn) {
	for {
		typ, payload, err := netproto.ReadFrame(conn)
		if err != nil {
			log.Printf("connection lost: %v", err)
			os.Exit(0)
		}

		switch netproto.ReportType(typ) {
		case netproto.ReportTrade:
			report, err := netproto.DecodeTradeReport(payload)
			if err != nil {
				log.Printf("error decoding trade report: %v", err)
				continue
			}
			fmt.Printf("\n[trade] %s price=%s size=%s buyer=%s seller=%s\n",
				report.MarketID, report.Price, report.Size, report.BuyerAddress, report.SellerAddress)
		case netproto.ReportOrder:
			report, err := netproto.DecodeOrderReport(payload)
			if err != nil {
				log.Printf("error decoding order report: %v", err)
				continue
			}
			fmt.Printf("\n[order] %s id=%x status=%d filled=%s/%s\n",
				report.MarketID, report.OrderID, report.Status, report.FilledSize, report.Size)
		case netproto.ReportCancel:
			report, err := netproto.DecodeCancelReport(payload)
			if err != nil {
				log.Printf("error decoding cancel report: %v", err)
				continue
			}
			fmt.Printf("\n[cancel] %s id=%x\n", report.MarketID, report.OrderID)
		case netproto.ReportError:
			report, err := netproto.DecodeErrorReport(payload)
			if err != nil {
				log.Printf("error decoding error report: %v", err)
				continue
			}
			fmt.Printf("\n[error] %s: %s\n", report.Kind, report.Message)
		default:
			log.Printf("unknown report type: %d", typ)
		}
	}
}
