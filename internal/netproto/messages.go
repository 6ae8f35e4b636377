// Package netproto implements the binary wire protocol used by the
// demonstration TCP server and client to carry commands into the engine and
// relay events back out. The core itself never serializes (spec.md §6
// leaves serialization to "the subscriber's concern") — netproto is that
// concern, kept out of internal/engine entirely.
//
// Grounded on the teacher's internal/net/messages.go: the same fixed-header-
// plus-length-prefixed-strings binary framing style (CounterpartyLen/
// ErrStrLen fields become a 1-byte length written before each string field
// here), regenerated for 16-byte uuid order ids and decimal-string Amounts
// instead of float64 prices
// and raw 16-byte-truncated string uuids. Every frame is additionally
// prefixed with its own length, which the teacher's fixed single-Read
// protocol did not do — TCP gives no message-boundary guarantee, and a
// matching engine is the wrong place to tolerate a split read silently
// corrupting a price field.
package netproto

import "errors"

// MessageType tags a command frame sent from client to server.
type MessageType uint8

const (
	MsgPlaceOrder MessageType = iota
	MsgCancelOrder
)

// ReportType tags an event frame sent from server to client.
type ReportType uint8

const (
	ReportTrade ReportType = iota
	ReportOrder
	ReportCancel
	ReportError
)

var (
	ErrFrameTooShort  = errors.New("netproto: frame shorter than its header")
	ErrUnknownMessage = errors.New("netproto: unknown message type")
	ErrUnknownReport  = errors.New("netproto: unknown report type")
	ErrFieldTooLong   = errors.New("netproto: variable-length field exceeds 255 bytes")
)

// PlaceOrderMsg is the wire form of a PlaceOrder command. Price/Size travel
// as decimal strings in atomic units, per spec.md §6's wire contract.
type PlaceOrderMsg struct {
	OrderID     [16]byte
	MarketID    string
	UserAddress string
	Side        uint8 // 0 = buy, 1 = sell
	Type        uint8 // 0 = limit, 1 = market
	Price       string
	Size        string
}

// CancelOrderMsg is the wire form of a CancelOrder command.
type CancelOrderMsg struct {
	OrderID     [16]byte
	UserAddress string
}

// TradeReport is the wire form of a TradeExecuted event.
type TradeReport struct {
	TradeID            [16]byte
	MarketID           string
	BuyerAddress       string
	SellerAddress      string
	BuyerOrderID       [16]byte
	SellerOrderID      [16]byte
	Price              string
	Size               string
	Side               uint8
	TimestampUnixMicro int64
}

// OrderReport is the wire form of an OrderPlaced event.
type OrderReport struct {
	OrderID            [16]byte
	MarketID           string
	UserAddress        string
	Side               uint8
	Type               uint8
	Status             uint8
	Price              string
	Size               string
	FilledSize         string
	CreatedAtUnixMicro int64
	UpdatedAtUnixMicro int64
}

// CancelReport is the wire form of an OrderCancelled event.
type CancelReport struct {
	OrderID     [16]byte
	UserAddress string
	MarketID    string
}

// ErrorReport carries a structured failure back to a client: Kind is the
// ErrorKind.String() token (spec.md §7) for a CommandError and "DecodeError"
// for any other failure, Message is the error text.
type ErrorReport struct {
	Kind    string
	Message string
}
