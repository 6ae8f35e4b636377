package netproto

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uuidBytes() [16]byte {
	var b [16]byte
	copy(b[:], uuid.New()[:])
	return b
}

func TestPlaceOrderRoundTrip(t *testing.T) {
	msg := PlaceOrderMsg{
		OrderID:     uuidBytes(),
		MarketID:    "BTC/USDC",
		UserAddress: "0xabc",
		Side:        0,
		Type:        1,
		Price:       "123456000000",
		Size:        "500000",
	}
	payload, err := EncodePlaceOrder(msg)
	require.NoError(t, err)
	got, err := DecodePlaceOrder(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestCancelOrderRoundTrip(t *testing.T) {
	msg := CancelOrderMsg{OrderID: uuidBytes(), UserAddress: "0xdef"}
	payload, err := EncodeCancelOrder(msg)
	require.NoError(t, err)
	got, err := DecodeCancelOrder(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestTradeReportRoundTrip(t *testing.T) {
	msg := TradeReport{
		TradeID:            uuidBytes(),
		MarketID:           "BTC/USDC",
		BuyerAddress:       "0xbuyer",
		SellerAddress:      "0xseller",
		BuyerOrderID:       uuidBytes(),
		SellerOrderID:      uuidBytes(),
		Price:              "100000000",
		Size:               "10000",
		Side:               1,
		TimestampUnixMicro: 1735689600000000,
	}
	payload, err := EncodeTradeReport(msg)
	require.NoError(t, err)
	got, err := DecodeTradeReport(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestOrderReportRoundTrip(t *testing.T) {
	msg := OrderReport{
		OrderID:            uuidBytes(),
		MarketID:           "ETH/USDC",
		UserAddress:        "0xuser",
		Side:               0,
		Type:               0,
		Status:             2,
		Price:              "2000000000",
		Size:               "1000000",
		FilledSize:         "500000",
		CreatedAtUnixMicro: 1735689600000000,
		UpdatedAtUnixMicro: 1735689601000000,
	}
	payload, err := EncodeOrderReport(msg)
	require.NoError(t, err)
	got, err := DecodeOrderReport(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestCancelReportRoundTrip(t *testing.T) {
	msg := CancelReport{OrderID: uuidBytes(), UserAddress: "0xuser", MarketID: "BTC/USDC"}
	payload, err := EncodeCancelReport(msg)
	require.NoError(t, err)
	got, err := DecodeCancelReport(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestErrorReportRoundTrip(t *testing.T) {
	msg := ErrorReport{Kind: "OrderNotFound", Message: "order does not exist"}
	payload, err := EncodeErrorReport(msg)
	require.NoError(t, err)
	got, err := DecodeErrorReport(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestWriteReadFrameRoundTrip(t *testing.T) {
	msg := PlaceOrderMsg{OrderID: uuidBytes(), MarketID: "BTC/USDC", UserAddress: "0xabc", Price: "1", Size: "1"}
	payload, err := EncodePlaceOrder(msg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, uint8(MsgPlaceOrder), payload))

	typ, got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(MsgPlaceOrder), typ)
	assert.Equal(t, payload, got)
}

func TestReadFrameMultipleFramesOnSharedStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, uint8(MsgPlaceOrder), []byte("first")))
	require.NoError(t, WriteFrame(&buf, uint8(MsgCancelOrder), []byte("second")))

	typ1, p1, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(MsgPlaceOrder), typ1)
	assert.Equal(t, []byte("first"), p1)

	typ2, p2, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(MsgCancelOrder), typ2)
	assert.Equal(t, []byte("second"), p2)
}

func TestDecodeTruncatedFrameErrors(t *testing.T) {
	msg := PlaceOrderMsg{OrderID: uuidBytes(), MarketID: "BTC/USDC", UserAddress: "0xabc", Price: "1", Size: "1"}
	payload, err := EncodePlaceOrder(msg)
	require.NoError(t, err)

	_, err = DecodePlaceOrder(payload[:len(payload)-3])
	assert.ErrorIs(t, err, ErrFrameTooShort)
}

func TestEncodeStringFieldTooLongErrors(t *testing.T) {
	msg := CancelOrderMsg{OrderID: uuidBytes(), UserAddress: string(make([]byte, 256))}
	_, err := EncodeCancelOrder(msg)
	assert.ErrorIs(t, err, ErrFieldTooLong)
}
