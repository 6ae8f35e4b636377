package netproto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteFrame writes a length-prefixed frame: a 4-byte big-endian length
// followed by typ and payload.
func WriteFrame(w io.Writer, typ uint8, payload []byte) error {
	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)+1))
	header[4] = typ
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("netproto: write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("netproto: write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one length-prefixed frame, returning its type tag and
// payload.
func ReadFrame(r io.Reader) (typ uint8, payload []byte, err error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return 0, nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf)
	if n < 1 {
		return 0, nil, ErrFrameTooShort
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("netproto: read frame body: %w", err)
	}
	return body[0], body[1:], nil
}

type byteWriter struct {
	buf []byte
}

func (w *byteWriter) putString(s string) error {
	if len(s) > 255 {
		return ErrFieldTooLong
	}
	w.buf = append(w.buf, uint8(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

func (w *byteWriter) putBytes16(b [16]byte) { w.buf = append(w.buf, b[:]...) }
func (w *byteWriter) putUint8(v uint8)      { w.buf = append(w.buf, v) }

func (w *byteWriter) putInt64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	w.buf = append(w.buf, tmp[:]...)
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) string() (string, error) {
	if r.pos >= len(r.buf) {
		return "", ErrFrameTooShort
	}
	n := int(r.buf[r.pos])
	r.pos++
	if r.pos+n > len(r.buf) {
		return "", ErrFrameTooShort
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

func (r *byteReader) bytes16() ([16]byte, error) {
	var out [16]byte
	if r.pos+16 > len(r.buf) {
		return out, ErrFrameTooShort
	}
	copy(out[:], r.buf[r.pos:r.pos+16])
	r.pos += 16
	return out, nil
}

func (r *byteReader) uint8() (uint8, error) {
	if r.pos >= len(r.buf) {
		return 0, ErrFrameTooShort
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) int64() (int64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, ErrFrameTooShort
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8]))
	r.pos += 8
	return v, nil
}

// EncodePlaceOrder serializes a PlaceOrderMsg payload.
func EncodePlaceOrder(m PlaceOrderMsg) ([]byte, error) {
	w := &byteWriter{}
	w.putBytes16(m.OrderID)
	if err := w.putString(m.MarketID); err != nil {
		return nil, err
	}
	if err := w.putString(m.UserAddress); err != nil {
		return nil, err
	}
	w.putUint8(m.Side)
	w.putUint8(m.Type)
	if err := w.putString(m.Price); err != nil {
		return nil, err
	}
	if err := w.putString(m.Size); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// DecodePlaceOrder parses a PlaceOrderMsg payload.
func DecodePlaceOrder(payload []byte) (PlaceOrderMsg, error) {
	r := &byteReader{buf: payload}
	var m PlaceOrderMsg
	var err error
	if m.OrderID, err = r.bytes16(); err != nil {
		return m, err
	}
	if m.MarketID, err = r.string(); err != nil {
		return m, err
	}
	if m.UserAddress, err = r.string(); err != nil {
		return m, err
	}
	if m.Side, err = r.uint8(); err != nil {
		return m, err
	}
	if m.Type, err = r.uint8(); err != nil {
		return m, err
	}
	if m.Price, err = r.string(); err != nil {
		return m, err
	}
	if m.Size, err = r.string(); err != nil {
		return m, err
	}
	return m, nil
}

// EncodeCancelOrder serializes a CancelOrderMsg payload.
func EncodeCancelOrder(m CancelOrderMsg) ([]byte, error) {
	w := &byteWriter{}
	w.putBytes16(m.OrderID)
	if err := w.putString(m.UserAddress); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// DecodeCancelOrder parses a CancelOrderMsg payload.
func DecodeCancelOrder(payload []byte) (CancelOrderMsg, error) {
	r := &byteReader{buf: payload}
	var m CancelOrderMsg
	var err error
	if m.OrderID, err = r.bytes16(); err != nil {
		return m, err
	}
	if m.UserAddress, err = r.string(); err != nil {
		return m, err
	}
	return m, nil
}

// EncodeTradeReport serializes a TradeReport payload.
func EncodeTradeReport(m TradeReport) ([]byte, error) {
	w := &byteWriter{}
	w.putBytes16(m.TradeID)
	if err := w.putString(m.MarketID); err != nil {
		return nil, err
	}
	if err := w.putString(m.BuyerAddress); err != nil {
		return nil, err
	}
	if err := w.putString(m.SellerAddress); err != nil {
		return nil, err
	}
	w.putBytes16(m.BuyerOrderID)
	w.putBytes16(m.SellerOrderID)
	if err := w.putString(m.Price); err != nil {
		return nil, err
	}
	if err := w.putString(m.Size); err != nil {
		return nil, err
	}
	w.putUint8(m.Side)
	w.putInt64(m.TimestampUnixMicro)
	return w.buf, nil
}

// DecodeTradeReport parses a TradeReport payload.
func DecodeTradeReport(payload []byte) (TradeReport, error) {
	r := &byteReader{buf: payload}
	var m TradeReport
	var err error
	if m.TradeID, err = r.bytes16(); err != nil {
		return m, err
	}
	if m.MarketID, err = r.string(); err != nil {
		return m, err
	}
	if m.BuyerAddress, err = r.string(); err != nil {
		return m, err
	}
	if m.SellerAddress, err = r.string(); err != nil {
		return m, err
	}
	if m.BuyerOrderID, err = r.bytes16(); err != nil {
		return m, err
	}
	if m.SellerOrderID, err = r.bytes16(); err != nil {
		return m, err
	}
	if m.Price, err = r.string(); err != nil {
		return m, err
	}
	if m.Size, err = r.string(); err != nil {
		return m, err
	}
	if m.Side, err = r.uint8(); err != nil {
		return m, err
	}
	if m.TimestampUnixMicro, err = r.int64(); err != nil {
		return m, err
	}
	return m, nil
}

// EncodeOrderReport serializes an OrderReport payload.
func EncodeOrderReport(m OrderReport) ([]byte, error) {
	w := &byteWriter{}
	w.putBytes16(m.OrderID)
	if err := w.putString(m.MarketID); err != nil {
		return nil, err
	}
	if err := w.putString(m.UserAddress); err != nil {
		return nil, err
	}
	w.putUint8(m.Side)
	w.putUint8(m.Type)
	w.putUint8(m.Status)
	if err := w.putString(m.Price); err != nil {
		return nil, err
	}
	if err := w.putString(m.Size); err != nil {
		return nil, err
	}
	if err := w.putString(m.FilledSize); err != nil {
		return nil, err
	}
	w.putInt64(m.CreatedAtUnixMicro)
	w.putInt64(m.UpdatedAtUnixMicro)
	return w.buf, nil
}

// DecodeOrderReport parses an OrderReport payload.
func DecodeOrderReport(payload []byte) (OrderReport, error) {
	r := &byteReader{buf: payload}
	var m OrderReport
	var err error
	if m.OrderID, err = r.bytes16(); err != nil {
		return m, err
	}
	if m.MarketID, err = r.string(); err != nil {
		return m, err
	}
	if m.UserAddress, err = r.string(); err != nil {
		return m, err
	}
	if m.Side, err = r.uint8(); err != nil {
		return m, err
	}
	if m.Type, err = r.uint8(); err != nil {
		return m, err
	}
	if m.Status, err = r.uint8(); err != nil {
		return m, err
	}
	if m.Price, err = r.string(); err != nil {
		return m, err
	}
	if m.Size, err = r.string(); err != nil {
		return m, err
	}
	if m.FilledSize, err = r.string(); err != nil {
		return m, err
	}
	if m.CreatedAtUnixMicro, err = r.int64(); err != nil {
		return m, err
	}
	if m.UpdatedAtUnixMicro, err = r.int64(); err != nil {
		return m, err
	}
	return m, nil
}

// EncodeCancelReport serializes a CancelReport payload.
func EncodeCancelReport(m CancelReport) ([]byte, error) {
	w := &byteWriter{}
	w.putBytes16(m.OrderID)
	if err := w.putString(m.UserAddress); err != nil {
		return nil, err
	}
	if err := w.putString(m.MarketID); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// DecodeCancelReport parses a CancelReport payload.
func DecodeCancelReport(payload []byte) (CancelReport, error) {
	r := &byteReader{buf: payload}
	var m CancelReport
	var err error
	if m.OrderID, err = r.bytes16(); err != nil {
		return m, err
	}
	if m.UserAddress, err = r.string(); err != nil {
		return m, err
	}
	if m.MarketID, err = r.string(); err != nil {
		return m, err
	}
	return m, nil
}

// EncodeErrorReport serializes an ErrorReport payload.
func EncodeErrorReport(m ErrorReport) ([]byte, error) {
	w := &byteWriter{}
	if err := w.putString(m.Kind); err != nil {
		return nil, err
	}
	if err := w.putString(m.Message); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// DecodeErrorReport parses an ErrorReport payload.
func DecodeErrorReport(payload []byte) (ErrorReport, error) {
	r := &byteReader{buf: payload}
	var m ErrorReport
	var err error
	if m.Kind, err = r.string(); err != nil {
		return m, err
	}
	if m.Message, err = r.string(); err != nil {
		return m, err
	}
	return m, nil
}
