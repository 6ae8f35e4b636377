package netproto

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/common"
	"fenrir/internal/engine"
	"fenrir/internal/events"
	"fenrir/internal/workerpool"
)

const (
	defaultPoolSize  = 64
	defaultPoolQueue = 256
)

// ErrImproperConversion is returned when a workerpool task is not a net.Conn.
var ErrImproperConversion = errors.New("netproto: improper task conversion")

// clientMessage links one decoded frame to the connection it arrived on.
type clientMessage struct {
	conn    net.Conn
	typ     uint8
	payload []byte
}

// Server is a TCP front end over an engine.Engine: it decodes netproto
// frames into commands, dispatches them into the engine, and relays the
// engine's events.Bus back out to the connections of the users they concern.
//
// Grounded on the teacher's internal/net/server.go Server (ClientSession
// map, clientMessages channel, sessionHandler/handleMessage split), adapted
// from its AssetType-keyed single-engine-call surface to the open market_id
// Engine, from its fixed binary header to netproto's length-prefixed
// frames, and from its conn.LocalAddr()-keyed session map (a bug: that is
// the server's own local address, not a per-client identity) to a map keyed
// by the UserAddress carried on each decoded command.
type Server struct {
	address string
	port    int

	engine *engine.Engine
	bus    *events.Bus
	pool   *workerpool.Pool

	cancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]net.Conn

	inbox chan clientMessage
}

// NewServer builds a Server that will listen on address:port once Run is
// called, dispatching decoded commands into eng and relaying bus events
// back to clients.
func NewServer(address string, port int, eng *engine.Engine, bus *events.Bus) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   eng,
		bus:      bus,
		pool:     workerpool.New(defaultPoolSize, defaultPoolQueue),
		sessions: make(map[string]net.Conn),
		inbox:    make(chan clientMessage, 1),
	}
}

// Shutdown stops a running server.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Run starts the listener and blocks until ctx is cancelled or the listener
// fails.
func (s *Server) Run(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("netproto: unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error().Err(err).Msg("netproto: unable to close listener")
		}
	}()
	// Closing the listener on cancellation unblocks a pending Accept.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	sub := s.bus.Subscribe(0)
	defer sub.Unsubscribe()

	t.Go(func() error {
		s.pool.Run(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.dispatchLoop(t)
	})
	t.Go(func() error {
		return s.reportLoop(t, sub)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("netproto: server running")
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				log.Error().Err(err).Msg("netproto: error accepting client")
				continue
			}
			s.pool.AddTask(conn)
		}
	}
}

// handleConnection owns one connection's lifetime: it reads frames until
// the connection closes or t starts dying, handing each off to dispatchLoop.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Str("remote", conn.RemoteAddr().String()).Err(err).Msg("netproto: error closing connection")
		}
		s.dropSession(conn)
	}()

	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}
		typ, payload, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("netproto: error reading frame")
			}
			return nil
		}
		select {
		case s.inbox <- clientMessage{conn: conn, typ: typ, payload: payload}:
		case <-t.Dying():
			return nil
		}
	}
}

// dispatchLoop is the single goroutine that turns decoded frames into
// engine calls, keeping command handling off the per-connection readers.
func (s *Server) dispatchLoop(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.inbox:
			s.handleMessage(msg)
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) {
	switch MessageType(msg.typ) {
	case MsgPlaceOrder:
		s.handlePlaceOrder(msg)
	case MsgCancelOrder:
		s.handleCancelOrder(msg)
	default:
		log.Error().Int("message_type", int(msg.typ)).Msg("netproto: unknown message type")
		s.replyError(msg.conn, ErrUnknownMessage)
	}
}

func (s *Server) handlePlaceOrder(msg clientMessage) {
	wire, err := DecodePlaceOrder(msg.payload)
	if err != nil {
		s.replyError(msg.conn, err)
		return
	}
	s.registerSession(wire.UserAddress, msg.conn)

	price, err := common.ParseAmount(wire.Price)
	if err != nil {
		s.replyError(msg.conn, err)
		return
	}
	size, err := common.ParseAmount(wire.Size)
	if err != nil {
		s.replyError(msg.conn, err)
		return
	}

	order := common.Order{
		ID:          uuid.UUID(wire.OrderID),
		UserAddress: wire.UserAddress,
		MarketID:    wire.MarketID,
		Price:       price,
		Size:        size,
		Side:        common.Side(wire.Side),
		Type:        common.OrderType(wire.Type),
	}

	_, _, err = s.engine.PlaceOrder(order)
	if err == nil {
		return
	}
	var cmdErr *common.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Kind == common.KindNoLiquidity {
		// Not a rejection: the order's terminal state and any partial fills
		// already went out over the event bus.
		return
	}
	s.replyError(msg.conn, err)
}

func (s *Server) handleCancelOrder(msg clientMessage) {
	wire, err := DecodeCancelOrder(msg.payload)
	if err != nil {
		s.replyError(msg.conn, err)
		return
	}
	s.registerSession(wire.UserAddress, msg.conn)

	if err := s.engine.CancelOrder(uuid.UUID(wire.OrderID), wire.UserAddress); err != nil {
		s.replyError(msg.conn, err)
	}
}

// reportLoop relays bus events to the connections of the users they concern.
func (s *Server) reportLoop(t *tomb.Tomb, sub *events.Subscription) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			s.relay(ev)
		}
	}
}

func (s *Server) relay(ev events.Event) {
	switch e := ev.(type) {
	case events.TradeExecuted:
		s.relayTrade(e.Trade)
	case events.OrderPlaced:
		s.relayOrder(e.Order)
	case events.OrderCancelled:
		s.relayCancel(e)
	}
}

func (s *Server) relayTrade(trade common.Trade) {
	report := TradeReport{
		TradeID:            [16]byte(trade.ID),
		MarketID:           trade.MarketID,
		BuyerAddress:       trade.BuyerAddress,
		SellerAddress:      trade.SellerAddress,
		BuyerOrderID:       [16]byte(trade.BuyerOrderID),
		SellerOrderID:      [16]byte(trade.SellerOrderID),
		Price:              trade.Price.String(),
		Size:               trade.Size.String(),
		Side:               uint8(trade.Side),
		TimestampUnixMicro: trade.Timestamp.UnixMicro(),
	}
	payload, err := EncodeTradeReport(report)
	if err != nil {
		log.Error().Err(err).Msg("netproto: unable to encode trade report")
		return
	}
	s.sendTo(trade.BuyerAddress, uint8(ReportTrade), payload)
	s.sendTo(trade.SellerAddress, uint8(ReportTrade), payload)
}

func (s *Server) relayOrder(order common.Order) {
	report := OrderReport{
		OrderID:            [16]byte(order.ID),
		MarketID:           order.MarketID,
		UserAddress:        order.UserAddress,
		Side:               uint8(order.Side),
		Type:               uint8(order.Type),
		Status:             uint8(order.Status),
		Price:              order.Price.String(),
		Size:               order.Size.String(),
		FilledSize:         order.FilledSize.String(),
		CreatedAtUnixMicro: order.CreatedAt.UnixMicro(),
		UpdatedAtUnixMicro: order.UpdatedAt.UnixMicro(),
	}
	payload, err := EncodeOrderReport(report)
	if err != nil {
		log.Error().Err(err).Msg("netproto: unable to encode order report")
		return
	}
	s.sendTo(order.UserAddress, uint8(ReportOrder), payload)
}

func (s *Server) relayCancel(e events.OrderCancelled) {
	report := CancelReport{
		OrderID:     [16]byte(e.OrderID),
		UserAddress: e.UserAddress,
		MarketID:    e.MarketID(),
	}
	payload, err := EncodeCancelReport(report)
	if err != nil {
		log.Error().Err(err).Msg("netproto: unable to encode cancel report")
		return
	}
	s.sendTo(e.UserAddress, uint8(ReportCancel), payload)
}

func (s *Server) replyError(conn net.Conn, err error) {
	kind := "DecodeError"
	var cmdErr *common.CommandError
	if errors.As(err, &cmdErr) {
		kind = cmdErr.Kind.String()
	}
	payload, encErr := EncodeErrorReport(ErrorReport{Kind: kind, Message: err.Error()})
	if encErr != nil {
		log.Error().Err(encErr).Msg("netproto: unable to encode error report")
		return
	}
	if err := WriteFrame(conn, uint8(ReportError), payload); err != nil {
		log.Error().Err(err).Msg("netproto: unable to write error report")
	}
}

func (s *Server) registerSession(userAddress string, conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[userAddress] = conn
}

func (s *Server) dropSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for addr, c := range s.sessions {
		if c == conn {
			delete(s.sessions, addr)
		}
	}
}

func (s *Server) sendTo(userAddress string, typ uint8, payload []byte) {
	if userAddress == "" {
		return
	}
	s.sessionsMu.Lock()
	conn, ok := s.sessions[userAddress]
	s.sessionsMu.Unlock()
	if !ok {
		return
	}
	if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return
	}
	if err := WriteFrame(conn, typ, payload); err != nil {
		log.Error().Err(err).Str("user_address", userAddress).Msg("netproto: unable to relay report")
		s.sessionsMu.Lock()
		delete(s.sessions, userAddress)
		s.sessionsMu.Unlock()
	}
}
