package book

import (
	"time"

	"github.com/google/uuid"

	"fenrir/internal/common"
)

// RestingOrder is the book's internal view of an order resting in a price
// level queue: tick/lot space only, per the scale-converter discipline —
// domain Amounts never appear here.
type RestingOrder struct {
	ID          uuid.UUID
	UserAddress string
	Side        common.Side
	PriceTicks  uint64
	TotalLots   uint64
	Remaining   uint64
	CreatedAt   time.Time
}

// node is one entry in a priceLevel's intrusive FIFO queue.
type node struct {
	order RestingOrder
	level *priceLevel
	prev  *node
	next  *node
}

// priceLevel is a FIFO queue of resting orders at one tick price. It tracks
// aggregate remaining size so depth snapshots don't need to walk the queue.
type priceLevel struct {
	priceTicks uint64
	head       *node
	tail       *node
	count      int
	remaining  uint64 // lots
}

func (l *priceLevel) pushBack(n *node) {
	n.level = l
	n.prev = l.tail
	n.next = nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.count++
	l.remaining += n.order.Remaining
}

func (l *priceLevel) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next, n.level = nil, nil, nil
	l.count--
	l.remaining -= n.order.Remaining
}

func (l *priceLevel) empty() bool { return l.count == 0 }

// Less orders levels for the bid side: highest price first.
func bidLess(a, b *priceLevel) bool { return a.priceTicks > b.priceTicks }

// Less orders levels for the ask side: lowest price first.
func askLess(a, b *priceLevel) bool { return a.priceTicks < b.priceTicks }
