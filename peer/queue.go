package peer

import (
	"sync"

	"github.com/gammazero/deque"
	"github.com/opd-ai/peerindex/wire"
)

// InboundQueue is the FIFO of received messages awaiting delivery. It is
// written by the receive loop and drained by the delivery loop.
type InboundQueue struct {
	mu       sync.Mutex
	messages deque.Deque[*wire.Message]
	capacity int
	notify   chan struct{}
}

// NewInboundQueue creates a queue holding at most capacity messages, 0 means
// unbounded.
func NewInboundQueue(capacity int) *InboundQueue {
	return &InboundQueue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push appends msg. When the queue is full the new message is rejected.
func (q *InboundQueue) Push(msg *wire.Message) error {
	q.mu.Lock()
	if q.capacity > 0 && q.messages.Len() >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.messages.PushBack(msg)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Drain removes and returns every queued message in arrival order.
func (q *InboundQueue) Drain() []*wire.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.messages.Len()
	if n == 0 {
		return nil
	}
	batch := make([]*wire.Message, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, q.messages.PopFront())
	}
	return batch
}

// Len returns the number of queued messages.
func (q *InboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.messages.Len()
}

// Notify returns a channel that receives a value after a Push.
func (q *InboundQueue) Notify() <-chan struct{} {
	return q.notify
}
