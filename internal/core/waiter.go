package core

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type waiterState int32

const (
	waiterPending waiterState = iota
	waiterWoken
	waiterTimedOut
	waiterCancelled
)

// Waiter is a pending long-poll subscription.
//
// A waiter reaches exactly one terminal state. When it is woken, the batch is
// sent on C and the channel stays open; when it times out or is cancelled, C is
// closed without a value.
type Waiter struct {
	id       uint64
	identity string
	state    atomic.Int32
	ch       chan []Message
}

func newWaiter(id uint64, identity string) *Waiter {
	return &Waiter{
		id:       id,
		identity: identity,
		ch:       make(chan []Message, 1),
	}
}

// ID returns the registry handle of the waiter.
func (w *Waiter) ID() uint64 { return w.id }

// Identity returns the identity that created the waiter.
func (w *Waiter) Identity() string { return w.identity }

// C delivers the wake batch, or is closed when the waiter ends without one.
func (w *Waiter) C() <-chan []Message { return w.ch }

// Pending reports whether the waiter has not reached a terminal state yet.
func (w *Waiter) Pending() bool {
	return waiterState(w.state.Load()) == waiterPending
}

func (w *Waiter) deliver(messages []Message) bool {
	if !w.state.CompareAndSwap(int32(waiterPending), int32(waiterWoken)) {
		return false
	}
	w.ch <- messages
	return true
}

func (w *Waiter) stop(to waiterState) bool {
	if !w.state.CompareAndSwap(int32(waiterPending), int32(to)) {
		return false
	}
	close(w.ch)
	return true
}

// WaiterRegistry holds the waiters that expect the next broadcast batch.
type WaiterRegistry struct {
	mu      sync.Mutex
	waiters map[uint64]*Waiter
	nextID  uint64
	log     *zerolog.Logger
}

// NewWaiterRegistry creates an empty registry.
func NewWaiterRegistry(logger *zerolog.Logger) *WaiterRegistry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &WaiterRegistry{
		waiters: make(map[uint64]*Waiter),
		log:     logger,
	}
}

// Register adds a pending waiter for identity and returns its handle.
func (r *WaiterRegistry) Register(identity string) *Waiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	w := newWaiter(r.nextID, identity)
	r.waiters[w.id] = w
	return w
}

// Cancel removes w from the registry. Removing an unknown or already removed
// waiter is a no-op.
func (r *WaiterRegistry) Cancel(w *Waiter) {
	if w == nil {
		return
	}
	r.mu.Lock()
	delete(r.waiters, w.id)
	r.mu.Unlock()
}

// WakeAll hands messages to every registered waiter once and empties the
// registry. Waiters registered while the batch is being delivered land in the
// fresh set and wait for the next batch. It returns the number of waiters that
// received the batch.
func (r *WaiterRegistry) WakeAll(messages []Message) int {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = make(map[uint64]*Waiter)
	r.mu.Unlock()

	delivered := 0
	for _, w := range waiters {
		if w.deliver(messages) {
			delivered++
			continue
		}
		r.log.Warn().
			Uint64("waiter_id", w.id).
			Str("identity", w.identity).
			Msg("waiter finished before wake, batch not delivered")
	}
	return delivered
}

// Len reports how many waiters are registered.
func (r *WaiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
