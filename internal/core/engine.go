package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PollStatus is the outcome reported to a long-poll client.
type PollStatus string

const (
	// StatusOK means the result carries new messages.
	StatusOK PollStatus = "ok"
	// StatusTryAgain means the poll timed out and the client should poll again.
	StatusTryAgain PollStatus = "try again"
)

var (
	// ErrPollCancelled is returned when the waiter was cancelled through
	// Engine.Cancel while a poll was blocked on it.
	ErrPollCancelled = errors.New("poll cancelled")
	// ErrWokenAfterClose is returned when a batch arrived for a poll whose
	// connection had already gone away. The batch is dropped.
	ErrWokenAfterClose = errors.New("poll woken after connection closed")
)

// PollResult is the answer to a long-poll request.
type PollResult struct {
	Status   PollStatus
	Messages []Message
}

// Engine commits messages to the store and wakes the waiting pollers.
//
// Publish and Subscribe share one mutex: a subscriber either sees a batch in
// its backlog or is registered before the batch is delivered, never both and
// never neither.
type Engine struct {
	mu      sync.Mutex
	store   *MessageStore
	waiters *WaiterRegistry
	log     *zerolog.Logger
}

// NewEngine creates an engine over store and waiters.
func NewEngine(store *MessageStore, waiters *WaiterRegistry, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Engine{
		store:   store,
		waiters: waiters,
		log:     logger,
	}
}

// Publish appends messages to the history and wakes every current waiter.
func (e *Engine) Publish(messages ...Message) {
	if len(messages) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Append(messages...)
	listeners := e.waiters.WakeAll(messages)

	e.log.Info().
		Int("listeners", listeners).
		Int("messages", len(messages)).
		Str("from", messages[0].From).
		Msg("broadcast messages")
}

// Subscribe returns the backlog after cursor when there is one. Otherwise it
// registers and returns a waiter for the next batch.
func (e *Engine) Subscribe(identity, cursor string) ([]Message, *Waiter) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if backlog := e.store.Since(cursor); len(backlog) > 0 {
		return backlog, nil
	}
	return nil, e.waiters.Register(identity)
}

// Cancel ends w without a batch and removes it from the registry.
// It is safe to call after w was woken, timed out or cancelled.
func (e *Engine) Cancel(w *Waiter) {
	if w == nil {
		return
	}
	w.stop(waiterCancelled)
	e.waiters.Cancel(w)
}

// Poll waits up to timeout for messages after cursor.
//
// The first of wake, timeout and ctx cancellation decides the outcome. A
// timeout yields StatusTryAgain. A cancelled ctx yields ctx.Err(), wrapped in
// ErrWokenAfterClose when a batch had already been handed to the waiter.
func (e *Engine) Poll(ctx context.Context, identity, cursor string, timeout time.Duration) (PollResult, error) {
	backlog, w := e.Subscribe(identity, cursor)
	if w == nil {
		return PollResult{Status: StatusOK, Messages: backlog}, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case messages, ok := <-w.C():
		if !ok {
			return PollResult{}, ErrPollCancelled
		}
		return PollResult{Status: StatusOK, Messages: messages}, nil

	case <-timer.C:
		timedOut := w.stop(waiterTimedOut)
		e.waiters.Cancel(w)
		if timedOut {
			return PollResult{Status: StatusTryAgain}, nil
		}
		// A wake or a cancel got there first.
		if messages, ok := <-w.C(); ok {
			return PollResult{Status: StatusOK, Messages: messages}, nil
		}
		return PollResult{}, ErrPollCancelled

	case <-ctx.Done():
		return e.abandon(ctx, w)
	}
}

// abandon ends the poll on w after its connection went away. If a batch
// already reached w it is dropped and reported as ErrWokenAfterClose.
func (e *Engine) abandon(ctx context.Context, w *Waiter) (PollResult, error) {
	e.Cancel(w)
	if _, ok := <-w.C(); ok {
		return PollResult{}, fmt.Errorf("%w: %w", ErrWokenAfterClose, ctx.Err())
	}
	return PollResult{}, ctx.Err()
}

// History returns a copy of the retained messages.
func (e *Engine) History() []Message {
	return e.store.Snapshot()
}

// Waiting reports how many waiters are registered.
func (e *Engine) Waiting() int {
	return e.waiters.Len()
}
