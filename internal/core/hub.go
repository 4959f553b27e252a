package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Options sizes the core.
type Options struct {
	// PollInterval bounds how long a poll waits before "try again".
	PollInterval time.Duration
	// CacheSize is the number of messages kept for catch-up.
	CacheSize int
	// PresenceTTL is how long an identity stays online without activity.
	PresenceTTL time.Duration
	// SweepInterval is how often stale presence is evicted.
	SweepInterval time.Duration
}

// DefaultOptions mirrors the defaults of the configuration layer.
func DefaultOptions() Options {
	poll := 120 * time.Second
	return Options{
		PollInterval:  poll,
		CacheSize:     DefaultCacheSize,
		PresenceTTL:   2 * poll,
		SweepInterval: 100 * poll,
	}
}

// Hub is the chat coordination root: it owns the broadcast engine, the
// presence registry and the command dispatcher.
type Hub struct {
	engine     *Engine
	presence   *PresenceRegistry
	dispatcher *Dispatcher
	opts       Options
	log        *zerolog.Logger
}

// NewHub creates a hub with empty history, waiters and presence.
func NewHub(opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.PresenceTTL <= 0 {
		opts.PresenceTTL = 2 * opts.PollInterval
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 100 * opts.PollInterval
	}

	engine := NewEngine(NewMessageStore(opts.CacheSize), NewWaiterRegistry(logger), logger)
	presence := NewPresenceRegistry(opts.PresenceTTL, logger)

	return &Hub{
		engine:     engine,
		presence:   presence,
		dispatcher: NewDispatcher(engine, presence, logger),
		opts:       opts,
		log:        logger,
	}
}

// Run evicts stale presence until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.presence.Run(ctx, h.opts.SweepInterval)
}

// PollInterval is the default long-poll timeout.
func (h *Hub) PollInterval() time.Duration {
	return h.opts.PollInterval
}

// SubmitCommand executes body on behalf of user.
func (h *Hub) SubmitCommand(user User, body string) CommandResult {
	return h.dispatcher.Dispatch(user, body)
}

// PollForMessages waits for messages after cursor. A timeout of zero uses the
// configured poll interval.
func (h *Hub) PollForMessages(ctx context.Context, identity, cursor string, timeout time.Duration) (PollResult, error) {
	if timeout <= 0 {
		timeout = h.opts.PollInterval
	}

	result, err := h.engine.Poll(ctx, identity, cursor, timeout)
	return h.settle(identity, result, err)
}

// settle applies the presence side effects of a finished poll.
func (h *Hub) settle(identity string, result PollResult, err error) (PollResult, error) {
	if errors.Is(err, ErrWokenAfterClose) {
		h.presence.Remove(identity)
		h.log.Debug().Str("nick", identity).Msg("dropped batch for closed connection")
		return result, err
	}
	if err != nil {
		return result, err
	}

	h.Refresh(identity)
	return result, nil
}

// Subscribe is the non-blocking half of a poll: it returns the backlog after
// cursor, or a waiter that the caller must either drain or pass to
// OnConnectionClosed.
func (h *Hub) Subscribe(identity, cursor string) ([]Message, *Waiter) {
	return h.engine.Subscribe(identity, cursor)
}

// OnConnectionClosed releases the waiter of a connection that went away.
func (h *Hub) OnConnectionClosed(w *Waiter) {
	h.engine.Cancel(w)
}

// Refresh extends the presence of identity after a delivery. A missing entry
// is logged and otherwise ignored.
func (h *Hub) Refresh(identity string) {
	if !h.presence.Refresh(identity) {
		h.log.Warn().Str("nick", identity).Msg("poll completed for user without presence")
	}
}

// OnLogin marks identity online.
func (h *Hub) OnLogin(identity string) {
	h.presence.Touch(identity)
}

// OnLogout takes identity offline.
func (h *Hub) OnLogout(identity string) {
	h.presence.Remove(identity)
}

// IsOnline reports whether identity is online.
func (h *Hub) IsOnline(identity string) bool {
	return h.presence.Online(identity)
}

// ListOnline returns the online identities in lexical order.
func (h *Hub) ListOnline() []string {
	return h.presence.List()
}

// History returns the retained messages, oldest first.
func (h *Hub) History() []Message {
	return h.engine.History()
}

// Waiting reports the number of pending long-poll waiters.
func (h *Hub) Waiting() int {
	return h.engine.Waiting()
}
