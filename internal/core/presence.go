package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PresenceRegistry tracks which identities are online and until when.
type PresenceRegistry struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	ttl       time.Duration
	now       func() time.Time
	log       *zerolog.Logger
}

// NewPresenceRegistry creates an empty registry whose entries live for ttl
// after their last refresh.
func NewPresenceRegistry(ttl time.Duration, logger *zerolog.Logger) *PresenceRegistry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PresenceRegistry{
		deadlines: make(map[string]time.Time),
		ttl:       ttl,
		now:       time.Now,
		log:       logger,
	}
}

// Touch marks identity online until now+ttl.
func (p *PresenceRegistry) Touch(identity string) {
	p.mu.Lock()
	p.deadlines[identity] = p.now().Add(p.ttl)
	p.mu.Unlock()
}

// Refresh extends the deadline of an online identity. It returns false and
// changes nothing when identity is not online.
func (p *PresenceRegistry) Refresh(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.deadlines[identity]; !ok {
		return false
	}
	p.deadlines[identity] = p.now().Add(p.ttl)
	return true
}

// Remove takes identity offline. Unknown identities are ignored.
func (p *PresenceRegistry) Remove(identity string) {
	p.mu.Lock()
	delete(p.deadlines, identity)
	p.mu.Unlock()
}

// Sweep removes every identity whose deadline is before now and returns them.
func (p *PresenceRegistry) Sweep(now time.Time) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var evicted []string
	for identity, deadline := range p.deadlines {
		if deadline.Before(now) {
			delete(p.deadlines, identity)
			evicted = append(evicted, identity)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// List returns the online identities in lexical order.
func (p *PresenceRegistry) List() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	identities := make([]string, 0, len(p.deadlines))
	for identity := range p.deadlines {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	return identities
}

// Online reports whether identity is currently registered.
func (p *PresenceRegistry) Online(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.deadlines[identity]
	return ok
}

// Run sweeps expired identities every interval until ctx is done.
func (p *PresenceRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := p.Sweep(p.now()); len(evicted) > 0 {
				p.log.Info().Strs("identities", evicted).Msg("evicted stale presence")
			}
		}
	}
}
