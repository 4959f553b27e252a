package core

import (
	"slices"
	"sync"
)

// DefaultCacheSize is the number of messages retained when no size is configured.
const DefaultCacheSize = 200

// MessageStore keeps the most recent broadcast messages in arrival order.
type MessageStore struct {
	mu       sync.RWMutex
	messages []Message
	size     int
}

// NewMessageStore creates an empty store retaining at most size messages.
func NewMessageStore(size int) *MessageStore {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &MessageStore{
		messages: make([]Message, 0, size),
		size:     size,
	}
}

// Append adds messages in order and drops the oldest ones beyond capacity.
func (s *MessageStore) Append(messages ...Message) {
	if len(messages) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, messages...)
	if over := len(s.messages) - s.size; over > 0 {
		n := copy(s.messages, s.messages[over:])
		clear(s.messages[n:])
		s.messages = s.messages[:n]
	}
}

// Since returns the messages that arrived after cursor, oldest first.
//
// An empty cursor yields nothing: the caller has not asked for catch-up.
// A cursor that is no longer (or never was) in the store yields the whole
// store, as if the client had fallen off the front of the window.
func (s *MessageStore) Since(cursor string) []Message {
	if cursor == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	// Recent cursors are the common case, so scan from the tail.
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == cursor {
			start = i + 1
			break
		}
	}
	if start == len(s.messages) {
		return nil
	}
	return slices.Clone(s.messages[start:])
}

// Snapshot returns a copy of every retained message, oldest first.
func (s *MessageStore) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Len reports how many messages are retained.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
