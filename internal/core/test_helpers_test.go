package core

import (
	"fmt"
	"testing"
	"time"
)

func mustBatch(t *testing.T, w *Waiter) []Message {
	t.Helper()

	select {
	case batch, ok := <-w.C():
		if !ok {
			t.Fatalf("waiter %d closed without a batch", w.ID())
		}
		return batch
	case <-time.After(2 * time.Second):
		t.Fatalf("waiter %d was not woken", w.ID())
	}
	return nil
}

func mustNoBatch(t *testing.T, w *Waiter, wait time.Duration) {
	t.Helper()

	select {
	case batch, ok := <-w.C():
		t.Fatalf("unexpected delivery to waiter %d: %+v (open=%v)", w.ID(), batch, ok)
	case <-time.After(wait):
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func numbered(from, to int) []Message {
	messages := make([]Message, 0, to-from+1)
	for i := from; i <= to; i++ {
		messages = append(messages, Message{ID: fmt.Sprintf("m%d", i), Body: fmt.Sprintf("body %d", i)})
	}
	return messages
}

func ids(messages []Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

// onlyWaiter returns the single waiter registered in r.
func onlyWaiter(t *testing.T, r *WaiterRegistry) *Waiter {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.waiters) != 1 {
		t.Fatalf("expected one registered waiter, got %d", len(r.waiters))
	}
	for _, w := range r.waiters {
		return w
	}
	return nil
}
