package core

import (
	"slices"
	"testing"
)

func TestMessageStoreSince(t *testing.T) {
	store := NewMessageStore(DefaultCacheSize)
	store.Append(numbered(1, 10)...)

	tests := []struct {
		name   string
		cursor string
		want   []string
	}{
		{name: "no cursor", cursor: "", want: nil},
		{name: "middle cursor", cursor: "m7", want: []string{"m8", "m9", "m10"}},
		{name: "newest cursor", cursor: "m10", want: nil},
		{name: "oldest cursor", cursor: "m1", want: ids(numbered(2, 10))},
		{name: "unknown cursor", cursor: "gone", want: ids(numbered(1, 10))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(store.Since(tt.cursor))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Since(%q) = %v, want %v", tt.cursor, got, tt.want)
			}
		})
	}
}

func TestMessageStoreSinceReturnsCopy(t *testing.T) {
	store := NewMessageStore(DefaultCacheSize)
	store.Append(numbered(1, 3)...)

	got := store.Since("m1")
	got[0].Body = "mutated"

	if again := store.Since("m1"); again[0].Body != "body 2" {
		t.Fatalf("store was mutated through Since result: %+v", again[0])
	}
}

func TestMessageStoreKeepsMostRecent(t *testing.T) {
	store := NewMessageStore(200)
	for _, m := range numbered(1, 250) {
		store.Append(m)
	}

	if store.Len() != 200 {
		t.Fatalf("expected 200 messages, got %d", store.Len())
	}
	snapshot := store.Snapshot()
	if snapshot[0].ID != "m51" || snapshot[199].ID != "m250" {
		t.Fatalf("unexpected window %s..%s", snapshot[0].ID, snapshot[199].ID)
	}
}

func TestMessageStoreTruncatesLargeBatch(t *testing.T) {
	store := NewMessageStore(5)
	store.Append(numbered(1, 3)...)
	store.Append(numbered(4, 12)...)

	if got, want := ids(store.Snapshot()), []string{"m8", "m9", "m10", "m11", "m12"}; !slices.Equal(got, want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
	// m3 fell off the front, so the cursor is unknown now.
	if got := store.Since("m3"); len(got) != 5 {
		t.Fatalf("expected full window for evicted cursor, got %v", ids(got))
	}
}

func TestNewMessageStoreDefaultsSize(t *testing.T) {
	store := NewMessageStore(0)
	store.Append(numbered(1, DefaultCacheSize+1)...)
	if store.Len() != DefaultCacheSize {
		t.Fatalf("expected %d messages, got %d", DefaultCacheSize, store.Len())
	}
}
