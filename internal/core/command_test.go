package core

import (
	"strings"
	"testing"
	"time"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		raw   string
		kind  CommandKind
		token string
		body  string
	}{
		{raw: "hello", kind: CommandSay, token: "say", body: "hello"},
		{raw: "", kind: CommandSay, token: "say", body: ""},
		{raw: "/", kind: CommandSay, token: "say", body: "/"},
		{raw: "/online", kind: CommandOnline, token: "online"},
		{raw: "  /logout", kind: CommandLogout, token: "logout"},
		{raw: "/say", kind: CommandSay, token: "say", body: ""},
		{raw: "/say  hi there", kind: CommandSay, token: "say", body: "hi there"},
		{raw: "/dance wildly", kind: CommandUnknown, token: "dance", body: "wildly"},
		{raw: "not /a command", kind: CommandSay, token: "say", body: "not /a command"},
		{raw: "/ online", kind: CommandOnline, token: "online"},
		{raw: "/ hello there", kind: CommandUnknown, token: "hello", body: "there"},
		{raw: " /   ", kind: CommandSay, token: "say", body: " /   "},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cmd := ParseCommand(tt.raw)
			if cmd.Kind != tt.kind || cmd.Token != tt.token || cmd.Body != tt.body {
				t.Fatalf("ParseCommand(%q) = %+v", tt.raw, cmd)
			}
		})
	}
}

func newTestDispatcher() (*Dispatcher, *Engine, *PresenceRegistry) {
	engine := newTestEngine()
	presence := NewPresenceRegistry(time.Minute, nil)
	d := NewDispatcher(engine, presence, nil)
	d.now = func() time.Time { return time.Date(2024, 1, 1, 9, 30, 15, 0, time.UTC) }
	return d, engine, presence
}

func TestDispatchSayBroadcasts(t *testing.T) {
	d, engine, _ := newTestDispatcher()
	_, w := engine.Subscribe("bob", "")

	res := d.Dispatch(User{Nick: "alice", Email: "alice@example.com"}, "hello <b>")
	if !res.Broadcast || res.Message == nil {
		t.Fatalf("expected broadcast with message, got %+v", res)
	}
	msg := *res.Message
	if msg.From != "alice" || msg.Body != "hello <b>" || msg.Time != "09:30:15" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if strings.Contains(msg.HTML, "<b>hello") || !strings.Contains(msg.HTML, "hello &lt;b&gt;") {
		t.Fatalf("body not escaped in html: %s", msg.HTML)
	}
	if !strings.HasSuffix(msg.AvatarSmall, "?size=18") || !strings.HasSuffix(msg.Avatar, "?size=512") {
		t.Fatalf("unexpected avatars %q %q", msg.Avatar, msg.AvatarSmall)
	}

	got := mustBatch(t, w)
	if len(got) != 1 || got[0].ID != msg.ID {
		t.Fatalf("waiter got %v, want %s", ids(got), msg.ID)
	}
}

func TestDispatchEmptySayIsBroadcast(t *testing.T) {
	d, engine, _ := newTestDispatcher()

	res := d.Dispatch(User{Nick: "alice"}, "/say")
	if !res.Broadcast || res.Message.Body != "" {
		t.Fatalf("expected empty broadcast, got %+v", res)
	}
	if len(engine.History()) != 1 {
		t.Fatalf("empty say not stored")
	}
}

func TestDispatchOnlineRepliesOnly(t *testing.T) {
	d, engine, presence := newTestDispatcher()
	presence.Touch("bob")
	presence.Touch("alice")

	res := d.Dispatch(User{Nick: "alice"}, "/online")
	if res.Broadcast || res.Message == nil {
		t.Fatalf("expected reply only, got %+v", res)
	}
	if res.Message.Body != "2 online: alice, bob" || res.Message.From != SystemSender {
		t.Fatalf("unexpected reply %+v", res.Message)
	}
	if len(engine.History()) != 0 {
		t.Fatalf("online reply must not be stored")
	}
}

func TestDispatchLogoutRemovesPresence(t *testing.T) {
	d, _, presence := newTestDispatcher()
	presence.Touch("alice")

	res := d.Dispatch(User{Nick: "alice"}, "/logout")
	if !res.Logout || res.Message != nil || res.Broadcast {
		t.Fatalf("unexpected result %+v", res)
	}
	if presence.Online("alice") {
		t.Fatalf("alice still online")
	}

	// Logging out twice is harmless.
	d.Dispatch(User{Nick: "alice"}, "/logout")
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, engine, _ := newTestDispatcher()

	res := d.Dispatch(User{Nick: "alice"}, "/dance")
	if res.Broadcast || res.Message == nil || res.Message.Body != "unknown command: dance" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(engine.History()) != 0 {
		t.Fatalf("unknown command reply must not be stored")
	}
}

func TestAvatarURLNormalizesEmail(t *testing.T) {
	if AvatarURL(" Alice@Example.com ") != AvatarURL("alice@example.com") {
		t.Fatalf("avatar should ignore case and surrounding space")
	}
	if !strings.HasPrefix(AvatarURL(""), gravatarBase) {
		t.Fatalf("unexpected avatar base")
	}
}
