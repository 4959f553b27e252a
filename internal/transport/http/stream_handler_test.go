package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/pollchat/internal/proto"
)

func dialStream(ctx context.Context, t *testing.T, ts *testServer, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/a/message/stream"
	header := stdhttp.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.Outbound {
	t.Helper()

	var out proto.Outbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out
}

func TestStream_ReplaysHistoryThenPushes(t *testing.T) {
	ts := newTestServer(t, 5*time.Second)
	alice := ts.login(t, "alice", "")
	bob := ts.login(t, "bob", "")

	earlier := ts.say(t, bob, "before you came")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialStream(ctx, t, ts, alice)

	frame := readFrame(ctx, t, conn)
	if frame.Type != proto.OutboundTypeMessages || len(frame.Messages) != 1 || frame.Messages[0].ID != earlier.ID {
		t.Fatalf("expected history replay, got %+v", frame)
	}

	waitUntil(t, func() bool { return ts.hub.Waiting() == 1 })
	later := ts.say(t, bob, "welcome")

	frame = readFrame(ctx, t, conn)
	if len(frame.Messages) != 1 || frame.Messages[0].ID != later.ID {
		t.Fatalf("expected pushed message, got %+v", frame)
	}
}

func TestStream_SayAndCommands(t *testing.T) {
	ts := newTestServer(t, 5*time.Second)
	alice := ts.login(t, "alice", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialStream(ctx, t, ts, alice)
	waitUntil(t, func() bool { return ts.hub.Waiting() == 1 })

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSay, Body: "hello"}); err != nil {
		t.Fatalf("write say: %v", err)
	}
	frame := readFrame(ctx, t, conn)
	if frame.Type != proto.OutboundTypeMessages || frame.Messages[0].Body != "hello" || frame.Messages[0].From != "alice" {
		t.Fatalf("expected own message back, got %+v", frame)
	}

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSay, Body: "/online"}); err != nil {
		t.Fatalf("write /online: %v", err)
	}
	frame = readFrame(ctx, t, conn)
	if frame.Type != proto.OutboundTypeReply || frame.Reply == nil || frame.Reply.Body != "1 online: alice" {
		t.Fatalf("expected /online reply, got %+v", frame)
	}

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: "dance"}); err != nil {
		t.Fatalf("write bad frame: %v", err)
	}
	frame = readFrame(ctx, t, conn)
	if frame.Type != proto.OutboundTypeError || frame.Error.Code != proto.ErrCodeBadRequest {
		t.Fatalf("expected bad_request error, got %+v", frame)
	}
}

func TestStream_CursorReset(t *testing.T) {
	ts := newTestServer(t, 5*time.Second)
	alice := ts.login(t, "alice", "")

	first := ts.say(t, alice, "one")
	second := ts.say(t, alice, "two")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialStream(ctx, t, ts, alice)

	if frame := readFrame(ctx, t, conn); len(frame.Messages) != 2 {
		t.Fatalf("expected full history, got %+v", frame)
	}
	waitUntil(t, func() bool { return ts.hub.Waiting() == 1 })

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeCursor, Cursor: first.ID}); err != nil {
		t.Fatalf("write cursor: %v", err)
	}
	frame := readFrame(ctx, t, conn)
	if len(frame.Messages) != 1 || frame.Messages[0].ID != second.ID {
		t.Fatalf("expected messages after cursor, got %+v", frame)
	}
}

func TestStream_LogoutClosesNormally(t *testing.T) {
	ts := newTestServer(t, 5*time.Second)
	alice := ts.login(t, "alice", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialStream(ctx, t, ts, alice)
	waitUntil(t, func() bool { return ts.hub.Waiting() == 1 })

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSay, Body: "/logout"}); err != nil {
		t.Fatalf("write /logout: %v", err)
	}

	var out proto.Outbound
	err := wsjson.Read(ctx, conn, &out)
	if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure {
		t.Fatalf("expected normal closure, got %v (%v)", status, err)
	}
	if ts.hub.IsOnline("alice") {
		t.Fatal("alice should be offline after /logout")
	}
	waitUntil(t, func() bool { return ts.hub.Waiting() == 0 })

	resp := ts.do(t, stdhttp.MethodGet, "/a/online", alice, nil)
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 for the logged-out stream session, got %d", resp.StatusCode)
	}
}

func TestCloseStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want websocket.StatusCode
	}{
		{"nil", nil, websocket.StatusNormalClosure},
		{"cancelled", context.Canceled, websocket.StatusNormalClosure},
		{"logged out", errLoggedOut, websocket.StatusNormalClosure},
		{"other", context.DeadlineExceeded, websocket.StatusInternalError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got, _ := closeStatus(tc.err); got != tc.want {
				t.Fatalf("closeStatus(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
