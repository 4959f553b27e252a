package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pollchat/internal/auth"
	"github.com/vovakirdan/pollchat/internal/config"
	"github.com/vovakirdan/pollchat/internal/core"
	"github.com/vovakirdan/pollchat/internal/proto"
	"github.com/vovakirdan/pollchat/internal/store/sqlite"
)

type testServer struct {
	*httptest.Server
	hub *core.Hub
}

func newTestServer(t *testing.T, pollInterval time.Duration) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.PollInterval = pollInterval

	hub := core.NewHub(core.Options{
		PollInterval: cfg.PollInterval,
		CacheSize:    cfg.CacheSize,
		PresenceTTL:  cfg.PresenceTTL(),
	}, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	authService := auth.NewService(st, hub, &auth.JWTConfig{
		Secret: []byte("test-secret"),
		Issuer: "test",
		TTL:    time.Hour,
	}, &logger)

	ts := httptest.NewServer(NewServer(hub, authService, &cfg, &logger).Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, hub: hub}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *stdhttp.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := stdhttp.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) login(t *testing.T, nick, email string) string {
	t.Helper()

	resp := ts.do(t, stdhttp.MethodPost, "/auth/login", "", proto.LoginRequest{Nick: nick, Email: email})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("login %s: status %d", nick, resp.StatusCode)
	}
	var out AuthResponse
	decode(t, resp, &out)
	return out.Token
}

func (ts *testServer) say(t *testing.T, token, body string) proto.Message {
	t.Helper()

	resp := ts.do(t, stdhttp.MethodPost, "/a/message/new", token, proto.NewMessageRequest{Body: body})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("say %q: status %d", body, resp.StatusCode)
	}
	var msg proto.Message
	decode(t, resp, &msg)
	return msg
}

func (ts *testServer) updates(t *testing.T, token, cursor string) proto.UpdatesResponse {
	t.Helper()

	resp := ts.do(t, stdhttp.MethodPost, "/a/message/updates", token, proto.UpdatesRequest{Cursor: cursor})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("updates: status %d", resp.StatusCode)
	}
	var out proto.UpdatesResponse
	decode(t, resp, &out)
	return out
}

func decode(t *testing.T, resp *stdhttp.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
