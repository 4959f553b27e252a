// Command chat_smoke logs in, starts a long-poll, posts a message and checks
// that the poll returns it. With -stream it also checks the WebSocket stream.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/pollchat/internal/proto"
)

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) post(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, raw, out)
}

func (c *client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) login(ctx context.Context, nick string) error {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/auth/login", proto.LoginRequest{Nick: nick}, &out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

func main() {
	addr := flag.String("addr", "http://localhost:8888", "server base URL")
	nick := flag.String("nick", fmt.Sprintf("smoke%d", time.Now().Unix()%10000), "nickname to log in with")
	text := flag.String("text", "hello from smoke test", "message text to send")
	stream := flag.Bool("stream", false, "also check the WebSocket stream")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := &client{base: strings.TrimRight(*addr, "/"), http: &http.Client{}}
	if err := c.login(ctx, *nick); err != nil {
		log.Fatalf("login: %v", err)
	}
	defer func() { _ = c.post(context.Background(), "/auth/logout", struct{}{}, nil) }()

	var history proto.UpdatesResponse
	if err := c.get(ctx, "/a/messages", &history); err != nil {
		log.Fatalf("history: %v", err)
	}
	cursor := ""
	if n := len(history.Messages); n > 0 {
		cursor = history.Messages[n-1].ID
	}

	polled := make(chan proto.UpdatesResponse, 1)
	go func() {
		var out proto.UpdatesResponse
		if err := c.post(ctx, "/a/message/updates", proto.UpdatesRequest{Cursor: cursor}, &out); err != nil {
			log.Fatalf("updates: %v", err)
		}
		polled <- out
	}()

	time.Sleep(200 * time.Millisecond)
	var sent proto.Message
	if err := c.post(ctx, "/a/message/new", proto.NewMessageRequest{Body: *text}, &sent); err != nil {
		log.Fatalf("post: %v", err)
	}

	select {
	case out := <-polled:
		fmt.Printf("long-poll: status=%q messages=%d\n", out.Status, len(out.Messages))
		for _, m := range out.Messages {
			fmt.Printf("  %s %s: %s\n", m.Time, m.From, m.Body)
		}
	case <-ctx.Done():
		log.Fatalf("long-poll did not return: %v", ctx.Err())
	}

	if *stream {
		checkStream(ctx, c, sent.ID)
	}
}

func checkStream(ctx context.Context, c *client, lastID string) {
	wsURL := strings.Replace(c.base, "http", "ws", 1) + "/a/message/stream"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		log.Fatalf("dial stream: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeCursor, Cursor: lastID}); err != nil {
		log.Fatalf("send cursor: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSay, Body: "streamed hello"}); err != nil {
		log.Fatalf("send say: %v", err)
	}

	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			log.Fatalf("read stream: %v", err)
		}
		for _, m := range out.Messages {
			fmt.Printf("stream: %s %s: %s\n", m.Time, m.From, m.Body)
			if m.Body == "streamed hello" {
				return
			}
		}
	}
}
