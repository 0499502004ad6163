package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRelay(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(testLogger())
	server := httptest.NewServer(NewServer(hub, testLogger()).Handler())
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, server
}

func dialRelay(t *testing.T, ctx context.Context, server *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, server.URL+"/ws", nil)
	if err != nil {
		t.Fatalf("dial relay: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Subscribers() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d subscribers, have %d", want, hub.Subscribers())
}

func TestIngestBroadcastsToSubscribers(t *testing.T) {
	hub, server := newTestRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialRelay(t, ctx, server)
	waitForSubscribers(t, hub, 1)

	body := `{"session_id":"s1","message":{"type":"ai","content":"hi"},"id":7,"created_at":"2026-03-01T10:00:00Z"}`
	resp, err := http.Post(server.URL+"/events/new-message", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post event: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ack struct {
		Delivered bool `json:"delivered"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil || !ack.Delivered {
		t.Fatalf("expected delivered ack, got %v (err %v)", ack, err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var got frame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if got.Event != EventNewMessage {
		t.Errorf("expected event %q, got %q", EventNewMessage, got.Event)
	}
	var payload map[string]any
	if err := json.Unmarshal(got.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["session_id"] != "s1" {
		t.Errorf("payload not forwarded intact: %v", payload)
	}
}

func TestIngestRejectsNonObjectBody(t *testing.T) {
	_, server := newTestRelay(t)

	for _, body := range []string{`[]`, `"text"`, `not json`} {
		resp, err := http.Post(server.URL+"/events/new-message", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("post event: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestIngestPassesThroughUnvalidatedObjects(t *testing.T) {
	hub, server := newTestRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialRelay(t, ctx, server)
	waitForSubscribers(t, hub, 1)

	// Any object is relayed; validation is the consumer's problem.
	resp, err := http.Post(server.URL+"/events/new-message", "application/json", bytes.NewBufferString(`{"junk":true}`))
	if err != nil {
		t.Fatalf("post event: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Contains(data, []byte(`"junk":true`)) {
		t.Errorf("expected payload passthrough, got %s", data)
	}
}

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	hub, server := newTestRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := dialRelay(t, ctx, server)
	second := dialRelay(t, ctx, server)
	waitForSubscribers(t, hub, 2)

	hub.Broadcast(EventNewMessage, json.RawMessage(`{"session_id":"s9"}`))

	for i, conn := range []*websocket.Conn{first, second} {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("subscriber %d read: %v", i, err)
		}
		if !bytes.Contains(data, []byte(`"s9"`)) {
			t.Errorf("subscriber %d missing payload: %s", i, data)
		}
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(testLogger())
	defer hub.Close()

	// A client registered directly with a full buffer and no reader.
	c := &client{send: make(chan []byte)}
	hub.mu.Lock()
	hub.clients[c] = struct{}{}
	hub.mu.Unlock()

	hub.Broadcast(EventNewMessage, json.RawMessage(`{}`))

	if hub.Subscribers() != 0 {
		t.Fatalf("expected slow subscriber to be dropped, have %d", hub.Subscribers())
	}
	if _, ok := <-c.send; ok {
		t.Errorf("expected send channel closed")
	}
}

func TestHealthReportsSubscriberCount(t *testing.T) {
	hub, server := newTestRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialRelay(t, ctx, server)
	waitForSubscribers(t, hub, 1)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	var payload struct {
		OK          bool `json:"ok"`
		Subscribers int  `json:"subscribers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !payload.OK || payload.Subscribers != 1 {
		t.Errorf("unexpected health payload %+v", payload)
	}
}

func TestRedisSourceForwardsPublishedPayloads(t *testing.T) {
	mini := miniredis.RunT(t)

	hub, server := newTestRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	source, err := NewRedisSource("redis://"+mini.Addr(), "chatdesk:new-message", hub, testLogger())
	if err != nil {
		t.Fatalf("new redis source: %v", err)
	}
	defer source.Close()
	go func() { _ = source.Run(ctx) }()

	conn := dialRelay(t, ctx, server)
	waitForSubscribers(t, hub, 1)

	// Wait until the subscription is live before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n := publish(t, mini.Addr(), "chatdesk:new-message", `{"session_id":"r1"}`); n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Contains(data, []byte(`"r1"`)) {
		t.Errorf("expected redis payload forwarded, got %s", data)
	}
}

func publish(t *testing.T, addr, channel, payload string) int64 {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	n, err := client.Publish(context.Background(), channel, payload).Result()
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return n
}
