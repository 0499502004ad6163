package sync

import (
	"context"
	"encoding/json"
	gosync "sync"

	"nhooyr.io/websocket"
)

// WebSocketProvider dials the relay's /ws endpoint. Exactly one underlying
// connection exists per provider; it is created lazily on first need and
// shared by every consumer, so rapid attach/detach cycles never cause
// reconnect storms. Only Shutdown tears it down.
type WebSocketProvider struct {
	url string

	mu      gosync.Mutex
	current *wsConn
}

func NewWebSocketProvider(url string) *WebSocketProvider {
	return &WebSocketProvider{url: url}
}

func (p *WebSocketProvider) Conn(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return p.current, nil
	}
	conn, _, err := websocket.Dial(ctx, p.url, nil)
	if err != nil {
		return nil, err
	}
	p.current = &wsConn{conn: conn}
	return p.current, nil
}

func (p *WebSocketProvider) Invalidate(conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := conn.(*wsConn); ok && c == p.current {
		_ = c.Close()
		p.current = nil
	}
}

func (p *WebSocketProvider) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		_ = p.current.Close()
		p.current = nil
	}
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadEvent(ctx context.Context) (Event, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return Event{}, err
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		// A frame the relay never sends; treat as an empty event rather
		// than a transport failure.
		return Event{}, nil
	}
	return event, nil
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
