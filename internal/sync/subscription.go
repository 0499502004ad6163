package sync

import (
	"context"
	"encoding/json"
	"log"
	gosync "sync"
	"sync/atomic"
	"time"

	"chatdesk/internal/store"
)

const (
	// EventNewMessage is the single event the relay broadcasts.
	EventNewMessage = "new_message"

	maxReconnectAttempts = 5
	reconnectDelay       = time.Second
)

// Event is one frame received from the push relay.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Conn is a live relay connection. ReadEvent blocks until a frame arrives,
// the context is cancelled, or the transport drops.
type Conn interface {
	ReadEvent(ctx context.Context) (Event, error)
	Close() error
}

// ConnProvider owns the process-wide connection handle. Conn returns the
// shared handle, dialing lazily on first need; Invalidate discards a handle
// the caller observed a transport error on; Shutdown is the one explicit
// full disconnect.
type ConnProvider interface {
	Conn(ctx context.Context) (Conn, error)
	Invalidate(conn Conn)
	Shutdown()
}

// newMessagePayload mirrors the relay's broadcast shape. The relay performs
// no validation of its own, so the shape is checked here at the
// subscription boundary.
type newMessagePayload struct {
	SessionID string `json:"session_id"`
	Message   *struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	} `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

func (p *newMessagePayload) valid() bool {
	return p.SessionID != "" && p.Message != nil && p.ID != 0 && !p.CreatedAt.IsZero()
}

// Manager subscribes to the relay's new_message stream and reconciles each
// event into the cache. Connection state moves Disconnected -> Connecting ->
// Connected; on transport drop it retries up to maxReconnectAttempts at a
// fixed delay, then gives up silently. Polling stays the source of truth
// and the UI shows a fallback indicator via Connected().
type Manager struct {
	provider ConnProvider
	cache    *Cache
	tenant   func() store.Tenant
	active   func() string

	connected atomic.Bool
	startOnce gosync.Once
	stopped   chan struct{}
	delay     time.Duration
}

// NewManager wires a subscription against the cache. tenant reports the
// current tenant context (the relay broadcast itself is tenant-blind) and
// active reports the currently active session id.
func NewManager(provider ConnProvider, cache *Cache, tenant func() store.Tenant, active func() string) *Manager {
	return &Manager{
		provider: provider,
		cache:    cache,
		tenant:   tenant,
		active:   active,
		stopped:  make(chan struct{}),
		delay:    reconnectDelay,
	}
}

// Connected reports the live-connection status for display only. Transitions
// arrive asynchronously; callers must not assume they are synchronous with
// connection attempts.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// Done is closed once the manager has given up reconnecting or the context
// ended.
func (m *Manager) Done() <-chan struct{} {
	return m.stopped
}

// Start launches the subscription loop. Safe to call multiple times; only
// the first call has an effect, mirroring the shared-connection lifetime.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.loop(ctx)
	})
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.stopped)
	defer m.connected.Store(false)

	failures := 0
	for failures < maxReconnectAttempts {
		if ctx.Err() != nil {
			return
		}

		conn, err := m.provider.Conn(ctx)
		if err != nil {
			failures++
			log.Printf("relay connect failed (attempt %d/%d): %v", failures, maxReconnectAttempts, err)
			if !sleepCtx(ctx, m.delay) {
				return
			}
			continue
		}

		m.connected.Store(true)
		failures = 0
		err = m.readLoop(ctx, conn)
		m.connected.Store(false)
		if ctx.Err() != nil {
			return
		}

		// Transport drop: discard the shared handle and retry.
		m.provider.Invalidate(conn)
		failures++
		log.Printf("relay connection dropped (attempt %d/%d): %v", failures, maxReconnectAttempts, err)
		if !sleepCtx(ctx, m.delay) {
			return
		}
	}
	log.Printf("relay unreachable after %d attempts, falling back to polling", maxReconnectAttempts)
}

func (m *Manager) readLoop(ctx context.Context, conn Conn) error {
	for {
		event, err := conn.ReadEvent(ctx)
		if err != nil {
			return err
		}
		if event.Name != EventNewMessage {
			continue
		}
		m.handleNewMessage(event.Payload)
	}
}

func (m *Manager) handleNewMessage(raw json.RawMessage) {
	var payload newMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("dropping malformed relay payload: %v", err)
		return
	}
	if !payload.valid() {
		log.Printf("dropping relay payload with missing fields: %s", raw)
		return
	}

	tenant := m.tenant()

	// The session list always absorbs the event, whichever session it is
	// for. The relay does not scope events by tenant; the cache key is
	// scoped by the consumer's own current tenant context.
	m.cache.MergeSessionEntry(tenant, store.SessionSummary{
		SessionID:     payload.SessionID,
		LastMessage:   payload.Message.Content,
		LastMessageAt: payload.CreatedAt,
	})

	// The thread only absorbs the event if it is the one on screen.
	if m.active() == payload.SessionID {
		m.cache.AppendThreadMessage(tenant, payload.SessionID, store.ChatMessage{
			ID:        payload.ID,
			SessionID: payload.SessionID,
			Role:      store.NormalizeRole(payload.Message.Type),
			Content:   payload.Message.Content,
			CreatedAt: payload.CreatedAt,
		})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
