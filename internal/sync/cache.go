package sync

import (
	"chatdesk/internal/store"
)

type threadKey struct {
	tenant    store.Tenant
	sessionID string
}

// Cache is the single owner of all fetched dashboard state. Two writers feed
// it: the poller (wholesale replacement) and the push subscription
// (reconciling merges). All access is serialized through one goroutine, so
// the reconciliation functions never race and no locks are needed.
type Cache struct {
	ops     chan func()
	done    chan struct{}
	updates chan struct{}

	sessions map[store.Tenant][]store.SessionSummary
	threads  map[threadKey][]store.ChatMessage
}

func NewCache() *Cache {
	c := &Cache{
		ops:      make(chan func()),
		done:     make(chan struct{}),
		updates:  make(chan struct{}, 1),
		sessions: make(map[store.Tenant][]store.SessionSummary),
		threads:  make(map[threadKey][]store.ChatMessage),
	}
	go c.run()
	return c
}

func (c *Cache) run() {
	for {
		select {
		case op := <-c.ops:
			op()
		case <-c.done:
			return
		}
	}
}

// do runs op on the cache goroutine and waits for it to finish.
func (c *Cache) do(op func()) {
	complete := make(chan struct{})
	select {
	case c.ops <- func() {
		op()
		close(complete)
	}:
		<-complete
	case <-c.done:
	}
}

// notify coalesces change signals; a consumer that has not drained the
// channel yet will still observe a single pending update.
func (c *Cache) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Updates signals after every cache mutation. Reads are cheap snapshots, so
// consumers simply re-read what they display.
func (c *Cache) Updates() <-chan struct{} {
	return c.updates
}

// ReplaceSessions is the poll writer: the fetched list wins wholesale.
func (c *Cache) ReplaceSessions(tenant store.Tenant, sessions []store.SessionSummary) {
	c.do(func() {
		c.sessions[tenant] = sessions
		c.notify()
	})
}

// ReplaceMessages is the poll writer for one session's thread.
func (c *Cache) ReplaceMessages(tenant store.Tenant, sessionID string, messages []store.ChatMessage) {
	c.do(func() {
		c.threads[threadKey{tenant, sessionID}] = messages
		c.notify()
	})
}

// MergeSessionEntry is the push writer: upsert one summary into the list.
func (c *Cache) MergeSessionEntry(tenant store.Tenant, incoming store.SessionSummary) {
	c.do(func() {
		c.sessions[tenant] = MergeSession(c.sessions[tenant], incoming)
		c.notify()
	})
}

// AppendThreadMessage is the push writer for one session's thread. A thread
// that has never been polled starts from the pushed message alone.
func (c *Cache) AppendThreadMessage(tenant store.Tenant, sessionID string, incoming store.ChatMessage) {
	c.do(func() {
		key := threadKey{tenant, sessionID}
		before := c.threads[key]
		after := AppendMessage(before, incoming)
		if len(after) == len(before) && before != nil {
			// Duplicate id: AppendMessage returned the slice unchanged.
			return
		}
		c.threads[key] = after
		c.notify()
	})
}

// Sessions returns the cached session list for a tenant. The returned slice
// is owned by the cache; callers treat it as read-only.
func (c *Cache) Sessions(tenant store.Tenant) []store.SessionSummary {
	var out []store.SessionSummary
	c.do(func() {
		out = c.sessions[tenant]
	})
	return out
}

// Messages returns the cached thread for a session, and whether any thread
// has been cached for it at all.
func (c *Cache) Messages(tenant store.Tenant, sessionID string) ([]store.ChatMessage, bool) {
	var (
		out []store.ChatMessage
		ok  bool
	)
	c.do(func() {
		out, ok = c.threads[threadKey{tenant, sessionID}]
	})
	return out, ok
}

func (c *Cache) Close() {
	close(c.done)
}
