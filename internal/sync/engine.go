package sync

import (
	"context"

	"chatdesk/internal/store"
)

// Engine ties the gateway, cache, selector, poller, and push subscription
// into the one realtime view the dashboard client renders.
type Engine struct {
	client   *Client
	cache    *Cache
	selector *Selector
	poller   *Poller
	manager  *Manager
	provider ConnProvider
}

// Snapshot is everything the UI needs for one render.
type Snapshot struct {
	Tenant          store.Tenant
	Sessions        []store.SessionSummary
	ActiveSessionID string
	Messages        []store.ChatMessage
	Live            bool
	SessionsErr     error
	MessagesErr     error
}

func NewEngine(client *Client, provider ConnProvider, tenant store.Tenant) *Engine {
	cache := NewCache()
	selector := NewSelector(tenant)

	e := &Engine{
		client:   client,
		cache:    cache,
		selector: selector,
		provider: provider,
	}
	e.poller = NewPoller(client, cache, selector.Tenant, e.activeSessionID)
	e.manager = NewManager(provider, cache, selector.Tenant, e.activeSessionID)
	return e
}

// activeSessionID recomputes the selection from the current list on every
// read; it is never stored independently.
func (e *Engine) activeSessionID() string {
	tenant := e.selector.Tenant()
	return e.selector.Active(e.cache.Sessions(tenant))
}

func (e *Engine) Start(ctx context.Context) {
	e.poller.Start(ctx)
	e.manager.Start(ctx)
}

// SwitchTenant changes the tenant context. The manual selection is cleared
// so the new tenant opens on its own most recent session; the old tenant's
// cache entries stay warm for the next switch back.
func (e *Engine) SwitchTenant(tenant store.Tenant) {
	e.selector.SetTenant(tenant)
}

// SelectSession records a manual session choice within the current tenant.
func (e *Engine) SelectSession(sessionID string) {
	e.selector.Select(sessionID)
}

/// RefreshNow is the manual refresh affordance: sessions first, then the
// active thread, sequentially.
func (e *Engine) RefreshNow(ctx context.Context) error {
	return e.poller.RefreshNow(ctx)
}

// Updates signals whenever the cache changed.
func (e *Engine) Updates() <-chan struct{} {
	return e.cache.Updates()
}

func (e *Engine) Poller() *Poller {
	return e.poller
}

func (e *Engine) Snapshot() Snapshot {
	tenant := e.selector.Tenant()
	sessions := e.cache.Sessions(tenant)
	active := e.selector.Active(sessions)
	var messages []store.ChatMessage
	if active != "" {
		messages, _ = e.cache.Messages(tenant, active)
	}
	return Snapshot{
		Tenant:          tenant,
		Sessions:        sessions,
		ActiveSessionID: active,
		Messages:        messages,
		Live:            e.manager.Connected(),
		SessionsErr:     e.poller.SessionsErr(),
		MessagesErr:     e.poller.MessagesErr(),
	}
}

// Close shuts the engine down, including the shared relay connection. This
// is the one explicit full disconnect.
func (e *Engine) Close() {
	e.provider.Shutdown()
	e.cache.Close()
}
