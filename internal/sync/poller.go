package sync

import (
	"context"
	gosync "sync"
	"time"

	"chatdesk/internal/store"
)

const (
	// DefaultSessionInterval is how often the session list refreshes.
	DefaultSessionInterval = 15 * time.Second
	// DefaultMessageInterval is how often the active thread refreshes.
	DefaultMessageInterval = 10 * time.Second
)

// Fetcher is the remote data gateway the poller drives. *Client implements
// it; tests substitute fakes.
type Fetcher interface {
	FetchSessions(ctx context.Context, tenant store.Tenant) ([]store.SessionSummary, error)
	FetchMessages(ctx context.Context, sessionID string, tenant store.Tenant) ([]store.ChatMessage, error)
}

// Poller schedules periodic refreshes of the session list and the active
// message thread at independent intervals. Thread polling is suspended
// whenever no session is selected. Fetch errors are recorded per resource
// and surface independently; the only retry is the next tick or an explicit
// RefreshNow.
type Poller struct {
	fetcher Fetcher
	cache   *Cache
	tenant  func() store.Tenant
	active  func() string

	sessionInterval time.Duration
	messageInterval time.Duration

	mu          gosync.Mutex
	sessionsErr error
	messagesErr error
}

func NewPoller(fetcher Fetcher, cache *Cache, tenant func() store.Tenant, active func() string) *Poller {
	return &Poller{
		fetcher:         fetcher,
		cache:           cache,
		tenant:          tenant,
		active:          active,
		sessionInterval: DefaultSessionInterval,
		messageInterval: DefaultMessageInterval,
	}
}

// SetIntervals overrides the poll cadence. Non-positive values keep the
// current setting.
func (p *Poller) SetIntervals(sessions, messages time.Duration) {
	if sessions > 0 {
		p.sessionInterval = sessions
	}
	if messages > 0 {
		p.messageInterval = messages
	}
}

// Start launches the two poll loops and performs one immediate session-list
// fetch so the UI has data before the first tick.
func (p *Poller) Start(ctx context.Context) {
	p.refreshSessions(ctx)

	go p.loop(ctx, p.sessionInterval, func() {
		p.refreshSessions(ctx)
	})
	go p.loop(ctx, p.messageInterval, func() {
		// Suspended while nothing is selected.
		if sessionID := p.active(); sessionID != "" {
			p.refreshMessages(ctx, sessionID)
		}
	})
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, tick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// RefreshNow refetches the session list and then, if a session is selected,
// the message thread. The thread refetch runs strictly after the session
// refetch resolves so it can never use a selection the list refresh just
// invalidated.
func (p *Poller) RefreshNow(ctx context.Context) error {
	if err := p.refreshSessions(ctx); err != nil {
		return err
	}
	if sessionID := p.active(); sessionID != "" {
		return p.refreshMessages(ctx, sessionID)
	}
	return nil
}

func (p *Poller) refreshSessions(ctx context.Context) error {
	tenant := p.tenant()
	sessions, err := p.fetcher.FetchSessions(ctx, tenant)
	p.mu.Lock()
	p.sessionsErr = err
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.cache.ReplaceSessions(tenant, sessions)
	return nil
}

func (p *Poller) refreshMessages(ctx context.Context, sessionID string) error {
	tenant := p.tenant()
	messages, err := p.fetcher.FetchMessages(ctx, sessionID, tenant)
	p.mu.Lock()
	p.messagesErr = err
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.cache.ReplaceMessages(tenant, sessionID, messages)
	return nil
}

// SessionsErr returns the session list's most recent fetch error, nil after
// a successful fetch.
func (p *Poller) SessionsErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionsErr
}

// MessagesErr returns the thread's most recent fetch error, nil after a
// successful fetch.
func (p *Poller) MessagesErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messagesErr
}
