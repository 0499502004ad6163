package sync

import (
	gosync "sync"

	"chatdesk/internal/store"
)

// Selector derives which session is currently active from the polled session
// list and an operator-chosen override. The override survives list refreshes
// for as long as the session is still present, and is cleared on tenant
// switch so a session id from one tenant can never select into the other.
type Selector struct {
	mu     gosync.Mutex
	tenant store.Tenant
	manual string
}

func NewSelector(tenant store.Tenant) *Selector {
	return &Selector{tenant: tenant}
}

// Select records a manual session choice.
func (s *Selector) Select(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = sessionID
}

// SetTenant switches the tenant context and clears any manual selection.
func (s *Selector) SetTenant(tenant store.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tenant == s.tenant {
		return
	}
	s.tenant = tenant
	s.manual = ""
}

func (s *Selector) Tenant() store.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenant
}

// Active projects (sessions, manual override) to the active session id:
// empty list means no active session; an override that still exists in the
// list wins; otherwise the most recent session is active.
func (s *Selector) Active(sessions []store.SessionSummary) string {
	s.mu.Lock()
	manual := s.manual
	s.mu.Unlock()

	if len(sessions) == 0 {
		return ""
	}
	if manual != "" {
		for _, session := range sessions {
			if session.SessionID == manual {
				return manual
			}
		}
	}
	return sessions[0].SessionID
}
