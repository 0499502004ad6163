package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"chatdesk/internal/store"
)

type fakeFetcher struct {
	mu           gosync.Mutex
	sessions     []store.SessionSummary
	messages     map[string][]store.ChatMessage
	sessionsErr  error
	messagesErr  error
	sessionCalls int
	messageCalls int
	calls        []string
}

func (f *fakeFetcher) FetchSessions(ctx context.Context, tenant store.Tenant) ([]store.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	f.calls = append(f.calls, "sessions")
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	return f.sessions, nil
}

func (f *fakeFetcher) FetchMessages(ctx context.Context, sessionID string, tenant store.Tenant) ([]store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageCalls++
	f.calls = append(f.calls, "messages:"+sessionID)
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.messages[sessionID], nil
}

func (f *fakeFetcher) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionCalls, f.messageCalls
}

func TestRefreshNowIsSequentialSessionsFirst(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		sessions: []store.SessionSummary{summary("s1", base)},
		messages: map[string][]store.ChatMessage{"s1": {message(1, "s1", base)}},
	}
	cache := NewCache()
	defer cache.Close()

	active := ""
	poller := NewPoller(fetcher, cache,
		func() store.Tenant { return store.TenantAlAzhar },
		func() string { return active },
	)

	// Selection derives from the refreshed list, the way the engine wires
	// it: after the session fetch lands, s1 becomes active.
	active = "s1"
	if err := poller.RefreshNow(context.Background()); err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}

	fetcher.mu.Lock()
	calls := append([]string(nil), fetcher.calls...)
	fetcher.mu.Unlock()
	if len(calls) != 2 || calls[0] != "sessions" || calls[1] != "messages:s1" {
		t.Errorf("expected sessions then messages, got %v", calls)
	}

	thread, ok := cache.Messages(store.TenantAlAzhar, "s1")
	if !ok || len(thread) != 1 {
		t.Errorf("expected thread cached, got ok=%v %+v", ok, thread)
	}
}

func TestRefreshNowSkipsMessagesWithoutSelection(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := NewCache()
	defer cache.Close()

	poller := NewPoller(fetcher, cache,
		func() store.Tenant { return store.TenantAlAzhar },
		func() string { return "" },
	)
	if err := poller.RefreshNow(context.Background()); err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if _, messages := fetcher.counts(); messages != 0 {
		t.Errorf("expected no message fetch without a selection")
	}
}

func TestRefreshNowStopsOnSessionError(t *testing.T) {
	wantErr := errors.New("boom")
	fetcher := &fakeFetcher{sessionsErr: wantErr}
	cache := NewCache()
	defer cache.Close()

	poller := NewPoller(fetcher, cache,
		func() store.Tenant { return store.TenantAlAzhar },
		func() string { return "s1" },
	)
	if err := poller.RefreshNow(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, messages := fetcher.counts(); messages != 0 {
		t.Errorf("message fetch must not run after a failed session fetch")
	}
	if poller.SessionsErr() == nil {
		t.Errorf("expected recorded session error")
	}
}

func TestErrorsSurfaceIndependently(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		sessions:    []store.SessionSummary{summary("s1", base)},
		messagesErr: errors.New("thread down"),
	}
	cache := NewCache()
	defer cache.Close()

	poller := NewPoller(fetcher, cache,
		func() store.Tenant { return store.TenantAlAzhar },
		func() string { return "s1" },
	)
	if err := poller.RefreshNow(context.Background()); err == nil {
		t.Fatalf("expected thread error")
	}

	// Session list succeeded and is cached despite the thread failure.
	if poller.SessionsErr() != nil {
		t.Errorf("session error should be nil, got %v", poller.SessionsErr())
	}
	if poller.MessagesErr() == nil {
		t.Errorf("expected recorded message error")
	}
	if got := cache.Sessions(store.TenantAlAzhar); len(got) != 1 {
		t.Errorf("expected session list cached, got %+v", got)
	}

	// Error clears on the next successful fetch.
	fetcher.mu.Lock()
	fetcher.messagesErr = nil
	fetcher.messages = map[string][]store.ChatMessage{"s1": {message(1, "s1", base)}}
	fetcher.mu.Unlock()
	if err := poller.RefreshNow(context.Background()); err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if poller.MessagesErr() != nil {
		t.Errorf("message error should clear after success, got %v", poller.MessagesErr())
	}
}

func TestPollingSuspendedWhileNothingSelected(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		sessions: []store.SessionSummary{summary("s1", base)},
		messages: map[string][]store.ChatMessage{"s1": {message(1, "s1", base)}},
	}
	cache := NewCache()
	defer cache.Close()

	var mu gosync.Mutex
	active := ""
	poller := NewPoller(fetcher, cache,
		func() store.Tenant { return store.TenantAlAzhar },
		func() string { mu.Lock(); defer mu.Unlock(); return active },
	)
	poller.SetIntervals(5*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)

	time.Sleep(30 * time.Millisecond)
	if _, messages := fetcher.counts(); messages != 0 {
		t.Fatalf("thread polling must be suspended with no selection, got %d fetches", messages)
	}

	mu.Lock()
	active = "s1"
	mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for {
		if _, messages := fetcher.counts(); messages > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("thread polling did not resume after selection")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
