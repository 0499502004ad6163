package sync

import (
	"testing"
	"time"

	"chatdesk/internal/store"
)

func TestCacheReplaceWinsWholesale(t *testing.T) {
	cache := NewCache()
	defer cache.Close()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	// A pushed message lands first.
	cache.AppendThreadMessage(store.TenantAlAzhar, "s1", message(9, "s1", base.Add(time.Minute)))

	// A racing poll response replaces the thread; the pushed-but-not-yet
	// persisted message is momentarily gone until the next poll or push.
	polled := []store.ChatMessage{message(1, "s1", base)}
	cache.ReplaceMessages(store.TenantAlAzhar, "s1", polled)

	thread, ok := cache.Messages(store.TenantAlAzhar, "s1")
	if !ok || len(thread) != 1 || thread[0].ID != 1 {
		t.Fatalf("expected poll replacement to win, got %+v", thread)
	}

	// Re-applying the push reconciles it back in.
	cache.AppendThreadMessage(store.TenantAlAzhar, "s1", message(9, "s1", base.Add(time.Minute)))
	thread, _ = cache.Messages(store.TenantAlAzhar, "s1")
	if len(thread) != 2 || thread[1].ID != 9 {
		t.Fatalf("expected pushed message reconciled, got %+v", thread)
	}
}

func TestCacheTenantKeysAreIndependent(t *testing.T) {
	cache := NewCache()
	defer cache.Close()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cache.ReplaceSessions(store.TenantAlAzhar, []store.SessionSummary{summary("a", base)})
	cache.ReplaceSessions(store.TenantLestari, []store.SessionSummary{summary("l", base)})

	if got := cache.Sessions(store.TenantAlAzhar); len(got) != 1 || got[0].SessionID != "a" {
		t.Errorf("al-azhar list polluted: %+v", got)
	}
	if got := cache.Sessions(store.TenantLestari); len(got) != 1 || got[0].SessionID != "l" {
		t.Errorf("lestari list polluted: %+v", got)
	}

	// Same session id under both tenants: separate threads.
	cache.ReplaceMessages(store.TenantAlAzhar, "s", []store.ChatMessage{message(1, "s", base)})
	cache.ReplaceMessages(store.TenantLestari, "s", []store.ChatMessage{message(2, "s", base)})
	a, _ := cache.Messages(store.TenantAlAzhar, "s")
	l, _ := cache.Messages(store.TenantLestari, "s")
	if len(a) != 1 || a[0].ID != 1 || len(l) != 1 || l[0].ID != 2 {
		t.Errorf("threads not tenant-scoped: al-azhar=%+v lestari=%+v", a, l)
	}
}

func TestCacheMergeSessionEntryKeepsSortInvariant(t *testing.T) {
	cache := NewCache()
	defer cache.Close()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cache.ReplaceSessions(store.TenantAlAzhar, []store.SessionSummary{
		summary("a", base.Add(3*time.Minute)),
		summary("b", base.Add(time.Minute)),
	})
	cache.MergeSessionEntry(store.TenantAlAzhar, summary("b", base.Add(5*time.Minute)))

	got := cache.Sessions(store.TenantAlAzhar)
	if len(got) != 2 || got[0].SessionID != "b" {
		t.Errorf("expected b promoted to front, got %+v", got)
	}
	if !sessionsSortedDesc(got) {
		t.Errorf("session list not sorted descending: %+v", got)
	}
}

func TestCacheMessagesMissEmptyVsAbsent(t *testing.T) {
	cache := NewCache()
	defer cache.Close()

	if _, ok := cache.Messages(store.TenantAlAzhar, "nope"); ok {
		t.Errorf("expected miss for never-polled thread")
	}

	cache.ReplaceMessages(store.TenantAlAzhar, "empty", []store.ChatMessage{})
	if thread, ok := cache.Messages(store.TenantAlAzhar, "empty"); !ok || len(thread) != 0 {
		t.Errorf("expected cached empty thread, got ok=%v thread=%+v", ok, thread)
	}
}

func TestCacheUpdatesSignalCoalesces(t *testing.T) {
	cache := NewCache()
	defer cache.Close()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		cache.MergeSessionEntry(store.TenantAlAzhar, summary("a", base.Add(time.Duration(i)*time.Minute)))
	}

	select {
	case <-cache.Updates():
	default:
		t.Fatalf("expected a pending update signal")
	}

	// All five mutations coalesced into at most one more pending signal;
	// draining must not block.
	select {
	case <-cache.Updates():
	default:
	}
}
