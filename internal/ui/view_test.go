package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"chatdesk/internal/store"
	"chatdesk/internal/sync"
)

func TestRenderStatusIndicator(t *testing.T) {
	now := time.Now()

	live := Render(sync.Snapshot{Tenant: store.TenantAlAzhar, Live: true}, "", now)
	if !strings.Contains(live, "live") {
		t.Errorf("expected live indicator, got:\n%s", live)
	}

	polling := Render(sync.Snapshot{Tenant: store.TenantAlAzhar, Live: false}, "", now)
	if !strings.Contains(polling, "polling") {
		t.Errorf("expected polling indicator, got:\n%s", polling)
	}
}

func TestRenderEmptyAndNoMatchStates(t *testing.T) {
	now := time.Now()
	snap := sync.Snapshot{Tenant: store.TenantAlAzhar}

	out := Render(snap, "", now)
	if !strings.Contains(out, "No conversations yet.") {
		t.Errorf("expected empty state, got:\n%s", out)
	}

	snap.Sessions = []store.SessionSummary{{SessionID: "s1", LastMessage: "hello"}}
	out = Render(snap, "zzz", now)
	if !strings.Contains(out, `No matches for "zzz".`) {
		t.Errorf("expected no-match state, got:\n%s", out)
	}
}

func TestRenderMarksActiveSessionAndThread(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := sync.Snapshot{
		Tenant: store.TenantLestari,
		Sessions: []store.SessionSummary{
			{SessionID: "s1", LastMessage: "newest", LastMessageAt: now},
			{SessionID: "s2", LastMessage: "older", LastMessageAt: now.Add(-time.Hour)},
		},
		ActiveSessionID: "s1",
		Messages: []store.ChatMessage{
			{ID: 1, SessionID: "s1", Role: store.RoleHuman, Content: "hi", CreatedAt: now.Add(-time.Minute)},
			{ID: 2, SessionID: "s1", Role: store.RoleAI, Content: "hello!", CreatedAt: now},
		},
	}

	out := Render(snap, "", now)
	if !strings.Contains(out, "> ") {
		t.Errorf("expected active session marker, got:\n%s", out)
	}
	if !strings.Contains(out, "[human] hi") || !strings.Contains(out, "[ai] hello!") {
		t.Errorf("expected both messages rendered, got:\n%s", out)
	}
}

func TestRenderErrorsTakePriority(t *testing.T) {
	now := time.Now()
	snap := sync.Snapshot{
		Tenant:      store.TenantAlAzhar,
		SessionsErr: errors.New("boom"),
	}
	out := Render(snap, "", now)
	if !strings.Contains(out, "Failed to load sessions.") {
		t.Errorf("expected session error message, got:\n%s", out)
	}

	snap = sync.Snapshot{
		Tenant:          store.TenantAlAzhar,
		Sessions:        []store.SessionSummary{{SessionID: "s1"}},
		ActiveSessionID: "s1",
		MessagesErr:     errors.New("boom"),
	}
	out = Render(snap, "", now)
	if !strings.Contains(out, "Failed to load messages.") {
		t.Errorf("expected message error, got:\n%s", out)
	}
}

func TestRenderPromptsWithoutSelection(t *testing.T) {
	out := Render(sync.Snapshot{Tenant: store.TenantAlAzhar, Live: true}, "", time.Now())
	if !strings.Contains(out, "Select a conversation") {
		t.Errorf("expected selection prompt, got:\n%s", out)
	}
}
