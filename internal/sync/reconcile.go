// Package sync keeps the dashboard's client-side cache consistent across
// periodic polling, push notifications, and user-driven session switching.
package sync

import (
	"sort"

	"chatdesk/internal/store"
)

// MergeSession upserts a session summary into a session list and returns the
// list re-sorted most-recent-first. Applying the same summary twice yields
// the same result as applying it once.
func MergeSession(existing []store.SessionSummary, incoming store.SessionSummary) []store.SessionSummary {
	merged := make([]store.SessionSummary, 0, len(existing)+1)
	merged = append(merged, incoming)
	for _, session := range existing {
		if session.SessionID != incoming.SessionID {
			merged = append(merged, session)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].LastMessageAt.After(merged[j].LastMessageAt)
	})
	return merged
}

// AppendMessage inserts a message into a thread, keeping the thread unique
// by id and sorted ascending by created_at. A nil thread becomes a
// single-element thread. A duplicate id returns the existing slice unchanged
// so downstream memoization can treat it as a no-op. Out-of-order delivery
// (an incoming created_at earlier than the current tail) still sorts
// correctly.
func AppendMessage(existing []store.ChatMessage, incoming store.ChatMessage) []store.ChatMessage {
	if existing == nil {
		return []store.ChatMessage{incoming}
	}
	for _, message := range existing {
		if message.ID == incoming.ID {
			return existing
		}
	}
	merged := make([]store.ChatMessage, 0, len(existing)+1)
	merged = append(merged, existing...)
	merged = append(merged, incoming)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged
}
