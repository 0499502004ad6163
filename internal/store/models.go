package store

import "time"

const (
	RoleAI    = "ai"
	RoleHuman = "human"
)

// SessionSummary is the most recent message of one conversation session.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ChatMessage is a single row of a session's thread. IDs are unique within a
// session and increase with insertion order, not necessarily with created_at.
type ChatMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportRow is one CSV line of an export.
type ExportRow struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// NormalizeRole maps anything that is not literally "ai" to "human". The
// chat-history table stores free-form message->>'type' values (null,
// "system", tool names) and the dashboard only distinguishes the two.
func NormalizeRole(raw string) string {
	if raw == RoleAI {
		return RoleAI
	}
	return RoleHuman
}
