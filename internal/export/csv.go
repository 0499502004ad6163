// Package export renders chat history as CSV documents for download.
package export

import (
	"fmt"
	"strings"
	"time"

	"chatdesk/internal/store"
)

// Header is the fixed CSV header row.
const Header = "session_id,message_id,role,content,created_at"

// Result is a rendered export ready to be written to a response.
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Filename returns chat-<session>.csv for a single-session export and
// chats-all.csv for a whole-tenant export.
func Filename(sessionID string) string {
	if sessionID != "" {
		return fmt.Sprintf("chat-%s.csv", sessionID)
	}
	return "chats-all.csv"
}

// RenderCSV renders one row per message. Every cell is wrapped in double
// quotes, embedded quotes are doubled, and embedded newlines collapse to
// single spaces so a message can never break the row structure.
func RenderCSV(rows []store.ExportRow, sessionID string) *Result {
	var b strings.Builder
	b.WriteString(Header)

	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(csvCell(row.SessionID))
		b.WriteByte(',')
		b.WriteString(csvCell(fmt.Sprintf("%d", row.ID)))
		b.WriteByte(',')
		b.WriteString(csvCell(store.NormalizeRole(row.Role)))
		b.WriteByte(',')
		b.WriteString(csvCell(row.Content))
		b.WriteByte(',')
		b.WriteString(csvCell(row.CreatedAt.Format(time.RFC3339)))
	}

	return &Result{
		Filename:    Filename(sessionID),
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte(b.String()),
	}
}

func csvCell(raw string) string {
	value := strings.ReplaceAll(raw, "\r\n", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, `"`, `""`)
	return `"` + value + `"`
}
