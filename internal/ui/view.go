package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"chatdesk/internal/store"
	"chatdesk/internal/sync"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	tenantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	fallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("236"))

	previewStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	humanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	aiStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("110"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

const previewWidth = 48

// FilterSessions keeps sessions whose id or last message contains the
// query, case-insensitively. A blank query keeps everything.
func FilterSessions(sessions []store.SessionSummary, query string) []store.SessionSummary {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return sessions
	}
	var filtered []store.SessionSummary
	for _, s := range sessions {
		if strings.Contains(strings.ToLower(s.SessionID), query) ||
			strings.Contains(strings.ToLower(s.LastMessage), query) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Render draws the full dashboard frame: status header, inbox list and
// the active thread.
func Render(snap sync.Snapshot, search string, now time.Time) string {
	var b strings.Builder

	b.WriteString(renderHeader(snap))
	b.WriteString("\n\n")

	sessions := FilterSessions(snap.Sessions, search)
	b.WriteString(renderInbox(snap, sessions, search, now))
	b.WriteString("\n")
	b.WriteString(renderThread(snap, now))

	return b.String()
}

func renderHeader(snap sync.Snapshot) string {
	indicator := fallbackStyle.Render("● polling")
	if snap.Live {
		indicator = liveStyle.Render("● live")
	}
	return headerStyle.Render("Conversation Inbox") + " " +
		tenantStyle.Render(string(snap.Tenant)) + "  " + indicator
}

func renderInbox(snap sync.Snapshot, sessions []store.SessionSummary, search string, now time.Time) string {
	var b strings.Builder

	if snap.SessionsErr != nil {
		b.WriteString(errorStyle.Render("Failed to load sessions. Please try refreshing."))
		b.WriteString("\n")
		return b.String()
	}
	if len(sessions) == 0 {
		if strings.TrimSpace(search) != "" {
			b.WriteString(previewStyle.Render(fmt.Sprintf("No matches for %q.", search)))
		} else {
			b.WriteString(previewStyle.Render("No conversations yet."))
		}
		b.WriteString("\n")
		return b.String()
	}

	for _, s := range sessions {
		line := fmt.Sprintf("%s  %s  %s",
			idStyle.Render(s.SessionID),
			previewStyle.Render(truncate(s.LastMessage, previewWidth)),
			previewStyle.Render(FormatRelativeTime(s.LastMessageAt, now)),
		)
		if s.SessionID == snap.ActiveSessionID {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func renderThread(snap sync.Snapshot, now time.Time) string {
	var b strings.Builder

	if snap.ActiveSessionID == "" {
		b.WriteString(previewStyle.Render("Select a conversation to view messages."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(tenantStyle.Render(snap.ActiveSessionID))
	if len(snap.Messages) > 0 {
		last := snap.Messages[len(snap.Messages)-1]
		b.WriteString("  " + previewStyle.Render(FormatHeaderTimestamp(last.CreatedAt)))
	}
	b.WriteString("\n")

	if snap.MessagesErr != nil {
		b.WriteString(errorStyle.Render("Failed to load messages."))
		b.WriteString("\n")
		return b.String()
	}

	for _, m := range snap.Messages {
		style := humanStyle
		label := "human"
		if m.Role == store.RoleAI {
			style = aiStyle
			label = "ai"
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			style.Render(fmt.Sprintf("[%s]", label)),
			m.Content,
			previewStyle.Render(FormatTimestampLabel(m.CreatedAt)),
		))
	}
	return b.String()
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
