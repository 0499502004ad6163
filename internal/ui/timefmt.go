package ui

import (
	"fmt"
	"math"
	"time"
)

type division struct {
	amount float64
	unit   string
}

var divisions = []division{
	{60, "second"},
	{60, "minute"},
	{24, "hour"},
	{7, "day"},
	{4.34524, "week"},
	{12, "month"},
	{math.Inf(1), "year"},
}

// FormatRelativeTime renders a timestamp relative to now, picking the
// largest unit the difference fits in: "8 minutes ago", "in 2 days".
func FormatRelativeTime(t, now time.Time) string {
	duration := t.Sub(now).Seconds()
	for _, d := range divisions {
		if math.Abs(duration) < d.amount {
			return relativeLabel(int(math.Round(duration)), d.unit)
		}
		duration /= d.amount
	}
	return relativeLabel(int(math.Round(duration)), "year")
}

func relativeLabel(n int, unit string) string {
	if n == 0 {
		return "now"
	}
	plural := unit
	if n != 1 && n != -1 {
		plural += "s"
	}
	if n < 0 {
		return fmt.Sprintf("%d %s ago", -n, plural)
	}
	return fmt.Sprintf("in %d %s", n, plural)
}

// FormatTimestampLabel is the short per-message time label.
func FormatTimestampLabel(t time.Time) string {
	return t.Local().Format("3:04 PM")
}

// FormatHeaderTimestamp is the thread header time label.
func FormatHeaderTimestamp(t time.Time) string {
	return t.Local().Format("Mon 3:04 PM")
}
