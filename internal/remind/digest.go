package remind

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDigest renders the due list as one push message. An empty due
// list renders to an empty string; callers skip the push.
func FormatDigest(dues []Due, now time.Time) string {
	if len(dues) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 NOVA II Reminders (%d)\n", len(dues))
	for _, d := range dues {
		g := d.Goal
		fmt.Fprintf(&b, "\n📌 %s", g.Name)
		if g.DueDate != nil {
			rel := humanize.RelTime(*g.DueDate, now, "overdue", "left")
			if d.Reason == ReasonOverdue || strings.HasSuffix(rel, "overdue") {
				fmt.Fprintf(&b, " (⚠️ %s)", rel)
			} else {
				fmt.Fprintf(&b, " (%s)", rel)
			}
		}
		if note := latestNote(g.Notes); note != "" {
			fmt.Fprintf(&b, "\nLatest: %s", note)
		}
	}
	return b.String()
}

func latestNote(notes string) string {
	if notes == "" {
		return ""
	}
	lines := strings.Split(notes, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
