package maradmin

import (
	"fmt"
	"strings"
	"time"
)

// Summary is the rendered result for one message.
type Summary struct {
	ID        string
	Title     string
	Link      string
	Published string
	Mode      Mode
	Number    string
	Bullets   []string
}

// Label is the tag line shown under each message title.
func Label(mode Mode, number string) string {
	if number == "" {
		number = "MARADMIN"
	}
	switch mode {
	case ModeReadASAP:
		return "🚨 [PROMOTION LIST — READ ASAP] " + number
	case ModeDatesOnly:
		return "[BOARD SCHEDULE] " + number
	case ModeBriefResults:
		return "[RESULTS — READ FOR NAMES] " + number
	case ModeFull17XX:
		return "[17XX] " + number
	case ModeFYI:
		return "[FYI—Not 17XX] " + number
	default:
		return "[ADMIN/LOW RELEVANCE] " + number
	}
}

// BuildMessage renders one Slack message for all new messages.
func BuildMessage(now time.Time, summaries []Summary) string {
	parts := []string{
		fmt.Sprintf("*New MARADMINS detected* (%d) — %s\n", len(summaries), now.UTC().Format("2006-01-02")),
	}
	for _, s := range summaries {
		title := s.Title
		if title == "" {
			title = "MARADMIN"
		}
		parts = append(parts, fmt.Sprintf("*<%s|%s>*  _(Published: %s)_\n_%s_", s.Link, title, s.Published, Label(s.Mode, s.Number)))
		for _, b := range s.Bullets {
			parts = append(parts, "• "+b)
		}
		parts = append(parts, "")
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
