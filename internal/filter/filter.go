// Package filter decides which fetched feed items are new for this run.
package filter

import (
	"time"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/state"
)

// Window is the half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow covers local today plus daysBack previous calendar days in loc.
// daysBack 0 means today only; negative values are treated as 0.
func DayWindow(now time.Time, daysBack int, loc *time.Location) *Window {
	if loc == nil {
		loc = time.UTC
	}
	if daysBack < 0 {
		daysBack = 0
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return &Window{
		Start: today.AddDate(0, 0, -daysBack),
		End:   today.AddDate(0, 0, 1),
	}
}

// Contains reports whether t falls inside the window. The zero time (unknown
// date) is never inside.
func (w *Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// SelectNew returns the items eligible for this run, in input order.
// With a window, items outside it (or undated) are dropped even when force is
// set. Without force, items whose ID is in seen are dropped as well.
func SelectNew(items []rss.FeedItem, seen state.SeenSet, window *Window, force bool) []rss.FeedItem {
	out, _ := Select(items, seen, Options{Window: window, Force: force})
	return out
}

// Options extends SelectNew with an interest predicate and a cap.
type Options struct {
	Window *Window
	Force  bool
	// Match, when set, must accept an item for it to be selected.
	Match func(rss.FeedItem) bool
	// Limit caps the selection. Zero means unlimited; negative is treated as 1.
	Limit int
}

// Counts records how many items survived each stage.
type Counts struct {
	Total       int
	InWindow    int
	NewInWindow int
	Matched     int
	Selected    int
}

// Select runs window, seen and match stages in that order and applies Limit.
func Select(items []rss.FeedItem, seen state.SeenSet, opts Options) ([]rss.FeedItem, Counts) {
	c := Counts{Total: len(items)}
	var out []rss.FeedItem
	for _, it := range items {
		if opts.Window != nil && !opts.Window.Contains(it.Published) {
			continue
		}
		c.InWindow++

		if !opts.Force && seen.Has(it.ID) {
			continue
		}
		c.NewInWindow++

		if opts.Match != nil && !opts.Match(it) {
			continue
		}
		c.Matched++

		out = append(out, it)
	}

	limit := opts.Limit
	if limit < 0 {
		limit = 1
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	c.Selected = len(out)
	return out, c
}

// IDs returns the identifiers of items in order.
func IDs(items []rss.FeedItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
