// Package rss fetches RSS/Atom feeds and normalizes their entries.
package rss

import "time"

// FeedItem is one normalized feed entry. It is not modified after Fetch returns.
type FeedItem struct {
	// ID is stable per source: guid, else link, else title.
	ID    string `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
	// Published is zero when the feed gave no parseable date.
	Published time.Time `json:"published"`
	// PublishedRaw is the date exactly as the feed wrote it.
	PublishedRaw string `json:"published_raw"`
	Text         string `json:"text"`
}

// HasDate reports whether the item carries a known publish time.
func (i FeedItem) HasDate() bool {
	return !i.Published.IsZero()
}
