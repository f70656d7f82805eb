package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
)

const (
	defaultFetchTimeout = 25 * time.Second
	maxErrorBody        = 400

	// Some publishers block non-browser agents.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
	feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"
)

// Fetcher downloads and parses feeds. It keeps no state between calls.
type Fetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent replaces the browser-like User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: defaultFetchTimeout},
		parser:    gofeed.NewParser(),
		userAgent: browserUserAgent,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch returns the feed's entries in feed order. Entries without any
// identity (no guid, link or title) are dropped.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]FeedItem, error) {
	feed, err := f.parseFeed(ctx, url)
	if err != nil {
		return nil, err
	}
	return convertItems(feed), nil
}

func (f *Fetcher) parseFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("[rss] build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", feedAccept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[rss] GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[rss] parse %s: %w", url, err)
	}
	return feed, nil
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("[rss] GET %s: HTTP %d: %s", e.URL, e.StatusCode, strings.TrimSpace(e.Body))
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == code
}

func convertItems(feed *gofeed.Feed) []FeedItem {
	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := convertItem(it)
		if item.ID == "" {
			logger.Debugf("[rss] skipping entry without guid/link/title")
			continue
		}
		items = append(items, item)
	}
	return items
}

func convertItem(it *gofeed.Item) FeedItem {
	title := strings.TrimSpace(it.Title)
	link := strings.TrimSpace(it.Link)

	text := strings.TrimSpace(it.Description)
	if text == "" {
		text = strings.TrimSpace(it.Content)
	}

	raw := strings.TrimSpace(it.Published)
	if raw == "" {
		raw = strings.TrimSpace(it.Updated)
	}

	var published time.Time
	switch {
	case it.PublishedParsed != nil:
		published = it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		published = it.UpdatedParsed.UTC()
	default:
		published = ParseTime(raw)
	}

	return FeedItem{
		ID:           NormalizeID(it.GUID, link, title),
		Title:        title,
		Link:         link,
		Published:    published,
		PublishedRaw: raw,
		Text:         text,
	}
}

// NormalizeID returns the first non-blank candidate, trimmed.
func NormalizeID(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// zoneOffsets are the named zones feeds still write, in seconds east of UTC.
var zoneOffsets = map[string]int{
	"UT": 0, "UTC": 0, "GMT": 0, "Z": 0,
	"EST": -5 * 3600, "EDT": -4 * 3600,
	"CST": -6 * 3600, "CDT": -5 * 3600,
	"MST": -7 * 3600, "MDT": -6 * 3600,
	"PST": -8 * 3600, "PDT": -7 * 3600,
	"AKST": -9 * 3600, "AKDT": -8 * 3600,
	"HST": -10 * 3600,
}

// ParseTime parses common RSS/Atom date strings into UTC. Unparseable or
// empty input yields the zero time, as does a zone name with no known offset.
func ParseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		// time.Parse gives an unknown zone name a zero offset.
		if name, offset := t.Zone(); offset == 0 && name != "" && name != "UTC" {
			known, ok := zoneOffsets[name]
			if !ok {
				return time.Time{}
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
				t.Nanosecond(), time.FixedZone(name, known))
		}
		return t.UTC()
	}
	return time.Time{}
}
