// Package news posts the CISO Series headline roll-up and a filtered
// RealClearDefense digest.
package news

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/filter"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/llm"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/slack"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/state"
)

const (
	FeedCISO = "ciso"
	FeedRCD  = "rcd"

	maxTags   = 3
	separator = "\n\n" + "------------------------------" + "\n\n"
)

// Fetcher returns the entries of one feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]rss.FeedItem, error)
}

// Recorder archives posted items.
type Recorder interface {
	Record(ctx context.Context, runID, feed string, items []rss.FeedItem) error
}

// Options are the per-run knobs.
type Options struct {
	StateFile   string
	CISOFeedURL string
	RCDFeedURL  string
	Location    *time.Location

	DryRun bool
	Force  bool

	CISOMaxBullets       int
	CISOSentences        int
	RCDWindowDays        int
	RCDMaxItems          int
	RCDBulletsPerArticle int

	MaxChars int
}

// Runner executes one news pass.
type Runner struct {
	Feeds   Fetcher
	LLM     llm.Provider
	Sink    slack.Sink
	Archive Recorder // optional

	Now      func() time.Time
	NewRunID func() string
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) runID() string {
	if r.NewRunID != nil {
		return r.NewRunID()
	}
	return uuid.NewString()
}

// pending holds what will be marked seen once the post succeeds.
type pending struct {
	feed  string
	items []rss.FeedItem
}

// Run fetches both feeds, summarizes what is new, posts it and saves state.
// State is not written when summarizing or posting fails.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	now := r.now()
	runID := r.runID()

	st := state.Load(opts.StateFile, state.WithLegacyFeed(FeedCISO))
	st.Stamp(now, runID, opts.DryRun)

	var (
		sections []string
		toMark   []pending
	)

	section, p, err := r.runCISO(ctx, st.Feed(FeedCISO), opts, now)
	if err != nil {
		return err
	}
	if section != "" {
		sections = append(sections, section)
	}
	if len(p.items) > 0 {
		toMark = append(toMark, p)
	}

	section, p, err = r.runRCD(ctx, st.Feed(FeedRCD), opts, now)
	if err != nil {
		return err
	}
	if section != "" {
		sections = append(sections, section)
	}
	if len(p.items) > 0 {
		toMark = append(toMark, p)
	}

	if len(sections) > 0 {
		msg := strings.Join(sections, separator)
		if err := slack.Deliver(ctx, r.Sink, msg, opts.MaxChars); err != nil {
			return fmt.Errorf("post digest: %w", err)
		}
	} else {
		logger.Infof("[news] nothing new to post")
	}

	if !opts.DryRun {
		posted := now.UTC().Truncate(time.Second)
		for _, p := range toMark {
			fs := st.Feed(p.feed)
			fs.MarkSeen(filter.IDs(p.items)...)
			fs.LastPostedAt = &posted
			r.record(ctx, runID, p)
		}
	}

	if err := state.Save(opts.StateFile, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	logger.Infof("[news] run %s done (%d sections)", runID, len(sections))
	return nil
}

func (r *Runner) record(ctx context.Context, runID string, p pending) {
	if r.Archive == nil {
		return
	}
	if err := r.Archive.Record(ctx, runID, p.feed, p.items); err != nil {
		logger.Warnf("[news] archive %s: %v", p.feed, err)
	}
}

// runCISO summarizes the newest roll-up entry when it has not been posted yet.
// Dry runs always summarize it.
func (r *Runner) runCISO(ctx context.Context, fs *state.FeedState, opts Options, now time.Time) (string, pending, error) {
	p := pending{feed: FeedCISO}
	fs.LastRun = now.UTC().Truncate(time.Second)

	items, err := r.Feeds.Fetch(ctx, opts.CISOFeedURL)
	if err != nil {
		logger.Errorf("[news] CISO feed failed: %v", err)
		return "", p, nil
	}
	if len(items) == 0 {
		return "", p, nil
	}

	ep := items[0]
	fs.LastSeenID = ep.ID
	fs.LastSeenTitle = ep.Title
	fs.LastSeenPublished = ep.PublishedRaw

	selected := filter.SelectNew(items[:1], fs.Seen, nil, opts.Force)
	logger.Debugf("[news] CISO seen=%v selected=%d", fs.Seen.Has(ep.ID), len(selected))
	if len(selected) == 0 && !opts.DryRun {
		return "", p, nil
	}

	bullets, err := llm.Ask(ctx, r.LLM,
		cisoInstructions(atLeast(opts.CISOMaxBullets, 1), atLeast(opts.CISOSentences, 1)),
		cisoInput(ep))
	if err != nil {
		return "", p, fmt.Errorf("summarize CISO roll-up: %w", err)
	}
	if bullets == "" {
		bullets = fmt.Sprintf("- <%s|%s> - (No roll-up text found.)", ep.Link, ep.Title)
	}

	p.items = selected
	return fmt.Sprintf("*Cyber Security Headlines* - %s\n<%s|Episode link>\n\n%s", ep.PublishedRaw, ep.Link, bullets), p, nil
}

// runRCD summarizes new in-window RealClearDefense items that match an
// interest topic.
func (r *Runner) runRCD(ctx context.Context, fs *state.FeedState, opts Options, now time.Time) (string, pending, error) {
	p := pending{feed: FeedRCD}
	fs.LastRun = now.UTC().Truncate(time.Second)

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	windowDays := atLeast(opts.RCDWindowDays, 0)
	window := filter.DayWindow(now, windowDays, loc)
	today := now.In(loc).Format("2006-01-02")

	items, err := r.Feeds.Fetch(ctx, opts.RCDFeedURL)
	if err != nil {
		logger.Errorf("[news] RCD feed failed: %v", err)
		items = nil
	}

	selected, counts := filter.Select(items, fs.Seen, filter.Options{
		Window: window,
		Force:  opts.Force,
		Match: func(it rss.FeedItem) bool {
			return filter.DefenseTopics.Matches(it.Title, rss.PlainText(it.Text))
		},
		Limit: atLeast(opts.RCDMaxItems, 1),
	})

	fs.LastScanDay = today
	fs.LastScanCount = len(items)
	fs.LastPipeline = &state.PipelineCounts{
		Total:       counts.Total,
		InWindow:    counts.InWindow,
		NewInWindow: counts.NewInWindow,
		Matched:     counts.Matched,
		Selected:    counts.Selected,
	}
	logger.Debugf("[news] RCD today=%s window_days=%d pipeline=%+v", today, windowDays, counts)

	if len(selected) == 0 {
		return "", p, nil
	}

	cands := make([]candidate, 0, len(selected))
	tagSet := map[string]bool{}
	for _, it := range selected {
		tags := filter.DefenseTopics.Tags(it.Title, rss.PlainText(it.Text), maxTags)
		for _, t := range tags {
			tagSet[t] = true
		}
		cands = append(cands, candidate{FeedItem: it, Tags: tags})
	}

	bullets, err := llm.Ask(ctx, r.LLM,
		rcdInstructions(clamp(opts.RCDBulletsPerArticle, 1, 6)),
		rcdInput(cands))
	if err != nil {
		return "", p, fmt.Errorf("summarize RealClearDefense: %w", err)
	}
	if bullets == "" {
		bullets = "- (No RealClearDefense summary produced.)"
	}

	p.items = selected
	header := fmt.Sprintf("*RealClearDefense (window: today+%dd, filtered: %s)* - %s", windowDays, tagLine(tagSet), today)
	return header + "\n\n" + bullets, p, nil
}

func tagLine(tags map[string]bool) string {
	if len(tags) == 0 {
		return "Filtered"
	}
	names := make([]string, 0, len(tags))
	for t := range tags {
		names = append(names, t)
	}
	sort.Strings(names)
	return strings.Join(names, " / ")
}

func atLeast(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
