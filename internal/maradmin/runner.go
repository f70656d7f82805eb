package maradmin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/filter"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/llm"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/slack"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/state"
)

// FeedName keys this job's entry in the state document.
const FeedName = "maradmin"

const (
	openLinkBullet = "Open the link to read this MARADMIN."
	blockedNote    = "(Note: full text fetch blocked; using RSS excerpt — open link for full details.)"
	rawPreview     = 4000
)

// Fetcher reads the feed and message pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]rss.FeedItem, error)
	FetchPage(ctx context.Context, url string) (*goquery.Document, error)
}

// Recorder archives posted items.
type Recorder interface {
	Record(ctx context.Context, runID, feed string, items []rss.FeedItem) error
}

// Options are the per-run knobs.
type Options struct {
	StateFile string
	FeedURL   string
	Max       int
	DryRun    bool
	Force     bool
	// ShowRaw prints the extracted text and skips the model. It never marks
	// items seen.
	ShowRaw  bool
	MaxChars int
}

// Runner executes one MARADMIN pass.
type Runner struct {
	Feeds   Fetcher
	LLM     llm.Provider // unused with ShowRaw
	Sink    slack.Sink
	Archive Recorder  // optional
	Raw     io.Writer // ShowRaw output

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

// Run fetches the feed, summarizes new messages into one Slack message,
// posts it and saves state. A feed error aborts the run.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	now := r.now()
	runID := r.runID()

	st := state.Load(opts.StateFile, state.WithLegacyFeed(FeedName))
	st.Stamp(now, runID, opts.DryRun || opts.ShowRaw)
	fs := st.Feed(FeedName)
	fs.LastRun = now.UTC().Truncate(time.Second)

	items, err := r.Feeds.Fetch(ctx, opts.FeedURL)
	if err != nil {
		return fmt.Errorf("fetch MARADMIN feed: %w", err)
	}
	fs.LastScanCount = len(items)

	limit := opts.Max
	if limit < 1 {
		limit = 1
	}
	if len(items) > limit {
		items = items[:limit]
	}

	fresh := filter.SelectNew(items, fs.Seen, nil, opts.Force)
	if len(fresh) == 0 {
		logger.Infof("[maradmin] no new messages (%d checked)", len(items))
		return r.save(opts.StateFile, st)
	}
	fs.LastSeenID = fresh[0].ID
	fs.LastSeenTitle = fresh[0].Title
	fs.LastSeenPublished = fresh[0].PublishedRaw

	summaries := make([]Summary, 0, len(fresh))
	for _, it := range fresh {
		s, err := r.summarize(ctx, it, opts.ShowRaw)
		if err != nil {
			return err
		}
		summaries = append(summaries, s)
	}

	msg := BuildMessage(now, summaries)
	if err := slack.Deliver(ctx, r.Sink, msg, opts.MaxChars); err != nil {
		return fmt.Errorf("post MARADMIN digest: %w", err)
	}

	if !opts.DryRun && !opts.ShowRaw {
		posted := now.UTC().Truncate(time.Second)
		fs.MarkSeen(filter.IDs(fresh)...)
		fs.LastPostedAt = &posted
		if r.Archive != nil {
			if err := r.Archive.Record(ctx, runID, FeedName, fresh); err != nil {
				logger.Warnf("[maradmin] archive: %v", err)
			}
		}
	}

	logger.Infof("[maradmin] %d new messages processed", len(fresh))
	return r.save(opts.StateFile, st)
}

func (r *Runner) save(path string, st *state.RunState) error {
	if err := state.Save(path, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// messageText returns the best available body for it. blocked reports that the
// page fetch was refused and the RSS excerpt was used instead. An empty text
// means nothing usable was found.
func (r *Runner) messageText(ctx context.Context, it rss.FeedItem) (text string, blocked bool) {
	if looksLikeFullMessage(it.Text) {
		if text = rss.PlainText(it.Text); text != "" {
			return text, false
		}
	}

	if it.Link != "" {
		doc, err := r.Feeds.FetchPage(ctx, it.Link)
		if err == nil {
			return ExtractMessage(doc), false
		}
		logger.Warnf("[maradmin] page fetch %s: %v", it.Link, err)
		blocked = rss.IsStatus(err, http.StatusForbidden)
	}
	return rss.PlainText(it.Text), blocked
}

func (r *Runner) summarize(ctx context.Context, it rss.FeedItem, showRaw bool) (Summary, error) {
	s := Summary{
		ID:        it.ID,
		Title:     it.Title,
		Link:      it.Link,
		Published: it.PublishedRaw,
		Mode:      ModeMinimal,
	}

	text, blocked := r.messageText(ctx, it)
	if text == "" {
		s.Bullets = []string{openLinkBullet}
		return s, nil
	}

	s.Number = Number(it.Title, text)
	cat := Classify(it.Title, text)
	dec := ChooseMode(cat, it.Title, text)
	s.Mode = dec.Mode
	logger.Debugf("[maradmin] %s: category=%s mode=%s number=%q", it.ID, cat, dec.Mode, s.Number)

	if showRaw {
		if r.Raw != nil {
			number := s.Number
			if number == "" {
				number = "Not stated"
			}
			fmt.Fprintf(r.Raw, "\n--- %s ---\nLink: %s\nMode: %s | Category: %s | MARADMIN: %s\n%s\n",
				it.Title, it.Link, dec.Mode, cat, number, rss.Truncate(text, rawPreview))
		}
		s.Bullets = []string{"(show-raw enabled; not summarized)", "Mode: " + string(dec.Mode), "Open the link to read."}
		return s, nil
	}

	out, err := llm.Ask(ctx, r.LLM, instructions(dec.Mode, dec.Bullets), input(it.Title, it.Link, it.PublishedRaw, text))
	if err != nil {
		return s, fmt.Errorf("summarize %s: %w", it.ID, err)
	}
	s.Bullets = normalizeBullets(out, dec.Bullets)
	if blocked {
		s.Bullets = append(s.Bullets, blockedNote)
	}
	return s, nil
}
