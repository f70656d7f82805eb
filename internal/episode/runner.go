package episode

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/llm"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/slack"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/state"
)

// FeedName keys this job's entry in the state document.
const FeedName = "episode"

const (
	summaryInstructions = "You summarize cybersecurity podcast transcripts accurately and concisely."
	summaryRequest      = "Summarize this episode as:\n" +
		"1) 8-12 bullets (each starts with a bold headline)\n" +
		"2) 3 key takeaways\n" +
		"3) Any action items for a security team\n\n" +
		"TRANSCRIPT:\n"
)

// Recorder archives posted items.
type Recorder interface {
	Record(ctx context.Context, runID, feed string, items []rss.FeedItem) error
}

// Options are the per-run knobs.
type Options struct {
	StateFile string
	BaseURL   string
	Patterns  []string
	DaysBack  int
	OutDir    string
	Location  *time.Location
	DryRun    bool
	// Post also delivers the summary to Slack.
	Post     bool
	MaxChars int
}

// Result describes the episode a run found.
type Result struct {
	Day            time.Time
	URL            string
	AudioPath      string
	TranscriptPath string
	SummaryPath    string
	Duration       time.Duration
}

// Runner executes one episode pass.
type Runner struct {
	Client      *http.Client
	Transcriber llm.Transcriber
	LLM         llm.Provider
	Sink        slack.Sink // required with Options.Post
	Archive     Recorder   // optional

	// Inspect validates the downloaded audio; defaults to Duration.
	Inspect  func(path string) (time.Duration, error)
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

func (r *Runner) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// Run looks for the newest unprocessed episode and, unless DryRun, downloads,
// transcribes and summarizes it. It returns nil, nil when no new episode exists.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	now := r.now()
	runID := r.runID()

	st := state.Load(opts.StateFile, state.WithLegacyFeed(FeedName))
	st.Stamp(now, runID, opts.DryRun)
	fs := st.Feed(FeedName)
	fs.LastRun = now.UTC().Truncate(time.Second)

	res := r.find(ctx, fs, opts, now)
	if res == nil {
		logger.Infof("[episode] no new episode found (checked %d day(s))", daysBack(opts)+1)
		return nil, r.save(opts.StateFile, st)
	}
	logger.Infof("[episode] found new episode for %s: %s", res.Day.Format("2006-01-02"), res.URL)
	if opts.DryRun {
		return res, r.save(opts.StateFile, st)
	}

	base := filepath.Join(opts.OutDir, "CSH_"+res.Day.Format("20060102"))
	res.AudioPath = base + ".mp3"
	res.TranscriptPath = base + ".transcript.txt"
	res.SummaryPath = base + ".summary.md"

	if _, err := Download(ctx, r.client(), res.URL, res.AudioPath); err != nil {
		return nil, err
	}
	inspect := r.Inspect
	if inspect == nil {
		inspect = Duration
	}
	dur, err := inspect(res.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("invalid episode audio: %w", err)
	}
	res.Duration = dur.Round(time.Second)

	logger.Infof("[episode] transcribing %s (%s)", res.AudioPath, res.Duration)
	transcript, err := r.Transcriber.Transcribe(ctx, res.AudioPath)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(res.TranscriptPath, []byte(transcript), 0644); err != nil {
		return nil, fmt.Errorf("write transcript: %w", err)
	}

	logger.Infof("[episode] summarizing")
	summary, err := llm.Ask(ctx, r.LLM, summaryInstructions, summaryRequest+transcript)
	if err != nil {
		return nil, fmt.Errorf("summarize episode: %w", err)
	}
	if summary == "" {
		summary = "(No summary produced.)"
	}
	if err := os.WriteFile(res.SummaryPath, []byte(summary), 0644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	processed := now.UTC().Truncate(time.Second)
	if opts.Post {
		msg := fmt.Sprintf("*CISO Series Cybersecurity Headlines* - %s\n<%s|Episode audio> (%s)\n\n%s",
			res.Day.Format("2006-01-02"), res.URL, res.Duration, summary)
		if err := slack.Deliver(ctx, r.Sink, msg, opts.MaxChars); err != nil {
			return nil, fmt.Errorf("post episode summary: %w", err)
		}
		fs.LastPostedAt = &processed
		if r.Archive != nil {
			item := rss.FeedItem{ID: res.URL, Title: "CSH " + res.Day.Format("2006-01-02"), Link: res.URL}
			if err := r.Archive.Record(ctx, runID, FeedName, []rss.FeedItem{item}); err != nil {
				logger.Warnf("[episode] archive: %v", err)
			}
		}
	}

	if fs.Episodes == nil {
		fs.Episodes = map[string]state.Episode{}
	}
	fs.Episodes[res.URL] = state.Episode{
		Date:           res.Day.Format("2006-01-02"),
		AudioPath:      res.AudioPath,
		TranscriptPath: res.TranscriptPath,
		SummaryPath:    res.SummaryPath,
		Duration:       res.Duration.String(),
		ProcessedAt:    processed,
	}
	fs.MarkSeen(res.URL)
	fs.LastSeenID = res.URL

	if err := r.save(opts.StateFile, st); err != nil {
		return nil, err
	}
	logger.Infof("[episode] transcript: %s", res.TranscriptPath)
	logger.Infof("[episode] summary: %s", res.SummaryPath)
	return res, nil
}

// find checks today and up to DaysBack earlier days, newest first. For each
// day the first candidate URL that exists decides the day; an already
// processed URL moves on to the previous day.
func (r *Runner) find(ctx context.Context, fs *state.FeedState, opts Options, now time.Time) *Result {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	for d := 0; d <= daysBack(opts); d++ {
		day := today.AddDate(0, 0, -d)
		url := r.available(ctx, CandidateURLs(opts.BaseURL, patterns, day))
		if url == "" {
			continue
		}
		if fs.Seen.Has(url) {
			logger.Debugf("[episode] %s already processed", url)
			continue
		}
		return &Result{Day: day, URL: url}
	}
	return nil
}

func (r *Runner) available(ctx context.Context, urls []string) string {
	for _, u := range urls {
		if Exists(ctx, r.client(), u) {
			return u
		}
	}
	return ""
}

func (r *Runner) save(path string, st *state.RunState) error {
	if err := state.Save(path, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func daysBack(opts Options) int {
	if opts.DaysBack < 0 {
		return 0
	}
	return opts.DaysBack
}
