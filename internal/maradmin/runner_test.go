package maradmin

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/llm"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/state"
)

const feedURL = "https://feeds.test/maradmin"

var testNow = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

type fakeSite struct {
	items     []rss.FeedItem
	feedErr   error
	pages     map[string]string
	pageErrs  map[string]error
	pageCalls []string
}

func (f *fakeSite) Fetch(context.Context, string) ([]rss.FeedItem, error) {
	return f.items, f.feedErr
}

func (f *fakeSite) FetchPage(_ context.Context, url string) (*goquery.Document, error) {
	f.pageCalls = append(f.pageCalls, url)
	if err := f.pageErrs[url]; err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.pages[url]))
}

type recordingSink struct {
	sent []string
	err  error
}

func (s *recordingSink) Send(_ context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

type countingLLM struct {
	calls  int
	err    error
	inputs []string
}

func (c *countingLLM) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	c.calls++
	c.inputs = append(c.inputs, msgs[len(msgs)-1].Content)
	if c.err != nil {
		return "", c.err
	}
	return "- first\n• second\n* third\n- fourth", nil
}

func forbidden(url string) error {
	return &rss.HTTPError{URL: url, StatusCode: http.StatusForbidden}
}

func testSite() *fakeSite {
	return &fakeSite{
		items: []rss.FeedItem{
			{ID: "a", Title: "MARADMIN 100/24 FY25 1721 RETENTION BONUS", Link: "https://m/a", PublishedRaw: "Sun, 10 Mar 2024",
				Text: "<p>MARADMIN 100/24</p><p>Eligible MOS 1721.</p>"},
			{ID: "b", Title: "RESULTS OF THE FY25 BOARD", Link: "https://m/b", PublishedRaw: "Sat, 09 Mar 2024"},
			{ID: "c", Title: "UNIFORM UPDATE", Link: "https://m/c", Text: "Short excerpt about uniforms"},
			{ID: "d", Title: "ANNUAL TRAINING", Link: "https://m/d"},
		},
		pages: map[string]string{
			"https://m/b": `<html><body><nav>Menu</nav><div><p>MARADMIN 101/24</p><p>RESULTS OF THE BOARD</p></div></body></html>`,
		},
		pageErrs: map[string]error{
			"https://m/c": forbidden("https://m/c"),
			"https://m/d": forbidden("https://m/d"),
		},
	}
}

func testOptions(t *testing.T) Options {
	return Options{
		StateFile: filepath.Join(t.TempDir(), ".maradmin_state.json"),
		FeedURL:   feedURL,
		Max:       10,
	}
}

func newRunner(site *fakeSite, model llm.Provider, sink *recordingSink) *Runner {
	return &Runner{
		Feeds:    site,
		LLM:      model,
		Sink:     sink,
		Now:      func() time.Time { return testNow },
		NewRunID: func() string { return "run-1" },
	}
}

func TestRunSummarizesAndPosts(t *testing.T) {
	opts := testOptions(t)
	site := testSite()
	model := &countingLLM{}
	sink := &recordingSink{}
	r := newRunner(site, model, sink)

	if err := r.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("expected one post, got %d", len(sink.sent))
	}
	msg := sink.sent[0]
	for _, want := range []string{
		"*New MARADMINS detected* (4) — 2024-03-10",
		"_[17XX] 100/24_\n• first\n• second\n• third\n• fourth\n",
		"_[RESULTS — READ FOR NAMES] 101/24_\n• first\n• second\n\n",
		"_[ADMIN/LOW RELEVANCE] MARADMIN_\n• first\n• " + blockedNote,
		"*<https://m/d|ANNUAL TRAINING>*  _(Published: )_\n_[ADMIN/LOW RELEVANCE] MARADMIN_\n• " + openLinkBullet,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	if model.calls != 3 {
		t.Errorf("model calls = %d, want 3", model.calls)
	}
	if diff := cmp.Diff([]string{"https://m/b", "https://m/c", "https://m/d"}, site.pageCalls); diff != "" {
		t.Errorf("page fetches mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(model.inputs[2], "MARADMIN text:\nShort excerpt about uniforms") {
		t.Errorf("blocked page should fall back to the RSS excerpt:\n%s", model.inputs[2])
	}

	st := state.Load(opts.StateFile)
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, st.Feed(FeedName).Seen.Sorted()); diff != "" {
		t.Errorf("seen mismatch (-want +got):\n%s", diff)
	}

	if err := r.Run(context.Background(), opts); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(sink.sent) != 1 || model.calls != 3 {
		t.Errorf("second run should be a no-op, posts=%d calls=%d", len(sink.sent), model.calls)
	}
}

func TestRunMaxLimitsEntries(t *testing.T) {
	opts := testOptions(t)
	opts.Max = 1
	sink := &recordingSink{}
	r := newRunner(testSite(), &countingLLM{}, sink)

	if err := r.Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sink.sent[0], "(1)") {
		t.Errorf("expected a single entry:\n%s", sink.sent[0])
	}
}

func TestRunShowRaw(t *testing.T) {
	opts := testOptions(t)
	opts.ShowRaw = true
	var raw bytes.Buffer
	sink := &recordingSink{}
	r := newRunner(testSite(), nil, sink)
	r.Raw = &raw

	if err := r.Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(raw.String(), "--- MARADMIN 100/24 FY25 1721 RETENTION BONUS ---") {
		t.Errorf("raw output missing title:\n%s", raw.String())
	}
	if !strings.Contains(raw.String(), "Mode: full_17xx | Category: GENERAL | MARADMIN: 100/24") {
		t.Errorf("raw output missing decision:\n%s", raw.String())
	}
	if !strings.Contains(sink.sent[0], "(show-raw enabled; not summarized)") {
		t.Errorf("message missing show-raw bullet:\n%s", sink.sent[0])
	}
	st := state.Load(opts.StateFile)
	if len(st.Feed(FeedName).Seen) != 0 {
		t.Error("show-raw must not mark items seen")
	}
}

func TestRunFeedErrorIsFatal(t *testing.T) {
	opts := testOptions(t)
	site := testSite()
	site.feedErr = errors.New("503")
	r := newRunner(site, &countingLLM{}, &recordingSink{})

	if err := r.Run(context.Background(), opts); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(opts.StateFile); !os.IsNotExist(err) {
		t.Errorf("state file should not be written, stat err = %v", err)
	}
}

func TestRunSummarizeErrorKeepsState(t *testing.T) {
	opts := testOptions(t)
	sink := &recordingSink{}
	r := newRunner(testSite(), &countingLLM{err: errors.New("quota")}, sink)

	if err := r.Run(context.Background(), opts); err == nil {
		t.Fatal("expected error")
	}
	if len(sink.sent) != 0 {
		t.Error("nothing should be posted")
	}
	if _, err := os.Stat(opts.StateFile); !os.IsNotExist(err) {
		t.Errorf("state file should not be written, stat err = %v", err)
	}
}

func TestRunNothingNewSavesRunMetadata(t *testing.T) {
	opts := testOptions(t)
	seeded := state.New()
	seeded.Feed(FeedName).MarkSeen("a", "b", "c", "d")
	if err := state.Save(opts.StateFile, seeded); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	r := newRunner(testSite(), &countingLLM{}, sink)
	if err := r.Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if len(sink.sent) != 0 {
		t.Error("nothing should be posted")
	}
	st := state.Load(opts.StateFile)
	if st.LastRunID != "run-1" || st.Feed(FeedName).LastRun.IsZero() {
		t.Errorf("run metadata not saved: %+v", st)
	}
}
