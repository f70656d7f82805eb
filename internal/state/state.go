// Package state persists per-feed seen identifiers and run metadata between
// scheduled runs. A RunState is loaded once, owned by a single runner for the
// process lifetime and saved once at the end.
package state

import (
	"encoding/json"
	"sort"
	"time"
)

// SeenSet is the set of item identifiers already processed for one feed.
// It is serialized as a sorted JSON array.
type SeenSet map[string]struct{}

// NewSeenSet returns a set holding ids.
func NewSeenSet(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	s.Add(ids...)
	return s
}

// Has reports membership. A nil set contains nothing.
func (s SeenSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts ids, ignoring empty strings.
func (s SeenSet) Add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

// Sorted returns the members in ascending order.
func (s SeenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s SeenSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *SeenSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSeenSet(ids...)
	return nil
}

// PipelineCounts mirrors filter.Counts for persistence.
type PipelineCounts struct {
	Total       int `json:"total"`
	InWindow    int `json:"in_window"`
	NewInWindow int `json:"new_in_window"`
	Matched     int `json:"interest_new_in_window"`
	Selected    int `json:"selected"`
}

// Episode records one processed audio episode.
type Episode struct {
	Date           string    `json:"date"`
	AudioPath      string    `json:"audio_path"`
	TranscriptPath string    `json:"transcript_path"`
	SummaryPath    string    `json:"summary_path"`
	Duration       string    `json:"duration,omitempty"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// FeedState is the durable record for one feed.
type FeedState struct {
	Seen    SeenSet   `json:"seen"`
	LastRun time.Time `json:"last_run,omitzero"`
	Cursor  string    `json:"cursor,omitempty"`

	LastSeenID        string          `json:"last_seen_id,omitempty"`
	LastSeenTitle     string          `json:"last_seen_title,omitempty"`
	LastSeenPublished string          `json:"last_seen_published,omitempty"`
	LastPostedAt      *time.Time      `json:"last_posted_at,omitempty"`
	LastScanDay       string          `json:"last_scan_day,omitempty"`
	LastScanCount     int             `json:"last_scan_count,omitempty"`
	LastPipeline      *PipelineCounts `json:"last_pipeline_counts,omitempty"`

	Episodes map[string]Episode `json:"episodes,omitempty"`
}

// UnmarshalJSON also accepts the older "seen_ids" key.
func (f *FeedState) UnmarshalJSON(data []byte) error {
	type plain FeedState
	aux := struct {
		*plain
		SeenIDs SeenSet `json:"seen_ids"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if f.Seen == nil {
		f.Seen = SeenSet{}
	}
	for id := range aux.SeenIDs {
		f.Seen.Add(id)
	}
	return nil
}

// MarkSeen records ids as processed.
func (f *FeedState) MarkSeen(ids ...string) {
	if f.Seen == nil {
		f.Seen = SeenSet{}
	}
	f.Seen.Add(ids...)
}

// RunState is the whole state document for one job.
type RunState struct {
	Feeds       map[string]*FeedState `json:"feeds"`
	LastRun     time.Time             `json:"last_run,omitzero"`
	LastRunID   string                `json:"last_run_id,omitempty"`
	LastRunMode string                `json:"last_run_mode,omitempty"`
}

// New returns an empty RunState.
func New() *RunState {
	return &RunState{Feeds: map[string]*FeedState{}}
}

// Feed returns the state for name, creating it when missing.
func (s *RunState) Feed(name string) *FeedState {
	if s.Feeds == nil {
		s.Feeds = map[string]*FeedState{}
	}
	fs, ok := s.Feeds[name]
	if !ok || fs == nil {
		fs = &FeedState{Seen: SeenSet{}}
		s.Feeds[name] = fs
	}
	if fs.Seen == nil {
		fs.Seen = SeenSet{}
	}
	return fs
}

// Stamp records the start of a run.
func (s *RunState) Stamp(now time.Time, runID string, dryRun bool) {
	s.LastRun = now.UTC().Truncate(time.Second)
	s.LastRunID = runID
	s.LastRunMode = "post"
	if dryRun {
		s.LastRunMode = "dry-run"
	}
}
