package filter

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/state"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func item(id, date string) rss.FeedItem {
	it := rss.FeedItem{ID: id, Title: "title " + id}
	if date != "" {
		it.Published = day(date)
	}
	return it
}

func TestSelectNewExample(t *testing.T) {
	items := []rss.FeedItem{item("A", "2024-01-01"), item("B", "2024-01-02")}
	got := SelectNew(items, state.NewSeenSet("A"), nil, false)
	if diff := cmp.Diff([]string{"B"}, IDs(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectNewForceIgnoresSeen(t *testing.T) {
	items := []rss.FeedItem{item("A", "2024-01-01"), item("B", "2024-01-02")}
	got := SelectNew(items, state.NewSeenSet("A", "B"), nil, true)
	if diff := cmp.Diff([]string{"A", "B"}, IDs(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectNewWindowAppliesEvenWithForce(t *testing.T) {
	w := &Window{Start: day("2024-01-02"), End: day("2024-01-04")}
	items := []rss.FeedItem{
		item("old", "2024-01-01"),
		item("in1", "2024-01-02"),
		item("undated", ""),
		item("in2", "2024-01-03"),
		item("future", "2024-01-04"),
	}
	for _, force := range []bool{false, true} {
		got := SelectNew(items, state.NewSeenSet("in1"), w, force)
		want := []string{"in2"}
		if force {
			want = []string{"in1", "in2"}
		}
		if diff := cmp.Diff(want, IDs(got)); diff != "" {
			t.Errorf("force=%v mismatch (-want +got):\n%s", force, diff)
		}
	}
}

func TestSelectNewUndatedKeptWithoutWindow(t *testing.T) {
	got := SelectNew([]rss.FeedItem{item("u", "")}, nil, nil, false)
	if len(got) != 1 {
		t.Fatalf("undated item should pass without a window, got %v", IDs(got))
	}
}

func TestSelectNewIdempotentAfterStateUpdate(t *testing.T) {
	items := []rss.FeedItem{item("A", "2024-01-01"), item("B", "2024-01-02"), item("C", "")}
	fs := &state.FeedState{}

	first := SelectNew(items, fs.Seen, nil, false)
	if len(first) != 3 {
		t.Fatalf("first run should select all, got %v", IDs(first))
	}
	fs.MarkSeen(IDs(first)...)

	if second := SelectNew(items, fs.Seen, nil, false); len(second) != 0 {
		t.Errorf("second run should be empty, got %v", IDs(second))
	}
}

// TestSelectNewProperties checks the seen and window invariants on random input.
func TestSelectNewProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := day("2024-03-01")
	w := &Window{Start: base.AddDate(0, 0, 3), End: base.AddDate(0, 0, 7)}

	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		items := make([]rss.FeedItem, n)
		seen := state.SeenSet{}
		for i := range items {
			id := fmt.Sprintf("id-%d", rng.Intn(8))
			items[i] = rss.FeedItem{ID: id}
			if rng.Intn(5) > 0 {
				items[i].Published = base.AddDate(0, 0, rng.Intn(10))
			}
			if rng.Intn(2) == 0 {
				seen.Add(id)
			}
		}
		var window *Window
		if rng.Intn(2) == 0 {
			window = w
		}

		for _, it := range SelectNew(items, seen, window, false) {
			if seen.Has(it.ID) {
				t.Fatalf("round %d: force=false returned seen id %s", round, it.ID)
			}
		}

		forced := SelectNew(items, seen, window, true)
		var want []string
		for _, it := range items {
			if window == nil || window.Contains(it.Published) {
				want = append(want, it.ID)
			}
		}
		if diff := cmp.Diff(want, IDs(forced)); diff != "" && !(len(want) == 0 && len(forced) == 0) {
			t.Fatalf("round %d: force=true should keep every in-window item (-want +got):\n%s", round, diff)
		}
	}
}

func TestSelectPipelineCounts(t *testing.T) {
	w := &Window{Start: day("2024-01-02"), End: day("2024-01-05")}
	items := []rss.FeedItem{
		{ID: "1", Title: "Marines train", Published: day("2024-01-02")},
		{ID: "2", Title: "Gardening tips", Published: day("2024-01-03")},
		{ID: "3", Title: "Cyber attack", Published: day("2024-01-03")},
		{ID: "4", Title: "Space launch", Published: day("2024-01-04")},
		{ID: "5", Title: "Drone swarm", Published: day("2024-01-01")},
		{ID: "6", Title: "Quantum radar", Published: day("2024-01-04")},
	}
	match := func(it rss.FeedItem) bool { return DefenseTopics.Matches(it.Title, it.Text) }

	got, counts := Select(items, state.NewSeenSet("4"), Options{Window: w, Match: match, Limit: 2})
	if diff := cmp.Diff([]string{"1", "3"}, IDs(got)); diff != "" {
		t.Errorf("selected mismatch (-want +got):\n%s", diff)
	}
	want := Counts{Total: 6, InWindow: 5, NewInWindow: 4, Matched: 3, Selected: 2}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectLimit(t *testing.T) {
	items := []rss.FeedItem{item("a", ""), item("b", ""), item("c", "")}
	if got, _ := Select(items, nil, Options{}); len(got) != 3 {
		t.Errorf("zero limit should be unlimited, got %d", len(got))
	}
	if got, _ := Select(items, nil, Options{Limit: -3}); len(got) != 1 {
		t.Errorf("negative limit should clamp to 1, got %d", len(got))
	}
}

func TestDayWindow(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 03:30 UTC on Jan 3 is still Jan 2 in New York.
	now := time.Date(2024, 1, 3, 3, 30, 0, 0, time.UTC)

	w := DayWindow(now, 1, ny)
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"start of yesterday", time.Date(2024, 1, 1, 0, 0, 0, 0, ny), true},
		{"late today", time.Date(2024, 1, 2, 23, 59, 0, 0, ny), true},
		{"before window", time.Date(2023, 12, 31, 23, 59, 0, 0, ny), false},
		{"tomorrow", time.Date(2024, 1, 3, 0, 0, 0, 0, ny), false},
		{"zero", time.Time{}, false},
	}
	for _, tc := range tests {
		if got := w.Contains(tc.t); got != tc.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", tc.name, tc.t, got, tc.want)
		}
	}

	today := DayWindow(now, -5, ny)
	if today.Contains(time.Date(2024, 1, 1, 12, 0, 0, 0, ny)) {
		t.Error("negative daysBack should mean today only")
	}
	if !today.Contains(time.Date(2024, 1, 2, 12, 0, 0, 0, ny)) {
		t.Error("today should be inside")
	}
}

func TestDefenseTopicTags(t *testing.T) {
	tags := DefenseTopics.Tags("Marines test AI drone", "satellite link and ransomware threat", 3)
	if diff := cmp.Diff([]string{"USMC", "CYBER", "SPACE"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if DefenseTopics.Matches("Gardening", "tomatoes in spring") {
		t.Error("unrelated text should not match")
	}
	if DefenseTopics.Matches("Paint", "said the spacer") {
		t.Error("word boundaries should prevent partial matches")
	}
	if !DefenseTopics.Matches("ZERO TRUST rollout", "") {
		t.Error("matching should be case-insensitive")
	}
}
