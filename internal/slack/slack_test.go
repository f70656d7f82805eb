package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestChunkShortMessage(t *testing.T) {
	got := Chunk("hello\nworld", 100)
	if diff := cmp.Diff([]string{"hello\nworld"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestChunkSplitsOnLines(t *testing.T) {
	msg := "aaaa\nbbbb\ncccc\ndd"
	got := Chunk(msg, 10)
	want := []string{"aaaa\nbbbb\n", "cccc\ndd"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if strings.Join(got, "") != msg {
		t.Error("chunks should join back to the message")
	}
}

func TestChunkLongLine(t *testing.T) {
	long := strings.Repeat("x", 25)
	got := Chunk("a\n"+long+"\nb", 10)
	want := []string{"a\n", long + "\n", "b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestChunkCountsCharacters(t *testing.T) {
	line := strings.Repeat("—", 4) + "\n" // 5 characters, 13 bytes
	msg := strings.Repeat(line, 6)
	for _, c := range Chunk(msg, 10) {
		if n := utf8.RuneCountInString(c); n > 10 {
			t.Errorf("chunk has %d characters", n)
		}
	}
	if got := len(Chunk(msg, 10)); got != 3 {
		t.Errorf("expected 3 chunks, got %d", got)
	}
}

func TestWebhookSinkPosts(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		got = append(got, body.Text)
		mu.Unlock()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, WithMinInterval(0))
	if err := Deliver(context.Background(), sink, "line one\nline two\n", 10); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"line one\n", "line two\n"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWebhookSinkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(strings.Repeat("e", 1000)))
	}))
	defer srv.Close()

	err := NewWebhookSink(srv.URL, WithMinInterval(0)).Send(context.Background(), "hi")
	var whErr *WebhookError
	if !errors.As(err, &whErr) {
		t.Fatalf("expected WebhookError, got %v", err)
	}
	if whErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", whErr.StatusCode)
	}
	if len(whErr.Body) != maxErrorBody {
		t.Errorf("body length = %d, want %d", len(whErr.Body), maxErrorBody)
	}
}

func TestWebhookSinkPacing(t *testing.T) {
	var (
		mu     sync.Mutex
		stamps []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, WithMinInterval(50*time.Millisecond))
	for i := 0; i < 3; i++ {
		if err := sink.Send(context.Background(), "x"); err != nil {
			t.Fatal(err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if elapsed := stamps[2].Sub(stamps[0]); elapsed < 90*time.Millisecond {
		t.Errorf("posts were not paced: %v", elapsed)
	}
}

type failingSink struct {
	sent   int
	failAt int
}

func (f *failingSink) Send(context.Context, string) error {
	f.sent++
	if f.sent == f.failAt {
		return errors.New("boom")
	}
	return nil
}

func TestDeliverStopsAtFirstFailure(t *testing.T) {
	sink := &failingSink{failAt: 2}
	err := Deliver(context.Background(), sink, "aaaa\nbbbb\ncccc\n", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if sink.sent != 2 {
		t.Errorf("sent = %d, want 2", sink.sent)
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	if err := Deliver(context.Background(), WriterSink{W: &buf}, "digest", 0); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "digest\n" {
		t.Errorf("output = %q", buf.String())
	}
}
