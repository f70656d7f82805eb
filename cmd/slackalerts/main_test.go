package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/config"
)

const maradminFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>MARADMINS</title>
<item><title>MARADMIN 100/24 FY25 1721 RETENTION BONUS</title><link>https://m.test/a</link><guid>a</guid>
<pubDate>Sun, 10 Mar 2024 10:00:00 -0400</pubDate><description>MARADMIN 100/24 Eligible MOS 1721.</description></item>
<item><title>MARADMIN 101/24 UNIFORM UPDATE</title><link>https://m.test/b</link><guid>b</guid>
<pubDate>Sat, 09 Mar 2024 10:00:00 -0400</pubDate><description>MARADMIN 101/24 Uniform board results.</description></item>
</channel></rss>`

// clearCredentials blanks every variable config.Load reads from the environment.
func clearCredentials(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "SLACK_WEBHOOK_URL",
		"CISO_FEED_URL", "FEED_URL", "RCD_FEED_URL", "MARADMIN_FEED_URL",
	} {
		t.Setenv(k, "")
	}
}

// writeConfig points every state file and output directory into a temp dir.
func writeConfig(t *testing.T, feedURL, episodeBase string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
news:
  state_file: %[1]s/news.json
maradmin:
  feed_url: %[2]s
  state_file: %[1]s/maradmin.json
  max: 10
episode:
  base_url: %[3]s
  days_back: 3
  state_file: %[1]s/episode.json
  out_dir: %[1]s/out
log:
  level: error
`, dir, feedURL, episodeBase)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd(&app{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"missing credential", fmt.Errorf("OPENAI_API_KEY: %w", config.ErrMissingCredential), 2},
		{"run failure", errors.New("fetch MARADMIN feed: HTTP 500"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestCommands(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/maradmin.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, maradminFeed)
		default:
			http.Error(w, "unavailable", http.StatusInternalServerError)
		}
	}))
	defer feed.Close()

	tests := []struct {
		name      string
		env       map[string]string
		configURL string // maradmin feed_url in the config file
		args      []string
		wantCode  int
		wantOut   []string
	}{
		{
			name:      "news without api key",
			configURL: feed.URL + "/maradmin.xml",
			args:      []string{"news", "--dry-run"},
			wantCode:  2,
		},
		{
			name:      "maradmin post without webhook",
			env:       map[string]string{"OPENAI_API_KEY": "sk-test"},
			configURL: feed.URL + "/maradmin.xml",
			args:      []string{"maradmin"},
			wantCode:  2,
		},
		{
			name:      "maradmin show-raw needs no credentials",
			configURL: feed.URL + "/maradmin.xml",
			args:      []string{"maradmin", "--show-raw"},
			wantOut:   []string{"*New MARADMINS detected* (2)", "--- MARADMIN 100/24 FY25 1721 RETENTION BONUS ---"},
		},
		{
			name:      "feed-url and max flags override config",
			configURL: "http://127.0.0.1:1/unreachable.xml",
			args:      []string{"maradmin", "--show-raw", "--feed-url", feed.URL + "/maradmin.xml", "--max", "1"},
			wantOut:   []string{"*New MARADMINS detected* (1)"},
		},
		{
			name:      "feed failure",
			configURL: feed.URL + "/broken.xml",
			args:      []string{"maradmin", "--show-raw"},
			wantCode:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearCredentials(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := writeConfig(t, tt.configURL, "http://127.0.0.1:1")
			out, err := execute(append([]string{"--config", cfg}, tt.args...)...)
			if got := exitCode(err); got != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (err: %v)", got, tt.wantCode, err)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestEpisodeDryRunWithoutCredentials(t *testing.T) {
	clearCredentials(t)
	var (
		mu    sync.Mutex
		paths []string
	)
	libsyn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		http.NotFound(w, r)
	}))
	defer libsyn.Close()

	cfg := writeConfig(t, "http://127.0.0.1:1/unused.xml", libsyn.URL)
	if _, err := execute("--config", cfg, "episode", "--dry-run", "--days-back", "0"); err != nil {
		t.Fatalf("episode --dry-run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// --days-back 0 checks only today: one probe per file name pattern.
	if len(paths) != 2 {
		t.Errorf("probed %d URLs, want 2: %v", len(paths), paths)
	}
}
