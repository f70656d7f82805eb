// Package episode finds, downloads, transcribes and summarizes the daily
// CISO Series headlines audio episode.
package episode

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
)

// DefaultPatterns are the file names Libsyn has used for the episode.
var DefaultPatterns = []string{
	"CSH_{yyyymmdd}.mp3",
	"CSH-{yyyy}-{mm}-{dd}.mp3",
}

// CandidateURLs expands patterns for day under base.
func CandidateURLs(base string, patterns []string, day time.Time) []string {
	r := strings.NewReplacer(
		"{yyyymmdd}", day.Format("20060102"),
		"{yyyy}", day.Format("2006"),
		"{mm}", day.Format("01"),
		"{dd}", day.Format("02"),
	)
	base = strings.TrimRight(base, "/")
	urls := make([]string, 0, len(patterns))
	for _, p := range patterns {
		urls = append(urls, base+"/"+r.Replace(p))
	}
	return urls
}

// Exists reports whether url answers 200. Hosts that reject HEAD with 405
// are asked again with GET. Network errors count as missing.
func Exists(ctx context.Context, client *http.Client, url string) bool {
	code, err := status(ctx, client, http.MethodHead, url)
	if err == nil && code == http.StatusMethodNotAllowed {
		code, err = status(ctx, client, http.MethodGet, url)
	}
	if err != nil {
		logger.Debugf("[episode] probe %s: %v", url, err)
		return false
	}
	return code == http.StatusOK
}

func status(ctx context.Context, client *http.Client, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	// Only the status matters; do not read a whole episode.
	io.CopyN(io.Discard, resp.Body, 512)
	resp.Body.Close()
	return resp.StatusCode, nil
}
