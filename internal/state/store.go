package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
)

// legacyKeys are top-level seen lists written by earlier versions of the jobs.
var legacyKeys = []string{"seen_ids", "processed", "processed_urls", "seen"}

type loadOptions struct {
	legacyFeed string
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithLegacyFeed migrates top-level seen lists into the named feed when that
// feed has no state of its own yet.
func WithLegacyFeed(name string) LoadOption {
	return func(o *loadOptions) { o.legacyFeed = name }
}

// Load reads the state file at path. It never fails: a missing file yields an
// empty state and an unreadable or corrupt one is logged and treated as empty.
func Load(path string, opts ...LoadOption) *RunState {
	var o loadOptions
	for _, fn := range opts {
		fn(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("[state] read %s failed, starting empty: %v", path, err)
		}
		return New()
	}

	st, err := decode(data, o)
	if err != nil {
		logger.Warnf("[state] %s is corrupt, starting empty: %v", path, err)
		return New()
	}
	return st
}

func decode(data []byte, o loadOptions) (*RunState, error) {
	st := New()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}
	if st.Feeds == nil {
		st.Feeds = map[string]*FeedState{}
	}
	for name, fs := range st.Feeds {
		if fs == nil {
			delete(st.Feeds, name)
		}
	}

	if o.legacyFeed != "" {
		if _, ok := st.Feeds[o.legacyFeed]; !ok {
			if ids := legacyIDs(data); len(ids) > 0 {
				st.Feed(o.legacyFeed).MarkSeen(ids...)
			}
		}
	}
	return st, nil
}

// legacyIDs returns the first non-empty top-level legacy list. Legacy maps
// (processed URL -> record) contribute their keys.
func legacyIDs(data []byte) []string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	for _, key := range legacyKeys {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		var list []string
		if err := json.Unmarshal(msg, &list); err == nil && len(list) > 0 {
			return list
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(msg, &m); err == nil && len(m) > 0 {
			ids := make([]string, 0, len(m))
			for k := range m {
				ids = append(ids, k)
			}
			return ids
		}
	}
	return nil
}

// Save atomically replaces the file at path with st. The document is written
// to a temporary file in the same directory, synced and renamed over path.
func Save(path string, st *RunState) error {
	if st == nil {
		st = New()
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("[state] encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("[state] create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("[state] create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[state] write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[state] sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[state] close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("[state] chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("[state] replace %s: %w", path, err)
	}
	return nil
}
