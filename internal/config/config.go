package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when a required API key or webhook is unset.
var ErrMissingCredential = errors.New("missing credential")

const (
	DefaultModel           = "gpt-4o-mini"
	DefaultTranscribeModel = "gpt-4o-mini-transcribe"
	DefaultCISOFeedURL     = "https://rss.libsyn.com/shows/289580/destinations/2260670.xml"
	DefaultRCDFeedURL      = "https://www.realcleardefense.com/index.xml"
	DefaultMaradminFeedURL = "https://www.marines.mil/DesktopModules/ArticleCS/RSS.ashx?ContentType=6&Site=481&category=14336&max=10"
	DefaultLibsynBase      = "https://traffic.libsyn.com/secure/cisoseries"
	DefaultTimezone        = "America/New_York"
	DefaultSlackMaxChars   = 35000
)

// Config is the top-level configuration shared by every job.
type Config struct {
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Slack    SlackConfig    `yaml:"slack"`
	News     NewsConfig     `yaml:"news"`
	Maradmin MaradminConfig `yaml:"maradmin"`
	Episode  EpisodeConfig  `yaml:"episode"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Log      LogConfig      `yaml:"log"`
}

// OpenAIConfig describes the OpenAI-compatible endpoint used for summaries.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// FallbackModels are tried in order when Model is rate limited or out of quota.
	FallbackModels  []string `yaml:"fallback_models"`
	TranscribeModel string   `yaml:"transcribe_model"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
}

// SlackConfig describes the incoming webhook.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	MaxChars   int    `yaml:"max_chars"`
	// MinIntervalMs paces webhook posts; 0 disables pacing.
	MinIntervalMs  *int `yaml:"min_interval_ms"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

// NewsConfig configures the CISO roll-up and RealClearDefense job.
type NewsConfig struct {
	StateFile   string `yaml:"state_file"`
	CISOFeedURL string `yaml:"ciso_feed_url"`
	RCDFeedURL  string `yaml:"rcd_feed_url"`
	Timezone    string `yaml:"timezone"`

	CISOMaxBullets int `yaml:"ciso_max_bullets"`
	CISOSentences  int `yaml:"ciso_sentences"`

	// RCDWindowDays is a pointer because 0 (today only) is meaningful.
	RCDWindowDays        *int `yaml:"rcd_window_days"`
	RCDMaxItems          int  `yaml:"rcd_max_items"`
	RCDBulletsPerArticle int  `yaml:"rcd_bullets_per_article"`
}

// MaradminConfig configures the MARADMIN job.
type MaradminConfig struct {
	FeedURL   string `yaml:"feed_url"`
	StateFile string `yaml:"state_file"`
	Max       int    `yaml:"max"`
}

// EpisodeConfig configures the headline episode transcriber.
type EpisodeConfig struct {
	BaseURL   string   `yaml:"base_url"`
	Patterns  []string `yaml:"patterns"`
	DaysBack  *int     `yaml:"days_back"`
	StateFile string   `yaml:"state_file"`
	OutDir    string   `yaml:"out_dir"`
}

// ArchiveConfig enables the optional posted-items archive.
type ArchiveConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
}

// LogConfig configures internal/logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads the YAML file at path and returns the resulting Config.
// ${VAR_NAME} references are expanded from the environment. An empty path
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		expanded := os.Expand(string(data), os.Getenv)

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	setDefaults(cfg)
	return cfg, nil
}

// applyEnv lets the environment override the file, which keeps cron
// deployments that only export variables working.
func applyEnv(cfg *Config) {
	override := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	override(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	override(&cfg.OpenAI.Model, "OPENAI_MODEL")
	override(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	override(&cfg.Slack.WebhookURL, "SLACK_WEBHOOK_URL")
	override(&cfg.News.CISOFeedURL, "CISO_FEED_URL", "FEED_URL")
	override(&cfg.News.RCDFeedURL, "RCD_FEED_URL")
	override(&cfg.Maradmin.FeedURL, "MARADMIN_FEED_URL")
}

func intPtr(v int) *int { return &v }

// setDefaults fills every unset field.
func setDefaults(cfg *Config) {
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = DefaultModel
	}
	if cfg.OpenAI.TranscribeModel == "" {
		cfg.OpenAI.TranscribeModel = DefaultTranscribeModel
	}
	if cfg.OpenAI.TimeoutSeconds == 0 {
		cfg.OpenAI.TimeoutSeconds = 120
	}

	if cfg.Slack.MaxChars == 0 {
		cfg.Slack.MaxChars = DefaultSlackMaxChars
	}
	if cfg.Slack.MinIntervalMs == nil {
		cfg.Slack.MinIntervalMs = intPtr(1000)
	}
	if cfg.Slack.TimeoutSeconds == 0 {
		cfg.Slack.TimeoutSeconds = 20
	}

	if cfg.News.StateFile == "" {
		cfg.News.StateFile = "news_state.json"
	}
	if cfg.News.CISOFeedURL == "" {
		cfg.News.CISOFeedURL = DefaultCISOFeedURL
	}
	if cfg.News.RCDFeedURL == "" {
		cfg.News.RCDFeedURL = DefaultRCDFeedURL
	}
	if cfg.News.Timezone == "" {
		cfg.News.Timezone = DefaultTimezone
	}
	if cfg.News.CISOMaxBullets == 0 {
		cfg.News.CISOMaxBullets = 12
	}
	if cfg.News.CISOSentences == 0 {
		cfg.News.CISOSentences = 2
	}
	if cfg.News.RCDWindowDays == nil {
		cfg.News.RCDWindowDays = intPtr(1)
	}
	if cfg.News.RCDMaxItems == 0 {
		cfg.News.RCDMaxItems = 5
	}
	if cfg.News.RCDBulletsPerArticle == 0 {
		cfg.News.RCDBulletsPerArticle = 2
	}

	if cfg.Maradmin.FeedURL == "" {
		cfg.Maradmin.FeedURL = DefaultMaradminFeedURL
	}
	if cfg.Maradmin.StateFile == "" {
		cfg.Maradmin.StateFile = ".maradmin_state.json"
	}
	if cfg.Maradmin.Max == 0 {
		cfg.Maradmin.Max = 10
	}

	if cfg.Episode.BaseURL == "" {
		cfg.Episode.BaseURL = DefaultLibsynBase
	}
	if len(cfg.Episode.Patterns) == 0 {
		cfg.Episode.Patterns = []string{"CSH_{yyyymmdd}.mp3", "CSH-{yyyy}-{mm}-{dd}.mp3"}
	}
	if cfg.Episode.DaysBack == nil {
		cfg.Episode.DaysBack = intPtr(2)
	}
	if cfg.Episode.StateFile == "" {
		cfg.Episode.StateFile = "ciso_state.json"
	}
	if cfg.Episode.OutDir == "" {
		cfg.Episode.OutDir = "ciso_downloads"
	}

	if cfg.Archive.Driver == "" {
		cfg.Archive.Driver = "sqlite"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	cfg.OpenAI.APIKey = strings.TrimSpace(cfg.OpenAI.APIKey)
	cfg.Slack.WebhookURL = strings.TrimSpace(cfg.Slack.WebhookURL)
}

// RequireOpenAI reports ErrMissingCredential when no API key is configured.
func (c *Config) RequireOpenAI() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY: %w", ErrMissingCredential)
	}
	return nil
}

// RequireWebhook reports ErrMissingCredential when no webhook is configured.
func (c *Config) RequireWebhook() error {
	if c.Slack.WebhookURL == "" {
		return fmt.Errorf("SLACK_WEBHOOK_URL (or use --dry-run): %w", ErrMissingCredential)
	}
	return nil
}

// Models returns the primary model followed by the fallbacks, without duplicates.
func (c OpenAIConfig) Models(primary string) []string {
	if primary == "" {
		primary = c.Model
	}
	seen := map[string]bool{primary: true}
	out := []string{primary}
	for _, m := range c.FallbackModels {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
