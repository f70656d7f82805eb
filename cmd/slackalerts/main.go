package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/archive"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/config"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/slack"
)

// app carries what every subcommand needs after the root flags are parsed.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&app{}).ExecuteContext(ctx)
	stop()
	logger.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode is 2 for missing credentials, 1 for any other failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, config.ErrMissingCredential):
		return 2
	default:
		return 1
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "slackalerts",
		Short:         "Post summarized security and USMC feeds to Slack",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (optional)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newsCmd(a),
		maradminCmd(a),
		episodeCmd(a),
		stateCmd(),
		historyCmd(a),
	)
	return root
}

func (a *app) setup() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.logLevel == "" {
		a.logLevel = cfg.Log.Level
	}
	return a.initLogger(a.logLevel)
}

func (a *app) initLogger(level string) error {
	return logger.Init(logger.Config{
		Level:      level,
		File:       a.cfg.Log.File,
		MaxSize:    a.cfg.Log.MaxSize,
		MaxBackups: a.cfg.Log.MaxBackups,
		MaxAge:     a.cfg.Log.MaxAge,
	})
}

// sink prints to w for preview runs and posts to the webhook otherwise.
func (a *app) sink(w io.Writer, preview bool) (slack.Sink, error) {
	if preview {
		return slack.WriterSink{W: w}, nil
	}
	if err := a.cfg.RequireWebhook(); err != nil {
		return nil, err
	}
	return slack.NewWebhookSink(a.cfg.Slack.WebhookURL,
		slack.WithHTTPClient(&http.Client{Timeout: time.Duration(a.cfg.Slack.TimeoutSeconds) * time.Second}),
		slack.WithMinInterval(time.Duration(*a.cfg.Slack.MinIntervalMs)*time.Millisecond),
	), nil
}

// openArchive returns nil when no archive DSN is configured.
func (a *app) openArchive() (*archive.DB, error) {
	if a.cfg.Archive.DSN == "" {
		return nil, nil
	}
	db, err := archive.Open(a.cfg.Archive.Driver, a.cfg.Archive.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *app) location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.cfg.News.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", a.cfg.News.Timezone, err)
	}
	return loc, nil
}
