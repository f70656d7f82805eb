package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/episode"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/llm"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/maradmin"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/news"
	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
)

func newsCmd(a *app) *cobra.Command {
	var (
		stateFile string
		model     string
		dryRun    bool
		force     bool
		debug     bool

		cisoMaxBullets       int
		cisoSentences        int
		rcdWindowDays        int
		rcdMaxItems          int
		rcdBulletsPerArticle int
	)

	cmd := &cobra.Command{
		Use:   "news",
		Short: "Post the CISO Series roll-up and the RealClearDefense digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				if err := a.initLogger("debug"); err != nil {
					return err
				}
			}
			if err := a.cfg.RequireOpenAI(); err != nil {
				return err
			}
			sink, err := a.sink(cmd.OutOrStdout(), dryRun)
			if err != nil {
				return err
			}
			provider, err := llm.FromConfig(a.cfg.OpenAI, model, nil)
			if err != nil {
				return err
			}
			loc, err := a.location()
			if err != nil {
				return err
			}

			nc := a.cfg.News
			opts := news.Options{
				StateFile:            nc.StateFile,
				CISOFeedURL:          nc.CISOFeedURL,
				RCDFeedURL:           nc.RCDFeedURL,
				Location:             loc,
				DryRun:               dryRun,
				Force:                force,
				CISOMaxBullets:       nc.CISOMaxBullets,
				CISOSentences:        nc.CISOSentences,
				RCDWindowDays:        *nc.RCDWindowDays,
				RCDMaxItems:          nc.RCDMaxItems,
				RCDBulletsPerArticle: nc.RCDBulletsPerArticle,
				MaxChars:             a.cfg.Slack.MaxChars,
			}
			if stateFile != "" {
				opts.StateFile = stateFile
			}
			flags := cmd.Flags()
			if flags.Changed("ciso-max-bullets") {
				opts.CISOMaxBullets = cisoMaxBullets
			}
			if flags.Changed("ciso-sentences") {
				opts.CISOSentences = cisoSentences
			}
			if flags.Changed("rcd-window-days") {
				opts.RCDWindowDays = rcdWindowDays
			}
			if flags.Changed("rcd-max-items") {
				opts.RCDMaxItems = rcdMaxItems
			}
			if flags.Changed("rcd-bullets-per-article") {
				opts.RCDBulletsPerArticle = rcdBulletsPerArticle
			}

			r := &news.Runner{
				Feeds: rss.NewFetcher(),
				LLM:   provider,
				Sink:  sink,
			}
			db, err := a.openArchive()
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
				r.Archive = db
			}
			return r.Run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&stateFile, "state-file", "", "state file (default from config)")
	f.StringVar(&model, "model", "", "OpenAI model (default from config)")
	f.BoolVar(&dryRun, "dry-run", false, "print the message instead of posting; do not mark items seen")
	f.BoolVar(&force, "force", false, "ignore the seen set")
	f.BoolVar(&debug, "debug", false, "debug logging")
	f.IntVar(&cisoMaxBullets, "ciso-max-bullets", 12, "max bullets in the CISO roll-up")
	f.IntVar(&cisoSentences, "ciso-sentences", 2, "sentences per CISO bullet")
	f.IntVar(&rcdWindowDays, "rcd-window-days", 1, "RealClearDefense window: today plus N previous days")
	f.IntVar(&rcdMaxItems, "rcd-max-items", 5, "max RealClearDefense articles")
	f.IntVar(&rcdBulletsPerArticle, "rcd-bullets-per-article", 2, "bullets per RealClearDefense article")
	return cmd
}

func maradminCmd(a *app) *cobra.Command {
	var (
		feedURL   string
		model     string
		stateFile string
		maxItems  int
		dryRun    bool
		force     bool
		showRaw   bool
	)

	cmd := &cobra.Command{
		Use:   "maradmin",
		Short: "Summarize new MARADMIN messages and post them",
		RunE: func(cmd *cobra.Command, args []string) error {
			mc := a.cfg.Maradmin
			opts := maradmin.Options{
				StateFile: mc.StateFile,
				FeedURL:   mc.FeedURL,
				Max:       mc.Max,
				DryRun:    dryRun,
				Force:     force,
				ShowRaw:   showRaw,
				MaxChars:  a.cfg.Slack.MaxChars,
			}
			if feedURL != "" {
				opts.FeedURL = feedURL
			}
			if stateFile != "" {
				opts.StateFile = stateFile
			}
			if cmd.Flags().Changed("max") {
				opts.Max = maxItems
			}

			sink, err := a.sink(cmd.OutOrStdout(), dryRun || showRaw)
			if err != nil {
				return err
			}
			r := &maradmin.Runner{
				Feeds: rss.NewFetcher(),
				Sink:  sink,
				Raw:   cmd.OutOrStdout(),
			}
			if !showRaw {
				if err := a.cfg.RequireOpenAI(); err != nil {
					return err
				}
				provider, err := llm.FromConfig(a.cfg.OpenAI, model, llm.Float32(0.2))
				if err != nil {
					return err
				}
				r.LLM = provider
			}
			db, err := a.openArchive()
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
				r.Archive = db
			}
			return r.Run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&feedURL, "feed-url", "", "MARADMIN RSS feed (default from config)")
	f.StringVar(&model, "model", "", "OpenAI model (default from config)")
	f.StringVar(&stateFile, "state-file", "", "state file (default from config)")
	f.IntVar(&maxItems, "max", 10, "max feed entries to consider")
	f.BoolVar(&dryRun, "dry-run", false, "print the message instead of posting; do not mark items seen")
	f.BoolVar(&force, "force", false, "ignore the seen set")
	f.BoolVar(&showRaw, "show-raw", false, "print extracted text and skip the model")
	return cmd
}

func episodeCmd(a *app) *cobra.Command {
	var (
		daysBack  int
		stateFile string
		outDir    string
		dryRun    bool
		post      bool
	)

	cmd := &cobra.Command{
		Use:   "episode",
		Short: "Download, transcribe and summarize the newest headlines episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			ec := a.cfg.Episode
			loc, err := a.location()
			if err != nil {
				return err
			}
			opts := episode.Options{
				StateFile: ec.StateFile,
				BaseURL:   ec.BaseURL,
				Patterns:  ec.Patterns,
				DaysBack:  *ec.DaysBack,
				OutDir:    ec.OutDir,
				Location:  loc,
				DryRun:    dryRun,
				Post:      post && !dryRun,
				MaxChars:  a.cfg.Slack.MaxChars,
			}
			if stateFile != "" {
				opts.StateFile = stateFile
			}
			if outDir != "" {
				opts.OutDir = outDir
			}
			if cmd.Flags().Changed("days-back") {
				opts.DaysBack = daysBack
			}

			r := &episode.Runner{
				Client: &http.Client{Timeout: 10 * time.Minute},
			}
			if !dryRun {
				if err := a.cfg.RequireOpenAI(); err != nil {
					return err
				}
				provider, err := llm.FromConfig(a.cfg.OpenAI, "", nil)
				if err != nil {
					return err
				}
				r.LLM = provider
				r.Transcriber = llm.TranscriberFromConfig(a.cfg.OpenAI)
			}
			if opts.Post {
				sink, err := a.sink(cmd.OutOrStdout(), false)
				if err != nil {
					return err
				}
				r.Sink = sink
				db, err := a.openArchive()
				if err != nil {
					return err
				}
				if db != nil {
					defer db.Close()
					r.Archive = db
				}
			}

			_, err = r.Run(cmd.Context(), opts)
			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&daysBack, "days-back", 2, "also check this many previous days")
	f.StringVar(&stateFile, "state-file", "", "state file (default from config)")
	f.StringVar(&outDir, "outdir", "", "download and output directory (default from config)")
	f.BoolVar(&dryRun, "dry-run", false, "only report the episode that would be processed")
	f.BoolVar(&post, "post", false, "also post the summary to Slack")
	return cmd
}
