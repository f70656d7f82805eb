package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/state"
)

func stateCmd() *cobra.Command {
	st := &cobra.Command{
		Use:   "state",
		Short: "Inspect state files",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <file>",
		Short: "Summarize a state file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return err
			}
			rs := state.Load(path)
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(rs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "last run: %s (%s, %s)\n", when(rs.LastRun.IsZero(), humanize.Time(rs.LastRun)), rs.LastRunMode, rs.LastRunID)
			names := make([]string, 0, len(rs.Feeds))
			for name := range rs.Feeds {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fs := rs.Feeds[name]
				fmt.Fprintf(out, "\n[%s]\n", name)
				fmt.Fprintf(out, "  seen:        %s\n", humanize.Comma(int64(len(fs.Seen))))
				fmt.Fprintf(out, "  last run:    %s\n", when(fs.LastRun.IsZero(), humanize.Time(fs.LastRun)))
				if fs.LastPostedAt != nil {
					fmt.Fprintf(out, "  last posted: %s\n", humanize.Time(*fs.LastPostedAt))
				}
				if fs.LastSeenTitle != "" {
					fmt.Fprintf(out, "  last item:   %s\n", fs.LastSeenTitle)
				}
				if fs.LastScanDay != "" {
					fmt.Fprintf(out, "  last scan:   %s (%d entries)\n", fs.LastScanDay, fs.LastScanCount)
				}
				if p := fs.LastPipeline; p != nil {
					fmt.Fprintf(out, "  pipeline:    total=%d in_window=%d new=%d matched=%d selected=%d\n",
						p.Total, p.InWindow, p.NewInWindow, p.Matched, p.Selected)
				}
				if len(fs.Episodes) > 0 {
					fmt.Fprintf(out, "  episodes:    %d\n", len(fs.Episodes))
				}
			}
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the decoded document as JSON")
	st.AddCommand(show)
	return st
}

func historyCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently posted items from the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openArchive()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("archive.dsn is not configured")
			}
			defer db.Close()

			entries, err := db.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no posted items recorded")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%-16s %-9s %s\n    %s\n", humanize.Time(e.PostedAt), e.Feed, e.Title, e.Link)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries")
	return cmd
}

func when(never bool, s string) string {
	if never {
		return "never"
	}
	return s
}
