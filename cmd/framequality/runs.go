package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/monikutee/video-frames-analysis/internal/config"
	"github.com/monikutee/video-frames-analysis/internal/report"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored analysis runs",
}

var runsShowCmd = &cobra.Command{
	Use:   "show <report.json>",
	Short: "Summarize a JSON run report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := report.ReadJSON(args[0])
		if err != nil {
			return err
		}
		printRun(cmd.OutOrStdout(), run)
		return nil
	},
}

var similarFlags struct {
	frame    int
	limit    int
	postgres string
}

var runsSimilarCmd = &cobra.Command{
	Use:   "similar <report.json>",
	Short: "Find the stored frames closest to one frame of a run",
	Long: "Looks up a frame's standardized features in a JSON run report and " +
		"searches the Postgres copy of the same run for its nearest neighbours.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		run, err := report.ReadJSON(args[0])
		if err != nil {
			return err
		}
		row, err := run.Frame(similarFlags.frame)
		if err != nil {
			return err
		}

		dsn := similarFlags.postgres
		if dsn == "" {
			dsn = cfg.Report.PostgresDSN
		}
		if dsn == "" {
			return fmt.Errorf("no database configured (use --postgres or report.postgres_dsn)")
		}

		store, err := report.OpenPostgres(ctx, dsn, log.Logger)
		if err != nil {
			return err
		}
		defer store.Close()

		flagged, err := store.FlaggedCount(ctx, run.ID)
		if err != nil {
			return err
		}
		near, err := store.NearestFrames(ctx, run.ID, row.Normalized, similarFlags.limit)
		if err != nil {
			return err
		}
		if len(near) == 0 {
			return fmt.Errorf("run %s is not in the database", run.ID)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s: %d frames flagged in store, %d in report\n",
			run.ID, flagged, len(run.FlaggedFrames()))
		fmt.Fprintf(out, "Nearest to frame %d:\n", row.Index)
		for _, n := range near {
			mark := ""
			if n.Flagged {
				mark = " flagged"
			}
			fmt.Fprintf(out, "  frame %d  cluster %d  distance %.4f%s\n", n.Index, n.Cluster, n.Distance, mark)
		}
		return nil
	},
}

func printRun(w io.Writer, run *report.Run) {
	fmt.Fprintf(w, "Run: %s (%s)\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Input: %s\n", run.Input)
	fmt.Fprintf(w, "Output: %s\n", run.Output)
	fmt.Fprintf(w, "Frames: %d (%dx%d @ %s fps)\n", len(run.Frames), run.Width, run.Height,
		strconv.FormatFloat(run.FPS, 'f', -1, 64))
	fmt.Fprintf(w, "Ranking: %s, %s is worse\n", run.RankingColumn, run.RankingDirection)

	for _, c := range run.Clusters {
		mean := "-"
		if c.Mean != nil {
			mean = strconv.FormatFloat(*c.Mean, 'f', 4, 64)
		}
		mark := ""
		if c.Flagged {
			mark = "  <- worst"
		}
		fmt.Fprintf(w, "  cluster %d: %d frames, mean %s%s\n", c.ID, c.Size, mean, mark)
	}

	flagged := run.FlaggedFrames()
	ids := make([]string, len(flagged))
	for i, idx := range flagged {
		ids[i] = strconv.Itoa(idx)
	}
	fmt.Fprintf(w, "Flagged frames (%d): %s\n", len(flagged), strings.Join(ids, " "))
}

func init() {
	fl := runsSimilarCmd.Flags()
	fl.IntVar(&similarFlags.frame, "frame", 0, "frame index to search from")
	fl.IntVar(&similarFlags.limit, "limit", 5, "number of neighbours")
	fl.StringVar(&similarFlags.postgres, "postgres", "", "Postgres DSN (default: report.postgres_dsn)")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsSimilarCmd)
	rootCmd.AddCommand(runsCmd)
}
