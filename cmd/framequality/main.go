package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/monikutee/video-frames-analysis/internal/config"
	"github.com/monikutee/video-frames-analysis/internal/logging"
	"github.com/monikutee/video-frames-analysis/internal/metrics"
	"github.com/monikutee/video-frames-analysis/internal/pipeline"
	"github.com/monikutee/video-frames-analysis/internal/report"
	"github.com/monikutee/video-frames-analysis/pkg/util"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "framequality",
	Short: "framequality - flag low-quality frames in a video",
	Long: "Scores every frame of a video, groups frames into quality tiers with k-means " +
		"and re-renders the video with the worst tier framed in red.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		if err := logging.Init(verbose, logFormat); err != nil {
			return err
		}

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

var analyzeFlags struct {
	video    string
	output   string
	preset   string
	plot     string
	plotHTML string
	report   string
	postgres string
	progress bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a video and write a copy with the worst frames flagged",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		f := analyzeFlags
		if f.preset != "" {
			if err := cfg.ApplyPreset(f.preset); err != nil {
				return err
			}
		}
		if f.plot != "" {
			cfg.Plot.PNG = f.plot
		}
		if f.plotHTML != "" {
			cfg.Plot.HTML = f.plotHTML
		}
		if f.report != "" {
			cfg.Report.JSON = f.report
		}
		if f.postgres != "" {
			cfg.Report.PostgresDSN = f.postgres
		}

		var opts []pipeline.Option
		if cfg.Report.PostgresDSN != "" {
			store, err := report.OpenPostgres(ctx, cfg.Report.PostgresDSN, log.Logger)
			if err != nil {
				return err
			}
			defer store.Close()
			opts = append(opts, pipeline.WithReporter(store))
		}

		if f.progress {
			bars := newStageBars(os.Stderr)
			defer bars.finish()
			opts = append(opts, pipeline.WithProgress(bars.update))
		}

		// Create pipeline
		pipe, err := pipeline.New(log.Logger, cfg, opts...)
		if err != nil {
			return err
		}
		defer pipe.Close()

		res, err := pipe.Analyze(ctx, f.video, f.output)
		if err != nil && (res == nil || res.Stage != pipeline.StageDone) {
			log.Error().Err(err).Stringer("stage", stageOf(res)).Msg("analysis failed")
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Frames analyzed: %d\n", res.FrameCount)
		fmt.Fprintf(cmd.OutOrStdout(), "Worst cluster: %d (%d frames flagged)\n", res.Ranking.Worst, len(res.Flagged))
		fmt.Fprintf(cmd.OutOrStdout(), "Output video: %s\n", res.Output)
		for _, p := range res.Plots {
			fmt.Fprintf(cmd.OutOrStdout(), "Plot: %s\n", p)
		}
		if len(res.Reports) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Report: run %s (%s)\n", res.RunID, strings.Join(res.Reports, ", "))
		}

		// side outputs failed after the video was written
		if err != nil {
			log.Error().Err(err).Msg("side outputs incomplete")
			return err
		}
		return nil
	},
}

func stageOf(res *pipeline.Result) pipeline.Stage {
	if res == nil {
		return pipeline.StageIdle
	}
	return res.Stage
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "framequality.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List available frame metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range metrics.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./framequality.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "log format (console|json)")

	fl := analyzeCmd.Flags()
	fl.StringVar(&analyzeFlags.video, "video", "", "input video path")
	fl.StringVar(&analyzeFlags.output, "output", "", "annotated output video path")
	fl.StringVar(&analyzeFlags.preset, "preset", "", "analysis preset (laplacian|brisque)")
	fl.StringVar(&analyzeFlags.plot, "plot", "", "write a scatter plot image (png, svg, pdf)")
	fl.StringVar(&analyzeFlags.plotHTML, "plot-html", "", "write an interactive scatter plot")
	fl.StringVar(&analyzeFlags.report, "report", "", "write the run report as JSON")
	fl.StringVar(&analyzeFlags.postgres, "postgres", "", "store the run report in Postgres (DSN)")
	fl.BoolVar(&analyzeFlags.progress, "progress", false, "show progress bars")
	_ = analyzeCmd.MarkFlagRequired("video")
	_ = analyzeCmd.MarkFlagRequired("output")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(metricsCmd)
}
