package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/monikutee/video-frames-analysis/internal/annotate"
	"github.com/monikutee/video-frames-analysis/internal/cluster"
	"github.com/monikutee/video-frames-analysis/internal/config"
	"github.com/monikutee/video-frames-analysis/internal/features"
	"github.com/monikutee/video-frames-analysis/internal/ffmpeg"
	"github.com/monikutee/video-frames-analysis/internal/frames"
	"github.com/monikutee/video-frames-analysis/internal/metrics"
	"github.com/monikutee/video-frames-analysis/internal/plot"
	"github.com/monikutee/video-frames-analysis/internal/rank"
	"github.com/monikutee/video-frames-analysis/internal/report"
)

// Pipeline orchestrates decode, scoring, clustering and re-encoding
type Pipeline struct {
	logger    zerolog.Logger
	config    *config.Config
	source    FrameSource
	sinks     SinkFactory
	scorer    metrics.Scorer
	progress  ProgressFunc
	reporters []report.Reporter
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithFrameSource replaces the ffmpeg decoder
func WithFrameSource(s FrameSource) Option {
	return func(p *Pipeline) { p.source = s }
}

// WithSinkFactory replaces the ffmpeg encoder
func WithSinkFactory(f SinkFactory) Option {
	return func(p *Pipeline) { p.sinks = f }
}

// WithScorer backs the perceptual metric with a custom scorer
func WithScorer(s metrics.Scorer) Option {
	return func(p *Pipeline) { p.scorer = s }
}

// WithProgress receives per-frame progress of the long stages
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithReporter adds a destination for the run report
func WithReporter(r report.Reporter) Option {
	return func(p *Pipeline) { p.reporters = append(p.reporters, r) }
}

// New creates a new pipeline instance. The ffmpeg executor is only created
// when no frame source or sink factory was injected.
func New(logger zerolog.Logger, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		config: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.source == nil || p.sinks == nil {
		// Initialize ffmpeg executor
		exec, err := ffmpeg.New(logger, ffmpeg.Options{
			FFmpegPath:  cfg.FFmpeg.BinaryPath,
			FFprobePath: cfg.FFmpeg.ProbePath,
			Threads:     cfg.FFmpeg.Threads,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
		}
		if p.source == nil {
			p.source = ffmpegSource{exec: exec}
		}
		if p.sinks == nil {
			p.sinks = ffmpegSinks{exec: exec, codec: cfg.FFmpeg.Codec, tag: cfg.FFmpeg.Tag}
		}
	}

	if p.scorer == nil {
		scorer, err := metrics.NewScorer(cfg.Perceptual.Scorer, metrics.NaturalnessConfig{
			MaxSide: cfg.Perceptual.MaxSide,
			Window:  cfg.Perceptual.Window,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		p.scorer = scorer
	}

	if cfg.Report.JSON != "" {
		p.reporters = append(p.reporters, report.JSONFile{Path: cfg.Report.JSON})
	}

	return p, nil
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	if p.scorer != nil {
		return p.scorer.Close()
	}
	return nil
}

// Analyze runs the full pipeline: every frame of input is scored, frames are
// clustered into quality tiers and output receives the video with the worst
// tier framed in red. Plots and reports are written after the video; their
// failures are returned together with the completed Result.
func (p *Pipeline) Analyze(ctx context.Context, input, output string) (*Result, error) {
	start := time.Now()
	res := &Result{Input: input, Output: output, Stage: StageIdle}

	if input == "" {
		return res, fmt.Errorf("input path cannot be empty")
	}
	if output == "" {
		return res, fmt.Errorf("output path cannot be empty")
	}

	a := p.config.Analysis
	p.logger.Info().
		Str("input", input).
		Str("output", output).
		Strs("metrics", a.Metrics).
		Int("clusters", a.ClusterCount).
		Msg("starting analysis pipeline")

	// Stage 1: decode every frame
	p.enter(res, StageDecoding)
	all, fps, err := p.source.Decode(ctx, input, p.report(StageDecoding))
	if err != nil {
		return res, fmt.Errorf("failed to decode %s: %w", input, err)
	}
	if len(all) == 0 {
		return res, fmt.Errorf("%s: %w", input, features.ErrEmptyInput)
	}
	res.FrameCount = len(all)
	res.FPS = fps
	res.Width, res.Height = all[0].Width, all[0].Height

	p.logger.Info().
		Int("frames", res.FrameCount).
		Int("width", res.Width).
		Int("height", res.Height).
		Float64("fps", fps).
		Msg("video decoded")

	// Stage 2: one feature row per frame
	p.enter(res, StageFeatureExtraction)
	exts, err := metrics.Resolve(a.Metrics, p.scorer)
	if err != nil {
		return res, err
	}
	res.Table, err = features.Build(ctx, all, exts, p.report(StageFeatureExtraction))
	if err != nil {
		return res, fmt.Errorf("failed to extract features: %w", err)
	}

	// Stage 3: standardize columns
	p.enter(res, StageNormalizing)
	res.Normalized = features.Normalize(res.Table)

	// Stage 4: k-means on the standardized table
	p.enter(res, StageClustering)
	ccfg := cluster.DefaultConfig()
	ccfg.K = a.ClusterCount
	ccfg.Seed = a.Seed
	if a.MaxIterations > 0 {
		ccfg.MaxIterations = a.MaxIterations
	}
	if a.Restarts > 0 {
		ccfg.Restarts = a.Restarts
	}
	res.Clusters, err = cluster.KMeans(ctx, res.Normalized.Data, ccfg)
	if err != nil {
		return res, fmt.Errorf("failed to cluster frames: %w", err)
	}

	p.logger.Info().
		Ints("sizes", res.Clusters.Sizes()).
		Float64("inertia", res.Clusters.Inertia).
		Int("iterations", res.Clusters.Iterations).
		Msg("frames clustered")

	// Stage 5: pick the worst cluster on the raw ranking column
	p.enter(res, StageRanking)
	dir, err := rank.ParseDirection(a.RankingDirection)
	if err != nil {
		return res, err
	}
	column := strings.ToLower(strings.TrimSpace(a.RankingColumn))
	res.Ranking, err = rank.Worst(res.Table, res.Clusters.Labels, ccfg.K, column, dir)
	if err != nil {
		return res, fmt.Errorf("failed to rank clusters: %w", err)
	}
	res.Flagged = res.Clusters.Members(res.Ranking.Worst)

	p.logger.Info().
		Int("worst_cluster", res.Ranking.Worst).
		Str("column", column).
		Floats64("means", res.Ranking.Scores).
		Int("flagged", len(res.Flagged)).
		Msg("worst cluster selected")

	// Stage 6: annotate and encode
	p.enter(res, StageEncoding)
	if err := p.encode(ctx, all, res); err != nil {
		return res, err
	}

	p.enter(res, StageDone)
	res.Elapsed = time.Since(start)

	p.logger.Info().
		Str("output", output).
		Dur("elapsed", res.Elapsed).
		Msg("analysis pipeline complete")

	return res, p.sideOutputs(ctx, res)
}

// encode writes every frame, flagged ones bordered, in decode order
func (p *Pipeline) encode(ctx context.Context, all []*frames.Frame, res *Result) error {
	sink, err := p.sinks.Open(ctx, res.Output, res.Width, res.Height, res.FPS)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	notify := p.report(StageEncoding)
	worst := res.Ranking.Worst
	for i, f := range all {
		if err := ctx.Err(); err != nil {
			sink.Abort()
			return err
		}

		out := annotate.Mark(f, res.Clusters.Labels[i] == worst)
		if err := sink.WriteFrame(out); err != nil {
			sink.Abort()
			return fmt.Errorf("failed to write frame %d: %w", f.Index, err)
		}
		if notify != nil {
			notify(i+1, len(all))
		}
	}

	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to finalize output: %w", err)
	}
	return nil
}

// sideOutputs renders plots and writes reports for a completed run
func (p *Pipeline) sideOutputs(ctx context.Context, res *Result) error {
	var errs []error

	pc := p.config.Plot
	if pc.PNG != "" || pc.HTML != "" {
		data, err := p.plotData(res)
		if err != nil {
			errs = append(errs, err)
		} else {
			if pc.PNG != "" {
				if err := plot.Scatter(pc.PNG, data); err != nil {
					errs = append(errs, fmt.Errorf("plot %s: %w", pc.PNG, err))
				} else {
					res.Plots = append(res.Plots, pc.PNG)
				}
			}
			if pc.HTML != "" {
				if err := plot.ScatterHTML(pc.HTML, data); err != nil {
					errs = append(errs, fmt.Errorf("plot %s: %w", pc.HTML, err))
				} else {
					res.Plots = append(res.Plots, pc.HTML)
				}
			}
		}
	}

	run := p.buildRun(res)
	res.RunID = run.ID
	for _, r := range p.reporters {
		if err := r.Write(ctx, run); err != nil {
			p.logger.Error().Err(err).Str("reporter", r.Name()).Msg("report failed")
			errs = append(errs, fmt.Errorf("report %s: %w", r.Name(), err))
			continue
		}
		res.Reports = append(res.Reports, r.Name())
	}

	for _, err := range errs {
		p.logger.Warn().Err(err).Msg("side output failed")
	}
	return errors.Join(errs...)
}

// plotData draws sharpness when configured, otherwise the first metric
func (p *Pipeline) plotData(res *Result) (plot.Data, error) {
	column := res.Table.Columns[0]
	if res.Table.Column(metrics.Sharpness) >= 0 {
		column = metrics.Sharpness
	}
	values, err := res.Table.ColumnValues(column)
	if err != nil {
		return plot.Data{}, err
	}
	return plot.Data{
		Column: column,
		Values: values,
		Labels: res.Clusters.Labels,
		K:      p.config.Analysis.ClusterCount,
		Worst:  res.Ranking.Worst,
	}, nil
}

func (p *Pipeline) buildRun(res *Result) *report.Run {
	run := report.NewRun()
	run.Input = res.Input
	run.Output = res.Output
	run.FPS = res.FPS
	run.Width = res.Width
	run.Height = res.Height
	run.Columns = res.Table.Columns
	run.RankingColumn = res.Ranking.Column
	run.RankingDirection = p.config.Analysis.RankingDirection
	run.Worst = res.Ranking.Worst
	run.SetClusters(res.Clusters.Sizes(), res.Ranking.Scores)

	run.Frames = make([]report.FrameRow, res.FrameCount)
	for i := range run.Frames {
		label := res.Clusters.Labels[i]
		run.Frames[i] = report.FrameRow{
			Index:      i,
			Cluster:    label,
			Flagged:    label == res.Ranking.Worst,
			Values:     res.Table.Row(i),
			Normalized: res.Normalized.Row(i),
		}
	}
	return run
}

func (p *Pipeline) enter(res *Result, s Stage) {
	res.Stage = s
	p.logger.Debug().Stringer("stage", s).Msg("stage entered")
	if p.progress != nil {
		p.progress(s, 0, res.FrameCount)
	}
}

// report adapts the pipeline progress callback to one stage
func (p *Pipeline) report(s Stage) func(done, total int) {
	if p.progress == nil {
		return nil
	}
	return func(done, total int) { p.progress(s, done, total) }
}
