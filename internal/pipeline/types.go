package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/monikutee/video-frames-analysis/internal/cluster"
	"github.com/monikutee/video-frames-analysis/internal/features"
	"github.com/monikutee/video-frames-analysis/internal/frames"
	"github.com/monikutee/video-frames-analysis/internal/rank"
)

// Stage is a step of an analysis run. Runs move through the stages strictly
// in order; any failure ends the run at the stage it happened in.
type Stage int

const (
	StageIdle Stage = iota
	StageDecoding
	StageFeatureExtraction
	StageNormalizing
	StageClustering
	StageRanking
	StageEncoding
	StageDone
)

var stageNames = [...]string{
	StageIdle:              "idle",
	StageDecoding:          "decoding",
	StageFeatureExtraction: "feature_extraction",
	StageNormalizing:       "normalizing",
	StageClustering:        "clustering",
	StageRanking:           "ranking",
	StageEncoding:          "encoding",
	StageDone:              "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// FrameSource yields every frame of a video in presentation order plus its
// frame rate.
type FrameSource interface {
	Decode(ctx context.Context, input string, progress func(done, total int)) ([]*frames.Frame, float64, error)
}

// Sink accepts annotated frames. Close finalizes the output; Abort discards it.
type Sink interface {
	WriteFrame(f *frames.Frame) error
	Close() error
	Abort()
}

// SinkFactory opens a Sink for frames of one fixed size.
type SinkFactory interface {
	Open(ctx context.Context, output string, width, height int, fps float64) (Sink, error)
}

// ProgressFunc reports per-frame progress within a stage. total is 0 when
// the frame count is not known yet.
type ProgressFunc func(stage Stage, done, total int)

// Result is everything a finished run produced.
type Result struct {
	RunID      uuid.UUID
	Input      string
	Output     string
	Stage      Stage
	FrameCount int
	FPS        float64
	Width      int
	Height     int
	Table      *features.Table
	Normalized *features.Table
	Clusters   *cluster.Result
	Ranking    *rank.Result
	Flagged    []int
	Plots      []string
	Reports    []string
	Elapsed    time.Duration
}
