package main

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/monikutee/video-frames-analysis/internal/pipeline"
)

// stageBars shows one progress bar per frame-by-frame stage
type stageBars struct {
	w     io.Writer
	stage pipeline.Stage
	bar   *progressbar.ProgressBar
}

func newStageBars(w io.Writer) *stageBars {
	return &stageBars{w: w, stage: pipeline.StageIdle}
}

var barLabels = map[pipeline.Stage]string{
	pipeline.StageDecoding:          "Decoding",
	pipeline.StageFeatureExtraction: "Scoring",
	pipeline.StageEncoding:          "Encoding",
}

func (s *stageBars) update(stage pipeline.Stage, done, total int) {
	label, tracked := barLabels[stage]
	if stage != s.stage {
		s.finish()
		s.stage = stage
		if !tracked {
			return
		}
		limit := total
		if limit <= 0 {
			limit = -1 // spinner until the frame count is known
		}
		s.bar = progressbar.NewOptions(limit,
			progressbar.OptionSetWriter(s.w),
			progressbar.OptionSetDescription(label),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	if s.bar == nil || done == 0 {
		return
	}
	if total > 0 && s.bar.GetMax() != total {
		s.bar.ChangeMax(total)
	}
	_ = s.bar.Set(done)
}

func (s *stageBars) finish() {
	if s.bar != nil {
		_ = s.bar.Finish()
		_, _ = io.WriteString(s.w, "\n")
		s.bar = nil
	}
}
