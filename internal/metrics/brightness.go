package metrics

import (
	"context"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// BrightnessExtractor reports the mean luminance on a 0-255 scale
type BrightnessExtractor struct{}

func (BrightnessExtractor) Name() string { return Brightness }

func (BrightnessExtractor) Extract(_ context.Context, f *frames.Frame) (float64, error) {
	luma := f.Luma()
	if len(luma) == 0 {
		return 0, nil
	}
	var sum uint64
	for _, v := range luma {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(luma)), nil
}
