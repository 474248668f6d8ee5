package metrics

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// AestheticScorer rates colorfulness, contrast and exposure of a frame.
// Like every Scorer it reports badness: 0 is a vivid, well exposed frame,
// 100 a grey, flat or blown out one.
type AestheticScorer struct {
	logger zerolog.Logger
}

// NewAestheticScorer creates a lightweight image-based scorer
func NewAestheticScorer(logger zerolog.Logger) *AestheticScorer {
	return &AestheticScorer{
		logger: logger.With().Str("scorer", "aesthetic").Logger(),
	}
}

func (a *AestheticScorer) Score(ctx context.Context, f *frames.Frame) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.Width*f.Height == 0 {
		return 100, nil
	}

	colorfulness := colorfulness(f)
	mean, std := stat.PopMeanStdDev(lumaPlane(f.Luma()), nil)
	contrast := contrast(std)
	exposure := exposure(mean)

	// Weighted combination
	quality := (0.4 * colorfulness) + (0.3 * contrast) + (0.3 * exposure)
	score := 100 * (1 - math.Max(0, math.Min(1, quality)))

	a.logger.Debug().
		Int("frame", f.Index).
		Float64("colorfulness", colorfulness).
		Float64("contrast", contrast).
		Float64("exposure", exposure).
		Float64("score", score).
		Msg("aesthetic scoring complete")

	return score, nil
}

// Close is a no-op for aesthetic scorer
func (a *AestheticScorer) Close() error {
	return nil
}

// colorfulness measures how far the channel means sit apart, 0..1
func colorfulness(f *frames.Frame) float64 {
	var rSum, gSum, bSum float64
	for i := 0; i < len(f.Pix); i += frames.BytesPerPixel {
		rSum += float64(f.Pix[i])
		gSum += float64(f.Pix[i+1])
		bSum += float64(f.Pix[i+2])
	}

	n := float64(f.Width * f.Height)
	rMean, gMean, bMean := rSum/n, gSum/n, bSum/n

	spread := math.Abs(rMean-gMean) + math.Abs(gMean-bMean) + math.Abs(bMean-rMean)
	return math.Min(1.0, spread/255.0)
}

// contrast maps the luminance standard deviation to 0..1 (typical 0-60)
func contrast(std float64) float64 {
	return math.Min(1.0, std/60.0)
}

// exposure is 1 at mid grey and falls to 0 at black or white
func exposure(mean float64) float64 {
	return 1.0 - math.Min(1.0, math.Abs(mean-128.0)/128.0)
}

func lumaPlane(luma []uint8) []float64 {
	plane := make([]float64, len(luma))
	for i, v := range luma {
		plane[i] = float64(v)
	}
	return plane
}
