package metrics

import (
	"context"
	"fmt"
	"math"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// Scorer is a no-reference perceptual quality estimator.
// Higher scores mean worse perceived quality.
type Scorer interface {
	Score(ctx context.Context, f *frames.Frame) (float64, error)
	Close() error
}

// PerceptualExtractor adapts a Scorer to the Extractor contract
type PerceptualExtractor struct {
	scorer Scorer
}

// NewPerceptual wraps any Scorer as the "perceptual" feature column
func NewPerceptual(scorer Scorer) *PerceptualExtractor {
	return &PerceptualExtractor{scorer: scorer}
}

func (p *PerceptualExtractor) Name() string { return Perceptual }

func (p *PerceptualExtractor) Extract(ctx context.Context, f *frames.Frame) (float64, error) {
	score, err := p.scorer.Score(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("perceptual score for frame %d: %w", f.Index, err)
	}
	return score, nil
}

// Close releases the underlying scorer
func (p *PerceptualExtractor) Close() error {
	return p.scorer.Close()
}

// NaturalnessConfig tunes the built-in scorer
type NaturalnessConfig struct {
	// MaxSide bounds the analysis resolution; larger frames are downscaled.
	MaxSide uint
	// Window is the Gaussian window size used for local statistics.
	Window int
	Logger zerolog.Logger
}

// DefaultNaturalnessConfig returns settings that work for SD through 4K input
func DefaultNaturalnessConfig() NaturalnessConfig {
	return NaturalnessConfig{
		MaxSide: 384,
		Window:  7,
		Logger:  zerolog.Nop(),
	}
}

// NaturalnessScorer measures how far the mean-subtracted contrast-normalized
// (MSCN) coefficients of a frame drift from the statistics of undistorted
// natural images. Blur, flat regions and blocking all pull the MSCN
// distribution away from unit variance and add neighbour correlation.
// The result is on a 0-100 scale, 100 being a completely flat frame.
type NaturalnessScorer struct {
	cfg    NaturalnessConfig
	kernel []float64
	logger zerolog.Logger
}

// NewNaturalnessScorer builds a scorer from cfg
func NewNaturalnessScorer(cfg NaturalnessConfig) *NaturalnessScorer {
	if cfg.MaxSide == 0 {
		cfg.MaxSide = 384
	}
	if cfg.Window < 3 {
		cfg.Window = 7
	}
	return &NaturalnessScorer{
		cfg:    cfg,
		kernel: gaussianKernel(cfg.Window, float64(cfg.Window)/6),
		logger: cfg.Logger.With().Str("scorer", "naturalness").Logger(),
	}
}

// Weights of the three MSCN deviations in the final score
const (
	varianceWeight    = 0.5
	kurtosisWeight    = 0.25
	correlationWeight = 0.25

	// excess kurtosis beyond this saturates its term
	kurtosisSpan = 10.0
	// stabilizes the division in flat regions (8-bit intensity scale)
	mscnC = 1.0

	flatVariance = 1e-9
)

func (n *NaturalnessScorer) Score(ctx context.Context, f *frames.Frame) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	plane, w, h := n.analysisPlane(f)
	mscn := n.mscn(plane, w, h)

	variance := stat.PopVariance(mscn, nil)
	kurt := stat.ExKurtosis(mscn, nil)
	corr := neighbourCorrelation(mscn, w, h)

	// Shape terms are meaningless without variance; a flat frame takes the maximum.
	dv := math.Min(1, math.Abs(variance-1))
	dk, dc := 1.0, 1.0
	if variance > flatVariance {
		if !math.IsNaN(kurt) && !math.IsInf(kurt, 0) {
			dk = math.Min(1, math.Abs(kurt)/kurtosisSpan)
		}
		if !math.IsNaN(corr) {
			dc = math.Min(1, math.Abs(corr))
		}
	}

	score := 100 * (varianceWeight*dv + kurtosisWeight*dk + correlationWeight*dc)

	n.logger.Debug().
		Int("frame", f.Index).
		Float64("mscn_variance", variance).
		Float64("mscn_kurtosis", kurt).
		Float64("mscn_correlation", corr).
		Float64("score", score).
		Msg("naturalness scoring complete")

	return score, nil
}

// Close is a no-op for the naturalness scorer
func (n *NaturalnessScorer) Close() error {
	return nil
}

// analysisPlane returns the luminance of f as floats, downscaled so the
// longer side is at most MaxSide.
func (n *NaturalnessScorer) analysisPlane(f *frames.Frame) ([]float64, int, int) {
	src := f
	if uint(f.Width) > n.cfg.MaxSide || uint(f.Height) > n.cfg.MaxSide {
		thumb := resize.Thumbnail(n.cfg.MaxSide, n.cfg.MaxSide, f.ToImage(), resize.Bilinear)
		src = frames.FromImage(f.Index, thumb)
	}

	return lumaPlane(src.Luma()), src.Width, src.Height
}

func (n *NaturalnessScorer) mscn(plane []float64, w, h int) []float64 {
	sq := make([]float64, len(plane))
	for i, v := range plane {
		sq[i] = v * v
	}
	mu := blur(plane, w, h, n.kernel)
	mu2 := blur(sq, w, h, n.kernel)

	out := make([]float64, len(plane))
	for i := range plane {
		sigma := math.Sqrt(math.Abs(mu2[i] - mu[i]*mu[i]))
		out[i] = (plane[i] - mu[i]) / (sigma + mscnC)
	}
	return out
}

// neighbourCorrelation is the Pearson correlation between each MSCN
// coefficient and its right-hand neighbour.
func neighbourCorrelation(mscn []float64, w, h int) float64 {
	if w < 2 {
		return math.NaN()
	}
	a := make([]float64, 0, (w-1)*h)
	b := make([]float64, 0, (w-1)*h)
	for y := 0; y < h; y++ {
		row := mscn[y*w : (y+1)*w]
		a = append(a, row[:w-1]...)
		b = append(b, row[1:]...)
	}
	return stat.Correlation(a, b, nil)
}

func gaussianKernel(size int, sigma float64) []float64 {
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// blur is a separable convolution with reflect-101 borders
func blur(src []float64, w, h int, kernel []float64) []float64 {
	half := len(kernel) / 2
	tmp := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k, kv := range kernel {
				acc += kv * src[y*w+reflect101(x+k-half, w)]
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k, kv := range kernel {
				acc += kv * tmp[reflect101(y+k-half, h)*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}
