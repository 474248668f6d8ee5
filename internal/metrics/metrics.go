package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// Extractor identifiers accepted in configuration
const (
	Sharpness  = "sharpness"
	Brightness = "brightness"
	Perceptual = "perceptual"
)

// Extractor maps one frame to one scalar quality indicator.
// Implementations must not modify the frame.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, f *frames.Frame) (float64, error)
}

// Names lists the built-in extractor identifiers in display order
func Names() []string {
	return []string{Sharpness, Brightness, Perceptual}
}

// Lookup returns the extractor for one identifier. scorer backs the
// perceptual extractor; when nil a NaturalnessScorer is used.
func Lookup(id string, scorer Scorer) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case Sharpness:
		return SharpnessExtractor{}, nil
	case Brightness:
		return BrightnessExtractor{}, nil
	case Perceptual:
		if scorer == nil {
			scorer = NewNaturalnessScorer(DefaultNaturalnessConfig())
		}
		return NewPerceptual(scorer), nil
	}
	return nil, fmt.Errorf("unknown metric %q (available: %s)", id, strings.Join(Names(), ", "))
}

// Resolve turns identifiers into extractors, preserving order
func Resolve(ids []string, scorer Scorer) ([]Extractor, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no metrics configured")
	}

	out := make([]Extractor, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		key := strings.ToLower(strings.TrimSpace(id))
		if seen[key] {
			return nil, fmt.Errorf("metric %q configured twice", key)
		}
		seen[key] = true

		e, err := Lookup(key, scorer)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
