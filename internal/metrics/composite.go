package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// CompositeScorer combines multiple scorers
type CompositeScorer struct {
	scorers []Scorer
	weights []float64
}

// NewCompositeScorer creates a scorer that returns the weighted mean of its
// parts. Weights need not sum to one.
func NewCompositeScorer(scorers []Scorer, weights []float64) (*CompositeScorer, error) {
	if len(scorers) == 0 {
		return nil, errors.New("composite scorer needs at least one scorer")
	}
	if len(scorers) != len(weights) {
		return nil, fmt.Errorf("%d scorers but %d weights", len(scorers), len(weights))
	}

	var total float64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("weight %d is negative", i)
		}
		total += w
	}
	if total == 0 {
		return nil, errors.New("weights sum to zero")
	}

	norm := make([]float64, len(weights))
	for i, w := range weights {
		norm[i] = w / total
	}
	return &CompositeScorer{scorers: scorers, weights: norm}, nil
}

// Score calculates a weighted average of all scorers
func (c *CompositeScorer) Score(ctx context.Context, f *frames.Frame) (float64, error) {
	var score float64
	for i, s := range c.scorers {
		v, err := s.Score(ctx, f)
		if err != nil {
			return 0, err
		}
		score += c.weights[i] * v
	}
	return score, nil
}

// Close closes all underlying scorers
func (c *CompositeScorer) Close() error {
	var errs []error
	for _, scorer := range c.scorers {
		if err := scorer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Built-in scorer kinds for the perceptual metric
const (
	ScorerNaturalness = "naturalness"
	ScorerAesthetic   = "aesthetic"
	ScorerComposite   = "composite"
)

// ScorerKinds lists the built-in scorer kinds
func ScorerKinds() []string {
	return []string{ScorerNaturalness, ScorerAesthetic, ScorerComposite}
}

// NewScorer builds a built-in scorer. The composite blends naturalness (70%)
// with aesthetics (30%).
func NewScorer(kind string, cfg NaturalnessConfig) (Scorer, error) {
	switch kind {
	case "", ScorerNaturalness:
		return NewNaturalnessScorer(cfg), nil
	case ScorerAesthetic:
		return NewAestheticScorer(cfg.Logger), nil
	case ScorerComposite:
		c, err := NewCompositeScorer(
			[]Scorer{NewNaturalnessScorer(cfg), NewAestheticScorer(cfg.Logger)},
			[]float64{0.7, 0.3},
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown scorer %q", kind)
}
