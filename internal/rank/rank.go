package rank

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/monikutee/video-frames-analysis/internal/features"
)

// Direction says which end of the ranking column is bad
type Direction string

const (
	// LowerIsWorse suits metrics like sharpness.
	LowerIsWorse Direction = "lower"
	// HigherIsWorse suits degradation scores.
	HigherIsWorse Direction = "higher"
)

// ParseDirection accepts "lower" or "higher" in any case
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case LowerIsWorse:
		return LowerIsWorse, nil
	case HigherIsWorse:
		return HigherIsWorse, nil
	}
	return "", fmt.Errorf("unknown ranking direction %q (want %q or %q)", s, LowerIsWorse, HigherIsWorse)
}

// Result carries the chosen cluster and the per-cluster means it was chosen from
type Result struct {
	Worst  int
	Column string
	// Scores[id] is the mean of Column over cluster id, NaN when empty.
	Scores []float64
}

// Worst picks the cluster whose mean of column is lowest (LowerIsWorse)
// or highest (HigherIsWorse) in the raw, un-normalized table.
// Ties go to the lowest cluster id.
func Worst(tbl *features.Table, labels []int, k int, column string, dir Direction) (*Result, error) {
	if len(labels) != tbl.Rows() {
		return nil, fmt.Errorf("rank: %d labels for %d rows", len(labels), tbl.Rows())
	}
	if dir != LowerIsWorse && dir != HigherIsWorse {
		return nil, fmt.Errorf("rank: invalid direction %q", dir)
	}

	values, err := tbl.ColumnValues(column)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	groups := make([][]float64, k)
	for i, l := range labels {
		if l < 0 || l >= k {
			return nil, fmt.Errorf("rank: label %d of row %d outside 0..%d", l, i, k-1)
		}
		groups[l] = append(groups[l], values[i])
	}

	res := &Result{Worst: -1, Column: column, Scores: make([]float64, k)}
	for id, g := range groups {
		if len(g) == 0 {
			res.Scores[id] = math.NaN()
			continue
		}
		mean := stat.Mean(g, nil)
		res.Scores[id] = mean

		if res.Worst < 0 || worse(mean, res.Scores[res.Worst], dir) {
			res.Worst = id
		}
	}

	if res.Worst < 0 {
		return nil, fmt.Errorf("rank: no populated clusters")
	}
	return res, nil
}

// worse is strict so that equal means keep the earlier (lower) id
func worse(candidate, current float64, dir Direction) bool {
	if dir == LowerIsWorse {
		return candidate < current
	}
	return candidate > current
}
