package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Reporter persists the final verdict of a run.
type Reporter interface {
	// Name identifies the destination in logs and results
	Name() string
	Write(ctx context.Context, run *Run) error
}

// Run is the persisted outcome of one analysis.
type Run struct {
	ID               uuid.UUID        `json:"id"`
	CreatedAt        time.Time        `json:"created_at"`
	Input            string           `json:"input"`
	Output           string           `json:"output"`
	FPS              float64          `json:"fps"`
	Width            int              `json:"width"`
	Height           int              `json:"height"`
	Columns          []string         `json:"columns"`
	RankingColumn    string           `json:"ranking_column"`
	RankingDirection string           `json:"ranking_direction"`
	Worst            int              `json:"worst_cluster"`
	Clusters         []ClusterSummary `json:"clusters"`
	Frames           []FrameRow       `json:"frames"`
}

// ClusterSummary describes one cluster. Mean is nil for an empty cluster.
type ClusterSummary struct {
	ID      int      `json:"id"`
	Size    int      `json:"size"`
	Mean    *float64 `json:"mean"`
	Flagged bool     `json:"flagged"`
}

// FrameRow is one frame's raw and standardized features plus its verdict.
type FrameRow struct {
	Index      int       `json:"index"`
	Cluster    int       `json:"cluster"`
	Flagged    bool      `json:"flagged"`
	Values     []float64 `json:"values"`
	Normalized []float64 `json:"normalized"`
}

// NewRun stamps a fresh id and creation time.
func NewRun() *Run {
	return &Run{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
}

// SetClusters fills Clusters from per-cluster sizes and ranking means.
func (r *Run) SetClusters(sizes []int, means []float64) {
	r.Clusters = make([]ClusterSummary, len(sizes))
	for id, n := range sizes {
		c := ClusterSummary{ID: id, Size: n, Flagged: id == r.Worst}
		if id < len(means) && !math.IsNaN(means[id]) {
			m := means[id]
			c.Mean = &m
		}
		r.Clusters[id] = c
	}
}

// FlaggedFrames lists the indices of frames in the worst cluster.
func (r *Run) FlaggedFrames() []int {
	var out []int
	for _, f := range r.Frames {
		if f.Flagged {
			out = append(out, f.Index)
		}
	}
	return out
}

// Frame returns the row of the frame with the given index.
func (r *Run) Frame(index int) (*FrameRow, error) {
	for i := range r.Frames {
		if r.Frames[i].Index == index {
			return &r.Frames[i], nil
		}
	}
	return nil, fmt.Errorf("run %s has no frame %d", r.ID, index)
}
