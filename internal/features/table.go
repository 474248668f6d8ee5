package features

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/monikutee/video-frames-analysis/internal/frames"
	"github.com/monikutee/video-frames-analysis/internal/metrics"
)

// ErrEmptyInput is returned when there is nothing to build a table from
var ErrEmptyInput = errors.New("empty input")

// Table holds one row per frame and one column per metric.
// Column order is fixed at build time; downstream stages index positionally.
type Table struct {
	Columns []string
	Data    *mat.Dense
}

// ProgressFunc is called after each frame's row has been filled
type ProgressFunc func(done, total int)

// Build applies every extractor, in order, to every frame
func Build(ctx context.Context, fs []*frames.Frame, exts []metrics.Extractor, progress ProgressFunc) (*Table, error) {
	if len(fs) == 0 {
		return nil, fmt.Errorf("build feature table: no frames: %w", ErrEmptyInput)
	}
	if len(exts) == 0 {
		return nil, fmt.Errorf("build feature table: no metrics: %w", ErrEmptyInput)
	}

	cols := make([]string, len(exts))
	for j, e := range exts {
		cols[j] = e.Name()
	}

	data := mat.NewDense(len(fs), len(exts), nil)
	for i, f := range fs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j, e := range exts {
			v, err := e.Extract(ctx, f)
			if err != nil {
				return nil, fmt.Errorf("metric %s: %w", e.Name(), err)
			}
			data.Set(i, j, v)
		}
		if progress != nil {
			progress(i+1, len(fs))
		}
	}

	return &Table{Columns: cols, Data: data}, nil
}

// NewTable wraps existing rows, mostly for tests and replays
func NewTable(columns []string, rows [][]float64) (*Table, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return nil, ErrEmptyInput
	}
	data := mat.NewDense(len(rows), len(columns), nil)
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		data.SetRow(i, row)
	}
	return &Table{Columns: append([]string(nil), columns...), Data: data}, nil
}

// Rows returns the number of frames
func (t *Table) Rows() int {
	r, _ := t.Data.Dims()
	return r
}

// Column returns the position of a named column, or -1
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ColumnValues copies out one column by name
func (t *Table) ColumnValues(name string) ([]float64, error) {
	j := t.Column(name)
	if j < 0 {
		return nil, fmt.Errorf("unknown feature column %q", name)
	}
	return mat.Col(nil, j, t.Data), nil
}

// Row copies out the feature vector of frame i
func (t *Table) Row(i int) []float64 {
	return mat.Row(nil, i, t.Data)
}
