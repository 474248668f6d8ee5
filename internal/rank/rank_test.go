package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monikutee/video-frames-analysis/internal/features"
)

func table(t *testing.T, sharp []float64) *features.Table {
	t.Helper()
	rows := make([][]float64, len(sharp))
	for i, v := range sharp {
		rows[i] = []float64{v, 100 - v}
	}
	tbl, err := features.NewTable([]string{"sharpness", "perceptual"}, rows)
	require.NoError(t, err)
	return tbl
}

func TestWorstLowerIsWorse(t *testing.T) {
	// cluster means: 0 -> 50, 1 -> 10, 2 -> 90
	tbl := table(t, []float64{40, 60, 5, 15, 80, 100})
	labels := []int{0, 0, 1, 1, 2, 2}

	res, err := Worst(tbl, labels, 3, "sharpness", LowerIsWorse)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Worst)
	assert.Equal(t, []float64{50, 10, 90}, res.Scores)
	assert.Equal(t, "sharpness", res.Column)
}

func TestWorstHigherIsWorse(t *testing.T) {
	tbl := table(t, []float64{40, 60, 5, 15, 80, 100})
	labels := []int{0, 0, 1, 1, 2, 2}

	// perceptual = 100 - sharpness -> means 50, 90, 10
	res, err := Worst(tbl, labels, 3, "perceptual", HigherIsWorse)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Worst)
}

func TestWorstTieBreaksToLowestID(t *testing.T) {
	tbl := table(t, []float64{10, 10, 10, 50})
	labels := []int{2, 1, 0, 0}
	// means: 0 -> 30, 1 -> 10, 2 -> 10
	res, err := Worst(tbl, labels, 3, "sharpness", LowerIsWorse)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Worst)

	tbl = table(t, []float64{7, 7, 7})
	res, err = Worst(tbl, []int{2, 1, 0}, 3, "sharpness", HigherIsWorse)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Worst)
}

func TestWorstSkipsEmptyClusters(t *testing.T) {
	tbl := table(t, []float64{3, 4})
	res, err := Worst(tbl, []int{1, 2}, 3, "sharpness", LowerIsWorse)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(res.Scores[0]))
	assert.Equal(t, 1, res.Worst)
}

func TestWorstErrors(t *testing.T) {
	tbl := table(t, []float64{1, 2, 3})

	_, err := Worst(tbl, []int{0, 1}, 3, "sharpness", LowerIsWorse)
	assert.Error(t, err)

	_, err = Worst(tbl, []int{0, 1, 2}, 3, "contrast", LowerIsWorse)
	assert.ErrorContains(t, err, "unknown feature column")

	_, err = Worst(tbl, []int{0, 1, 5}, 3, "sharpness", LowerIsWorse)
	assert.Error(t, err)

	_, err = Worst(tbl, []int{0, 1, 2}, 3, "sharpness", Direction("sideways"))
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" Lower ")
	require.NoError(t, err)
	assert.Equal(t, LowerIsWorse, d)

	d, err = ParseDirection("HIGHER")
	require.NoError(t, err)
	assert.Equal(t, HigherIsWorse, d)

	_, err = ParseDirection("min")
	assert.Error(t, err)
}
