package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// columns whose spread is below this, relative to their magnitude, are constant
const constantTolerance = 1e-10

// Normalize standardizes each column to zero mean and unit variance using
// the table's own population statistics. Constant columns become all
// zeros instead of dividing by zero. The input table is left untouched.
func Normalize(t *Table) *Table {
	rows, cols := t.Data.Dims()
	out := mat.NewDense(rows, cols, nil)

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, t.Data)
		mean, std := stat.PopMeanStdDev(col, nil)
		constant := std <= constantTolerance*math.Max(1, math.Abs(mean))
		for i, v := range col {
			if constant {
				out.Set(i, j, 0)
				continue
			}
			out.Set(i, j, (v-mean)/std)
		}
	}

	return &Table{Columns: append([]string(nil), t.Columns...), Data: out}
}
