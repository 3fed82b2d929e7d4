package dataset

import (
	"fmt"
	"math"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

// Matrix lays the named numeric columns out row-major in the given order.
// Missing values are NaN.
func (t *Table) Matrix(names []string) ([][]float64, error) {
	cols := make([]*Column, len(names))
	for j, name := range names {
		col, err := t.RequireKind(name, Int, Float)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}

	rows := make([][]float64, t.rows)
	backing := make([]float64, t.rows*len(cols))
	for i := range rows {
		rows[i] = backing[i*len(cols) : (i+1)*len(cols) : (i+1)*len(cols)]
		for j, col := range cols {
			rows[i][j] = col.Num(i)
		}
	}
	return rows, nil
}

// Target returns a numeric column as a slice and fails if any value is
// missing.
func (t *Table) Target(name string) ([]float64, error) {
	col, err := t.RequireKind(name, Int, Float)
	if err != nil {
		return nil, err
	}
	y := col.Floats()
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: target %q missing at row %d", common.ErrDataIntegrity, name, i)
		}
	}
	return y, nil
}
