package dataset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

// Table errors.
var (
	ErrLengthMismatch  = errors.New("column length mismatch")
	ErrDuplicateColumn = errors.New("duplicate column")
)

// Table is an ordered set of equally long columns. Every method that changes
// the shape returns a new Table and leaves the receiver untouched.
type Table struct {
	index   map[string]int
	columns []*Column
	rows    int
}

// New builds a table from columns, which must share a length and have
// distinct names.
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if i == 0 {
			t.rows = col.Len()
		} else if col.Len() != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, expected %d", ErrLengthMismatch, col.Name(), col.Len(), t.rows)
		}
		if _, dup := t.index[col.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name())
		}
		t.index[col.Name()] = i
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// Len returns the row count.
func (t *Table) Len() int { return t.rows }

// Width returns the column count.
func (t *Table) Width() int { return len(t.columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name()
	}
	return names
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Require fails with common.ErrSchemaViolation naming the first absent column.
func (t *Table) Require(names ...string) error {
	for _, name := range names {
		if !t.Has(name) {
			return fmt.Errorf("%w: required column %q is absent", common.ErrSchemaViolation, name)
		}
	}
	return nil
}

// RequireKind is Require plus a kind check.
func (t *Table) RequireKind(name string, kinds ...Kind) (*Column, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: required column %q is absent", common.ErrSchemaViolation, name)
	}
	for _, k := range kinds {
		if col.Kind() == k {
			return col, nil
		}
	}
	return nil, fmt.Errorf("%w: column %q has kind %s, expected %v", common.ErrSchemaViolation, name, col.Kind(), kinds)
}

// Drop removes the named columns. Names that are not present are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := make([]*Column, 0, len(t.columns))
	for _, col := range t.columns {
		if !drop[col.Name()] {
			kept = append(kept, col)
		}
	}
	return t.rebuild(kept, t.rows)
}

// Select keeps only the named columns, in the order given. Absent names are
// an error.
func (t *Table) Select(names ...string) (*Table, error) {
	if err := t.Require(names...); err != nil {
		return nil, err
	}
	cols := make([]*Column, len(names))
	for i, n := range names {
		cols[i], _ = t.Column(n)
	}
	return New(cols...)
}

// Rename renames columns according to mapping. Absent source names are
// ignored; renaming onto an existing column is an error.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		if to, ok := mapping[col.Name()]; ok {
			cols[i] = col.renamed(to)
		} else {
			cols[i] = col
		}
	}
	return New(cols...)
}

// With adds col, replacing an existing column of the same name in place.
func (t *Table) With(col *Column) (*Table, error) {
	if len(t.columns) > 0 && col.Len() != t.rows {
		return nil, fmt.Errorf("%w: %q has %d rows, expected %d", ErrLengthMismatch, col.Name(), col.Len(), t.rows)
	}
	cols := make([]*Column, len(t.columns), len(t.columns)+1)
	copy(cols, t.columns)
	if i, ok := t.index[col.Name()]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return t.rebuild(cols, col.Len()), nil
}

// Filter keeps the rows where keep is true.
func (t *Table) Filter(keep []bool) (*Table, error) {
	if len(keep) != t.rows {
		return nil, fmt.Errorf("%w: mask has %d entries for %d rows", ErrLengthMismatch, len(keep), t.rows)
	}
	idx := make([]int, 0, t.rows)
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return t.Take(idx), nil
}

// Take builds a table from the given row positions, in that order.
func (t *Table) Take(idx []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		cols[i] = col.take(idx)
	}
	return t.rebuild(cols, len(idx))
}

// Slice returns rows [from, to).
func (t *Table) Slice(from, to int) *Table {
	if from < 0 {
		from = 0
	}
	if to > t.rows {
		to = t.rows
	}
	if to < from {
		to = from
	}
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return t.Take(idx)
}

// SortBy stably orders rows by a Date or numeric column, ascending, with
// missing values last.
func (t *Table) SortBy(name string) (*Table, error) {
	col, err := t.RequireKind(name, Date, Int, Float)
	if err != nil {
		return nil, err
	}
	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	less := func(a, b int) bool {
		va, vb := col.IsValid(a), col.IsValid(b)
		if !va || !vb {
			return va && !vb
		}
		if col.Kind() == Date {
			return col.Time(a).Before(col.Time(b))
		}
		return col.Num(a) < col.Num(b)
	}
	sort.SliceStable(idx, func(i, j int) bool { return less(idx[i], idx[j]) })
	return t.Take(idx), nil
}

// Row returns row i as a name-to-value map (see Column.Value).
func (t *Table) Row(i int) map[string]any {
	row := make(map[string]any, len(t.columns))
	for _, col := range t.columns {
		row[col.Name()] = col.Value(i)
	}
	return row
}

func (t *Table) rebuild(cols []*Column, rows int) *Table {
	out := &Table{index: make(map[string]int, len(cols)), columns: cols, rows: rows}
	if len(cols) == 0 {
		out.rows = 0
	}
	for i, col := range cols {
		out.index[col.Name()] = i
	}
	return out
}
