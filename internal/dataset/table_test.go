package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		NewStringColumn("name", []string{"a", "b", "", "d"}, []bool{true, true, false, true}),
		NewNumberColumn("price", Int, []float64{30, 10, 20, math.NaN()}, nil),
		NewDateColumn("when", []time.Time{
			time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2019, 3, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2019, 3, 31, 0, 0, 0, 0, time.UTC),
			{},
		}, []bool{true, true, true, false}),
	)
	require.NoError(t, err)
	return tbl
}

func TestNew(t *testing.T) {
	t.Run("length mismatch", func(t *testing.T) {
		_, err := New(NewIntColumn("a", []int{1, 2}), NewIntColumn("b", []int{1}))
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := New(NewIntColumn("a", []int{1}), NewIntColumn("a", []int{2}))
		assert.ErrorIs(t, err, ErrDuplicateColumn)
	})

	t.Run("NaN is missing", func(t *testing.T) {
		col := NewNumberColumn("x", Float, []float64{1, math.NaN()}, nil)
		assert.True(t, col.IsValid(0))
		assert.False(t, col.IsValid(1))
		assert.Equal(t, 1, col.Missing())
	})
}

func TestTable_ShapeOperationsLeaveReceiverUntouched(t *testing.T) {
	tbl := sampleTable(t)

	dropped := tbl.Drop("price", "absent")
	assert.Equal(t, []string{"name", "when"}, dropped.Names())

	renamed, err := tbl.Rename(map[string]string{"price": "cost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "cost", "when"}, renamed.Names())

	replaced, err := tbl.With(NewIntColumn("price", []int{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "price", "when"}, replaced.Names())
	col, _ := replaced.Column("price")
	assert.Equal(t, []float64{1, 2, 3, 4}, col.Floats())

	filtered, err := tbl.Filter([]bool{true, false, true, false})
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Len())

	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, []string{"name", "price", "when"}, tbl.Names())
	orig, _ := tbl.Column("price")
	assert.Equal(t, 30.0, orig.Num(0))
}

func TestTable_RenameOntoExistingColumn(t *testing.T) {
	tbl := sampleTable(t)
	_, err := tbl.Rename(map[string]string{"price": "name"})
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestTable_SortByIsStableWithMissingLast(t *testing.T) {
	sorted, err := sampleTable(t).SortBy("when")
	require.NoError(t, err)

	names, valid := mustColumn(t, sorted, "name").Strings()
	assert.Equal(t, []string{"b", "", "a", "d"}, names)
	assert.Equal(t, []bool{true, false, true, true}, valid)
	assert.False(t, mustColumn(t, sorted, "when").IsValid(3))
}

func TestTable_SortByRejectsStrings(t *testing.T) {
	_, err := sampleTable(t).SortBy("name")
	assert.ErrorIs(t, err, common.ErrSchemaViolation)
}

func TestTable_Slice(t *testing.T) {
	tbl := sampleTable(t)
	tests := []struct {
		name     string
		from, to int
		want     int
	}{
		{name: "head", from: 0, to: 2, want: 2},
		{name: "tail", from: 2, to: 4, want: 2},
		{name: "clamped", from: -1, to: 10, want: 4},
		{name: "inverted", from: 3, to: 1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tbl.Slice(tt.from, tt.to).Len())
		})
	}
}

func TestTable_RequireAndSelect(t *testing.T) {
	tbl := sampleTable(t)
	assert.NoError(t, tbl.Require("name", "when"))
	assert.ErrorIs(t, tbl.Require("name", "missing"), common.ErrSchemaViolation)

	sel, err := tbl.Select("when", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"when", "name"}, sel.Names())

	_, err = tbl.RequireKind("name", Int)
	assert.ErrorIs(t, err, common.ErrSchemaViolation)
}

func TestTable_Row(t *testing.T) {
	row := sampleTable(t).Row(2)
	assert.Nil(t, row["name"])
	assert.Equal(t, 20.0, row["price"])
	assert.Equal(t, time.Date(2019, 3, 31, 0, 0, 0, 0, time.UTC), row["when"])
}

func mustColumn(t *testing.T, tbl *Table, name string) *Column {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	return col
}
