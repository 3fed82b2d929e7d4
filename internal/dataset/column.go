// Package dataset provides the typed, immutable columnar table that flows
// between pipeline stages, along with its CSV and JSON codecs.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the storage type of a column.
type Kind int

// Column kinds. Int and Float share float64 storage; Int only differs in how
// values are parsed and formatted.
const (
	String Kind = iota
	Int
	Float
	Date
)

// DateLayout is the on-disk format of Date columns.
const DateLayout = "2006-01-02"

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsNumeric reports whether values of this kind are stored as numbers.
func (k Kind) IsNumeric() bool {
	return k == Int || k == Float
}

// Column is a named, typed, nullable vector. Columns are never modified after
// construction; every transformation builds a new one.
type Column struct {
	name  string
	kind  Kind
	str   []string
	num   []float64
	dates []time.Time
	valid []bool
}

func allValid(n int) []bool {
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}
	return valid
}

func checkValid(n int, valid []bool) []bool {
	if valid == nil {
		return allValid(n)
	}
	if len(valid) != n {
		panic(fmt.Sprintf("dataset: validity mask has %d entries for %d values", len(valid), n))
	}
	return valid
}

// NewStringColumn creates a string column. A nil mask marks every value present.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	return &Column{name: name, kind: String, str: values, valid: checkValid(len(values), valid)}
}

// NewNumberColumn creates an Int or Float column. NaN values are treated as
// missing regardless of the mask.
func NewNumberColumn(name string, kind Kind, values []float64, valid []bool) *Column {
	if !kind.IsNumeric() {
		panic(fmt.Sprintf("dataset: %s is not a numeric kind", kind))
	}
	valid = checkValid(len(values), valid)
	for i, v := range values {
		if math.IsNaN(v) && valid[i] {
			masked := make([]bool, len(valid))
			copy(masked, valid)
			for j := i; j < len(values); j++ {
				if math.IsNaN(values[j]) {
					masked[j] = false
				}
			}
			valid = masked
			break
		}
	}
	return &Column{name: name, kind: kind, num: values, valid: valid}
}

// NewIntColumn creates an Int column from integers with every value present.
func NewIntColumn(name string, values []int) *Column {
	num := make([]float64, len(values))
	for i, v := range values {
		num[i] = float64(v)
	}
	return NewNumberColumn(name, Int, num, nil)
}

// NewDateColumn creates a Date column.
func NewDateColumn(name string, values []time.Time, valid []bool) *Column {
	return &Column{name: name, kind: Date, dates: values, valid: checkValid(len(values), valid)}
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column kind.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of rows.
func (c *Column) Len() int { return len(c.valid) }

// IsValid reports whether row i holds a value.
func (c *Column) IsValid(i int) bool { return c.valid[i] }

// Str returns row i of a String column; missing rows return "".
func (c *Column) Str(i int) string {
	if c.kind != String || !c.valid[i] {
		return ""
	}
	return c.str[i]
}

// Num returns row i of a numeric column; missing rows return NaN.
func (c *Column) Num(i int) float64 {
	if !c.kind.IsNumeric() || !c.valid[i] {
		return math.NaN()
	}
	return c.num[i]
}

// Time returns row i of a Date column; missing rows return the zero time.
func (c *Column) Time(i int) time.Time {
	if c.kind != Date || !c.valid[i] {
		return time.Time{}
	}
	return c.dates[i]
}

// Missing counts rows without a value.
func (c *Column) Missing() int {
	n := 0
	for _, ok := range c.valid {
		if !ok {
			n++
		}
	}
	return n
}

// Floats copies a numeric column into a slice, missing rows as NaN.
func (c *Column) Floats() []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		out[i] = c.Num(i)
	}
	return out
}

// Strings copies a String column and its validity mask.
func (c *Column) Strings() ([]string, []bool) {
	out := make([]string, c.Len())
	valid := make([]bool, c.Len())
	for i := range out {
		out[i] = c.Str(i)
		valid[i] = c.kind == String && c.valid[i]
	}
	return out, valid
}

// Format renders row i the way it is written to CSV. Missing is "".
func (c *Column) Format(i int) string {
	if !c.valid[i] {
		return ""
	}
	switch c.kind {
	case String:
		return c.str[i]
	case Int:
		return strconv.FormatInt(int64(c.num[i]), 10)
	case Float:
		return strconv.FormatFloat(c.num[i], 'f', -1, 64)
	case Date:
		return c.dates[i].Format(DateLayout)
	default:
		return ""
	}
}

// Value returns row i as a Go value: string, float64, time.Time or nil.
func (c *Column) Value(i int) any {
	if !c.valid[i] {
		return nil
	}
	switch c.kind {
	case String:
		return c.str[i]
	case Int, Float:
		return c.num[i]
	case Date:
		return c.dates[i]
	default:
		return nil
	}
}

func (c *Column) renamed(name string) *Column {
	clone := *c
	clone.name = name
	return &clone
}

func (c *Column) take(idx []int) *Column {
	out := &Column{name: c.name, kind: c.kind, valid: make([]bool, len(idx))}
	switch c.kind {
	case String:
		out.str = make([]string, len(idx))
	case Int, Float:
		out.num = make([]float64, len(idx))
	case Date:
		out.dates = make([]time.Time, len(idx))
	}
	for j, i := range idx {
		out.valid[j] = c.valid[i]
		switch c.kind {
		case String:
			out.str[j] = c.str[i]
		case Int, Float:
			out.num[j] = c.num[i]
		case Date:
			out.dates[j] = c.dates[i]
		}
	}
	return out
}
