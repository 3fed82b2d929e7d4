package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

// Schema maps column names to kinds. Columns not listed read as String.
type Schema map[string]Kind

// Merge returns a schema holding the entries of s overlaid with other.
func (s Schema) Merge(other Schema) Schema {
	out := make(Schema, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ParseNumber parses text as a value of a numeric kind. Int accepts any
// integral float spelling ("40", "40.0") and rejects fractional values.
func ParseNumber(kind Kind, text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", text)
	}
	if kind == Int && v != math.Trunc(v) {
		return 0, fmt.Errorf("%q is not an integer", text)
	}
	return v, nil
}

// ReadCSV decodes a table whose first record is the header. Empty cells are
// missing values.
func ReadCSV(r io.Reader, schema Schema) (*Table, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}

	cols := make([]*Column, len(header))
	for j, name := range header {
		col, err := decodeColumn(name, schema[name], records, j)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	return New(cols...)
}

func decodeColumn(name string, kind Kind, records [][]string, j int) (*Column, error) {
	n := len(records)
	valid := make([]bool, n)
	switch kind {
	case Int, Float:
		values := make([]float64, n)
		for i, rec := range records {
			if rec[j] == "" {
				continue
			}
			v, err := ParseNumber(kind, rec[j])
			if err != nil {
				return nil, fmt.Errorf("%w: column %q row %d: %v", common.ErrDataIntegrity, name, i, err)
			}
			values[i], valid[i] = v, true
		}
		return NewNumberColumn(name, kind, values, valid), nil
	case Date:
		values := make([]time.Time, n)
		for i, rec := range records {
			if rec[j] == "" {
				continue
			}
			v, err := time.Parse(DateLayout, rec[j])
			if err != nil {
				return nil, fmt.Errorf("%w: column %q row %d: %q is not a date", common.ErrDataIntegrity, name, i, rec[j])
			}
			values[i], valid[i] = v, true
		}
		return NewDateColumn(name, values, valid), nil
	default:
		values := make([]string, n)
		for i, rec := range records {
			values[i] = rec[j]
			valid[i] = rec[j] != ""
		}
		return NewStringColumn(name, values, valid), nil
	}
}

// WriteCSV encodes a table with a header record.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Names()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	cols := t.Columns()
	record := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		for j, col := range cols {
			record[j] = col.Format(i)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSVFile opens path and decodes it with schema. A missing file is
// common.ErrInputMissing.
func ReadCSVFile(path string, schema Schema) (*Table, error) {
	// #nosec G304 - dataset paths come from configuration
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrInputMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("failed to close dataset", "path", path, "error", closeErr)
		}
	}()
	return ReadCSV(file, schema)
}

// WriteCSVFile replaces path with the encoded table atomically.
func WriteCSVFile(path string, t *Table) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, t)
	})
}
