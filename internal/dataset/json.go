package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

// SourceFields is the field order of the MLIT real-estate transaction API.
// Raw tables list these first, then any other field in name order.
var SourceFields = []string{
	"PriceCategory", "Type", "Region", "MunicipalityCode", "Prefecture",
	"Municipality", "DistrictName", "DistrictCode", "TradePrice", "PricePerUnit",
	"FloorPlan", "Area", "UnitPrice", "LandShape", "Frontage", "TotalFloorArea",
	"BuildingYear", "Structure", "Use", "Purpose", "Direction", "Classification",
	"Breadth", "CityPlanning", "CoverageRatio", "FloorAreaRatio", "Period",
	"Renovation", "Remarks",
}

type rawEnvelope struct {
	Data []map[string]any `json:"data"`
}

// ReadRawJSON decodes raw transaction records into an all-String table. It
// accepts a bare array of objects or the API envelope {"data": [...]}.
// Numbers keep their source spelling; null becomes a missing value.
func ReadRawJSON(r io.Reader) (*Table, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw records: %w", err)
	}

	var records []map[string]any
	trimmed := bytes.TrimSpace(body)
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env rawEnvelope
		if err := decoder.Decode(&env); err != nil {
			return nil, fmt.Errorf("failed to decode raw envelope: %w", err)
		}
		records = env.Data
	} else if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode raw records: %w", err)
	}

	return fromRecords(records)
}

func fromRecords(records []map[string]any) (*Table, error) {
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			seen[k] = true
		}
	}
	names := orderFields(seen)

	cols := make([]*Column, len(names))
	for j, name := range names {
		values := make([]string, len(records))
		valid := make([]bool, len(records))
		for i, rec := range records {
			text, ok, err := stringify(rec[name])
			if err != nil {
				return nil, fmt.Errorf("%w: record %d field %q: %v", common.ErrDataIntegrity, i, name, err)
			}
			values[i], valid[i] = text, ok
		}
		cols[j] = NewStringColumn(name, values, valid)
	}
	return New(cols...)
}

func orderFields(seen map[string]bool) []string {
	names := make([]string, 0, len(seen))
	known := make(map[string]bool, len(SourceFields))
	for _, f := range SourceFields {
		known[f] = true
		if seen[f] {
			names = append(names, f)
		}
	}
	var extra []string
	for f := range seen {
		if !known[f] {
			extra = append(extra, f)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

func stringify(v any) (string, bool, error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return x, true, nil
	case json.Number:
		return x.String(), true, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true, nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true, nil
	case int:
		return strconv.Itoa(x), true, nil
	case int64:
		return strconv.FormatInt(x, 10), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	default:
		return "", false, fmt.Errorf("unsupported value type %T", v)
	}
}

// ReadRawFile loads raw records from a .json or .csv file.
func ReadRawFile(path string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSVFile(path, nil)
	}

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
			slog.Error("failed to close raw records", "path", path, "error", closeErr)
		}
	}()
	return ReadRawJSON(file)
}

// FromRecord builds a one-row table from a field-to-value mapping, typing
// each field with schema. Fields are ordered by name. Nil and empty strings
// are missing values.
func FromRecord(record map[string]any, schema Schema) (*Table, error) {
	names := make([]string, 0, len(record))
	for k := range record {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		col, err := recordColumn(name, schema[name], record[name])
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return New(cols...)
}

func recordColumn(name string, kind Kind, v any) (*Column, error) {
	if t, ok := v.(time.Time); ok {
		return NewDateColumn(name, []time.Time{t}, []bool{!t.IsZero()}), nil
	}
	text, present, err := stringify(v)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", common.ErrDataIntegrity, name, err)
	}
	present = present && text != ""

	switch kind {
	case Int, Float:
		num := math.NaN()
		if present {
			num, err = ParseNumber(kind, text)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", common.ErrDataIntegrity, name, err)
			}
		}
		return NewNumberColumn(name, kind, []float64{num}, []bool{present}), nil
	case Date:
		var when time.Time
		if present {
			when, err = time.Parse(DateLayout, text)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %q is not a date", common.ErrDataIntegrity, name, text)
			}
		}
		return NewDateColumn(name, []time.Time{when}, []bool{present}), nil
	default:
		return NewStringColumn(name, []string{text}, []bool{present}), nil
	}
}
