package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

func TestReadRawJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "bare array",
			input: `[{"Zeta":"z","TradePrice":"58000000","Type":"Pre-owned Condominiums, etc.","Area":null}]`,
		},
		{
			name:  "api envelope",
			input: `{"status":"OK","data":[{"Zeta":"z","TradePrice":58000000,"Type":"Pre-owned Condominiums, etc.","Area":null}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadRawJSON(strings.NewReader(tt.input))
			require.NoError(t, err)

			assert.Equal(t, []string{"Type", "TradePrice", "Area", "Zeta"}, tbl.Names())
			for _, col := range tbl.Columns() {
				assert.Equal(t, String, col.Kind(), col.Name())
			}
			assert.Equal(t, "58000000", mustColumn(t, tbl, "TradePrice").Str(0))
			assert.False(t, mustColumn(t, tbl, "Area").IsValid(0))
		})
	}
}

func TestReadRawJSON_RejectsNestedValues(t *testing.T) {
	_, err := ReadRawJSON(strings.NewReader(`[{"Type":{"nested":true}}]`))
	assert.ErrorIs(t, err, common.ErrDataIntegrity)
}

func TestFromRecord(t *testing.T) {
	schema := Schema{"Area": Int, "Breadth": Float}
	tbl, err := FromRecord(map[string]any{
		"Area":      70,
		"Breadth":   nil,
		"FloorPlan": "2LDK",
		"Remarks":   "",
	}, schema)
	require.NoError(t, err)

	assert.Equal(t, []string{"Area", "Breadth", "FloorPlan", "Remarks"}, tbl.Names())
	assert.Equal(t, 70.0, mustColumn(t, tbl, "Area").Num(0))
	assert.True(t, math.IsNaN(mustColumn(t, tbl, "Breadth").Num(0)))
	assert.Equal(t, Float, mustColumn(t, tbl, "Breadth").Kind())
	assert.False(t, mustColumn(t, tbl, "Remarks").IsValid(0))

	_, err = FromRecord(map[string]any{"Area": "wide"}, schema)
	assert.ErrorIs(t, err, common.ErrDataIntegrity)
}
