package cleaning

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// rawTable builds an all-string table the way raw registry records load.
func rawTable(t *testing.T, records ...map[string]any) *dataset.Table {
	t.Helper()
	body, err := json.Marshal(records)
	require.NoError(t, err)
	tbl, err := dataset.ReadRawJSON(strings.NewReader(string(body)))
	require.NoError(t, err)
	return tbl
}

func column(t *testing.T, tbl *dataset.Table, name string) *dataset.Column {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	return col
}

func condo(price, area string) map[string]any {
	return map[string]any{
		"Type":         TypeCondominium,
		"Municipality": "Setagaya Ward",
		"TradePrice":   price,
		"Area":         area,
		"FloorPlan":    "2LDK",
		"BuildingYear": "2005",
		"Period":       "1st quarter 2020",
	}
}
