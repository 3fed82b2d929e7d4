package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/tokyo-appraiser/internal/model"
)

// HistoryTimeLayout is how run timestamps are shown.
const HistoryTimeLayout = "2006-01-02 15:04"

var historyHeaders = []string{"Run At (UTC)", "MAE", "MAPE", "Training Rows", "Validation Rows", "Run ID"}

// RenderHistory lays training runs out as an aligned table, oldest first.
func RenderHistory(runs []model.TrainingRun) string {
	if len(runs) == 0 {
		return SubtleStyle.Render("No training runs recorded yet.")
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunAt.UTC().Format(HistoryTimeLayout),
			FormatYen(r.MAE),
			FormatPercent(r.MAPE),
			strconv.Itoa(r.TrainingRows),
			strconv.Itoa(r.ValidationRows),
			r.ID,
		})
	}

	widths := make([]int, len(historyHeaders))
	for j, h := range historyHeaders {
		widths[j] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for j, cell := range row {
			widths[j] = max(widths[j], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	header := make([]string, len(historyHeaders))
	for j, h := range historyHeaders {
		header[j] = TableCellStyle.Width(widths[j] + 2).Render(h)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, header...)))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			style := TableCellStyle.Width(widths[j] + 2)
			if j >= 1 && j <= 4 {
				style = style.Align(lipgloss.Right)
			}
			cells[j] = style.Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderRunSummary describes one health check for the end of a training run.
func RenderRunSummary(run model.TrainingRun, promoted bool, artifactPath string) string {
	lines := []string{
		fmt.Sprintf("%s Validation MAE:  %s", ChartIcon, BoldStyle.Render(FormatYen(run.MAE))),
		fmt.Sprintf("%s Validation MAPE: %s", ChartIcon, BoldStyle.Render(FormatPercent(run.MAPE))),
		fmt.Sprintf("Rows: %d total, %d held out", run.TrainingRows, run.ValidationRows),
		SubtleStyle.Render("Run " + run.ID),
	}
	title := "Model promoted"
	if promoted {
		lines = append(lines, FormatSuccess("Artifact written to "+artifactPath))
	} else {
		title = "Health check failed"
		lines = append(lines, FormatWarning("Previous artifact left in place"))
	}
	return RenderBox(title, strings.Join(lines, "\n"))
}

// RenderPrediction describes one price estimate.
func RenderPrediction(yen float64, highValue bool, threshold float64) string {
	lines := []string{fmt.Sprintf("%s Estimated price: %s", YenIcon, BoldStyle.Render(FormatYen(yen)))}
	if highValue {
		lines = append(lines, FormatWarning("High-value property (at or above "+FormatYen(threshold)+")"))
	} else {
		lines = append(lines, SubtleStyle.Render("Mass-market segment (below "+FormatYen(threshold)+")"))
	}
	return RenderBox("Appraisal", strings.Join(lines, "\n"))
}
