package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// RoundProgress draws one progress bar per boosting fit.
type RoundProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	phase  string
}

// NewRoundProgress creates a progress reporter writing to w.
func NewRoundProgress(w io.Writer) *RoundProgress {
	return &RoundProgress{writer: w}
}

// Start begins a bar for a fit of the given number of rounds.
func (p *RoundProgress) Start(phase string, rounds int) {
	p.phase = phase
	p.bar = progressbar.NewOptions(rounds,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]Boosting (%s)...[reset]", phase)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// Round advances the bar and shows the training RMSE on the log scale.
func (p *RoundProgress) Round(_ int, trainRMSE float64) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("[cyan][bold]Boosting (%s)[reset] rmse=%.4f", p.phase, trainRMSE))
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the current bar.
func (p *RoundProgress) Finish() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
	p.bar = nil
}
