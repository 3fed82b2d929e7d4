package training

import (
	"fmt"
	"time"

	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// SplitResult is a chronological train/validation partition.
type SplitResult struct {
	Train      *dataset.Table
	Validation *dataset.Table
	// Boundary is the quarter end date of the first validation row.
	Boundary time.Time
}

// Split makes the last holdout rows of a table already sorted by quarter
// end date the validation set and everything before it the training set.
// At least one training row must remain.
func Split(sorted *dataset.Table, holdout int) (*SplitResult, error) {
	if holdout <= 0 {
		return nil, fmt.Errorf("%w: holdout size must be positive, got %d", common.ErrInvalidConfig, holdout)
	}
	n := sorted.Len()
	if n <= holdout {
		return nil, fmt.Errorf("%w: %d rows, need more than the %d-row holdout", common.ErrInsufficientData, n, holdout)
	}

	cut := n - holdout
	res := &SplitResult{
		Train:      sorted.Slice(0, cut),
		Validation: sorted.Slice(cut, n),
	}
	if col, ok := sorted.Column(cleaning.ColQuarterEndDate); ok {
		res.Boundary = col.Time(cut)
	}
	return res, nil
}
