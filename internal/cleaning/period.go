package cleaning

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// Columns produced by ParsePeriods.
const (
	ColTransactionYear    = "TransactionYear"
	ColTransactionQuarter = "TransactionQuarter"
	ColQuarterEndDate     = "TransactionQuarterEndDate"
)

type monthDay struct {
	month time.Month
	day   int
}

var quarterEnds = map[int]monthDay{
	1: {time.March, 31},
	2: {time.June, 30},
	3: {time.September, 30},
	4: {time.December, 31},
}

// Period is a decoded registry transaction period.
type Period struct {
	EndDate time.Time
	Year    int
	Quarter int
}

// ParsePeriod decodes "<quarter digit><text><4-digit year>", for example
// "2nd quarter 2010", into year, quarter and the quarter's last day.
func ParsePeriod(s string) (Period, error) {
	if len(s) < 5 {
		return Period{}, fmt.Errorf("%w: period %q is too short", common.ErrDataIntegrity, s)
	}

	quarter := int(s[0] - '0')
	end, ok := quarterEnds[quarter]
	if s[0] < '0' || s[0] > '9' || !ok {
		return Period{}, fmt.Errorf("%w: period %q does not start with a quarter 1-4", common.ErrDataIntegrity, s)
	}

	yearText := s[len(s)-4:]
	for _, r := range yearText {
		if r < '0' || r > '9' {
			return Period{}, fmt.Errorf("%w: period %q does not end with a 4-digit year", common.ErrDataIntegrity, s)
		}
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return Period{}, fmt.Errorf("%w: period %q: %v", common.ErrDataIntegrity, s, err)
	}

	return Period{
		Year:    year,
		Quarter: quarter,
		EndDate: time.Date(year, end.month, end.day, 0, 0, 0, 0, time.UTC),
	}, nil
}

// ParsePeriods replaces the Period column with TransactionYear,
// TransactionQuarter and TransactionQuarterEndDate. Any missing or malformed
// period fails the whole table.
func ParsePeriods(t *dataset.Table) (*dataset.Table, error) {
	col, err := t.RequireKind(ColPeriod, dataset.String)
	if err != nil {
		return nil, err
	}

	n := t.Len()
	years := make([]int, n)
	quarters := make([]int, n)
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		if !col.IsValid(i) {
			return nil, fmt.Errorf("%w: row %d has no period", common.ErrDataIntegrity, i)
		}
		p, err := ParsePeriod(col.Str(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		years[i], quarters[i], dates[i] = p.Year, p.Quarter, p.EndDate
	}

	out := t
	for _, c := range []*dataset.Column{
		dataset.NewIntColumn(ColTransactionYear, years),
		dataset.NewIntColumn(ColTransactionQuarter, quarters),
		dataset.NewDateColumn(ColQuarterEndDate, dates, nil),
	} {
		if out, err = out.With(c); err != nil {
			return nil, err
		}
	}
	return out.Drop(ColPeriod), nil
}
