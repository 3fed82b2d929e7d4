package features

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// Floor plan feature columns.
const (
	ColRoomCount = "RoomCount"
	ColHasL      = "Has_L"
	ColHasD      = "Has_D"
	ColHasK      = "Has_K"
	ColHasS      = "Has_S"
)

// FloorPlans is the registry's closed floor-plan vocabulary in display order.
// A missing plan is the remaining member of the vocabulary.
var FloorPlans = []string{
	"1R", "1R+S", "1K", "1K+S", "1DK", "1DK+S", "1L", "1L+S", "1LD+S", "1LK", "1LK+S", "1LDK", "1LDK+K", "1LDK+S",
	"2K", "2K+S", "2DK", "2DK+S", "2LD", "2LD+S", "2LK", "2LK+S", "2L+S", "2LDK", "2LDK+S",
	"3K", "3K+S", "3DK", "3DK+S", "3LD", "3LD+S", "3LK", "3LK+S", "3LDK", "3LDK+K", "3LDK+S",
	"4K", "4K+S", "4DK", "4DK+S", "4LK", "4L+K", "4LDK", "4LDK+S",
	"5K", "5K+S", "5DK", "5DK+S", "5LK", "5LDK", "5LDK+S",
	"6K", "6K+S", "6DK", "6DK+S", "6LK", "6LDK", "6LDK+S",
	"7DK", "7LDK", "7LDK+S", "8LDK", "8LDK+S",
	"Studio Apartment", "Open Floor", "Duplex",
}

// Textual plans are rewritten to an LDK code before decomposition.
var planAliases = map[string]string{
	"Studio Apartment": "1R",
	"Open Floor":       "1R",
	"Duplex":           "2LDK",
	"None":             "0R",
}

var leadingRooms = regexp.MustCompile(`^(\d+)`)

// FloorPlan is a decomposed LDK code.
type FloorPlan struct {
	Rooms int
	L     bool
	D     bool
	K     bool
	S     bool
}

// DecomposeFloorPlan splits an LDK code into a room count and letter flags.
// It is total: a missing plan is zero rooms and no letters, a code without a
// leading number has zero rooms.
func DecomposeFloorPlan(plan string, present bool) FloorPlan {
	if !present {
		return FloorPlan{}
	}
	if alias, ok := planAliases[plan]; ok {
		plan = alias
	}

	var fp FloorPlan
	if m := leadingRooms.FindString(plan); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			fp.Rooms = n
		}
	}
	upper := strings.ToUpper(plan)
	fp.L = strings.Contains(upper, "L")
	fp.D = strings.Contains(upper, "D")
	fp.K = strings.Contains(upper, "K")
	fp.S = strings.Contains(upper, "S")
	return fp
}

// ParseFloorPlan adds RoomCount and the four Has_* flags and drops the
// FloorPlan column. A table without FloorPlan is returned unchanged.
func ParseFloorPlan(t *dataset.Table) (*dataset.Table, error) {
	col, ok := t.Column(cleaning.ColFloorPlan)
	if !ok {
		return t, nil
	}

	n := t.Len()
	rooms := make([]int, n)
	flags := [4][]int{make([]int, n), make([]int, n), make([]int, n), make([]int, n)}
	for i := 0; i < n; i++ {
		fp := DecomposeFloorPlan(col.Format(i), col.IsValid(i))
		rooms[i] = fp.Rooms
		for j, set := range []bool{fp.L, fp.D, fp.K, fp.S} {
			if set {
				flags[j][i] = 1
			}
		}
	}

	out := t
	var err error
	for _, c := range []*dataset.Column{
		dataset.NewIntColumn(ColRoomCount, rooms),
		dataset.NewIntColumn(ColHasL, flags[0]),
		dataset.NewIntColumn(ColHasD, flags[1]),
		dataset.NewIntColumn(ColHasK, flags[2]),
		dataset.NewIntColumn(ColHasS, flags[3]),
	} {
		if out, err = out.With(c); err != nil {
			return nil, err
		}
	}
	return out.Drop(cleaning.ColFloorPlan), nil
}
