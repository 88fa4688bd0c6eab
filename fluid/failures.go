package fluid

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// FailureCategory groups cells whose property evaluation failed
type FailureCategory int

const (
	BubblePointFailure FailureCategory = iota
	DewPointFailure
	numFailureCategories
)

func (c FailureCategory) String() string {
	switch c {
	case BubblePointFailure:
		return "bubble point"
	case DewPointFailure:
		return "dew point"
	}
	return "unknown"
}

func (c FailureCategory) title() string {
	switch c {
	case BubblePointFailure:
		return "Bubble point numerical problem"
	case DewPointFailure:
		return "Dew point numerical problem"
	}
	return "Numerical problem"
}

// FailureLog collects global cell indices per failure category during a
// pass over the grid. Logs of several partitions are merged before
// reporting.
type FailureLog struct {
	cells [numFailureCategories][]int
}

func (l *FailureLog) Record(cat FailureCategory, cell int) {
	l.cells[cat] = append(l.cells[cat], cell)
}

// Merge appends the entries of other logs
func (l *FailureLog) Merge(others ...*FailureLog) {
	for _, o := range others {
		if o == nil {
			continue
		}
		for cat := range o.cells {
			l.cells[cat] = append(l.cells[cat], o.cells[cat]...)
		}
	}
}

// Reset empties every category
func (l *FailureLog) Reset() {
	for cat := range l.cells {
		l.cells[cat] = l.cells[cat][:0]
	}
}

func (l *FailureLog) Len(cat FailureCategory) int {
	return len(l.cells[cat])
}

// Cells returns the sorted failed cells of a category
func (l *FailureLog) Cells(cat FailureCategory) []int {
	out := append([]int(nil), l.cells[cat]...)
	sort.Ints(out)
	return out
}

// Message renders the sorted cell list of cat, enumerating at most maxCells
// entries. Empty when nothing failed.
func (l *FailureLog) Message(cat FailureCategory, maxCells int) string {
	cells := l.Cells(cat)
	if len(cells) == 0 {
		return ""
	}
	if maxCells < 1 {
		maxCells = 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Finding the %s pressure failed for %d cells [%d", cat, len(cells), cells[0])
	for i := 1; i < len(cells) && i < maxCells; i++ {
		fmt.Fprintf(&sb, ", %d", cells[i])
	}
	if len(cells) > maxCells {
		sb.WriteString(", ...")
	}
	sb.WriteString("]")
	return sb.String()
}

// Report emits one warning per non-empty category
func (l *FailureLog) Report(logger *zap.Logger, maxCells int) {
	if logger == nil {
		return
	}
	for cat := FailureCategory(0); cat < numFailureCategories; cat++ {
		if msg := l.Message(cat, maxCells); msg != "" {
			logger.Warn(cat.title(), zap.String("detail", msg), zap.Int("cells", l.Len(cat)))
		}
	}
}

// SaturationPressures evaluates bubble and dew point pressures per cell.
// Cells whose root finding fails keep a zero value and are recorded in log
// under their global index, any other error aborts.
func SaturationPressures(pvt PVT, pvtRegion []int, rs, rv []float64, globalCell []int, log *FailureLog) (pb, pd []float64, err error) {
	n := len(pvtRegion)
	if len(rs) != n || len(rv) != n || len(globalCell) != n {
		return nil, nil, fmt.Errorf("saturation pressure inputs differ in length: regions=%d rs=%d rv=%d cells=%d",
			n, len(rs), len(rv), len(globalCell))
	}

	pb = make([]float64, n)
	pd = make([]float64, n)
	for c := 0; c < n; c++ {
		v, err := pvt.BubblePoint(pvtRegion[c], rs[c])
		switch {
		case errors.Is(err, ErrNumericalProblem):
			log.Record(BubblePointFailure, globalCell[c])
		case err != nil:
			return nil, nil, fmt.Errorf("cell %d: %w", globalCell[c], err)
		default:
			pb[c] = v
		}

		v, err = pvt.DewPoint(pvtRegion[c], rv[c])
		switch {
		case errors.Is(err, ErrNumericalProblem):
			log.Record(DewPointFailure, globalCell[c])
		case err != nil:
			return nil, nil, fmt.Errorf("cell %d: %w", globalCell[c], err)
		default:
			pd[c] = v
		}
	}
	return pb, pd, nil
}
