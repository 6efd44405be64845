// Package prices turns raw price tables into clean price panels and the
// return panels every other analytics module consumes.
package prices

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/pkg/formulas"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// RawPanel is an uncleaned price table. NaN marks a missing price and Dates
// may be empty for positional data.
type RawPanel struct {
	Dates   []string
	Assets  []string
	Columns [][]float64
}

// Clean parses and sorts the date index, forward-fills gaps and drops rows
// that still have a missing value (leading gaps). The result must be
// non-empty with strictly positive prices.
func Clean(raw RawPanel) (*domain.Panel, error) {
	const op = "prices.Clean"

	cols := make([][]float64, len(raw.Columns))
	for j, c := range raw.Columns {
		cols[j] = append([]float64(nil), c...)
	}
	panel, err := domain.NewPanel(nil, raw.Assets, cols)
	if err != nil {
		return nil, err
	}
	rows := panel.Len()

	order, dates, err := dateOrder(op, raw.Dates, rows)
	if err != nil {
		return nil, err
	}

	// forward fill in date order
	for _, c := range panel.Columns {
		last := math.NaN()
		for _, i := range order {
			if math.IsNaN(c[i]) {
				c[i] = last
			} else {
				last = c[i]
			}
		}
	}

	var keep []int
	for _, i := range order {
		complete := true
		for _, c := range panel.Columns {
			if math.IsNaN(c[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, domain.DataError(op, "panel is empty after cleaning")
	}

	out := gather(panel, dates, keep)
	for j, col := range out.Columns {
		for _, v := range col {
			if v <= 0 || math.IsInf(v, 0) {
				return nil, domain.DataError(op, "price %g for %q is not a positive finite number", v, panel.Assets[j])
			}
		}
	}
	return out, nil
}

// CleanReturns builds a return panel from a raw table of periodic returns.
// Rows are sorted by date like Clean, but gaps are never filled: a row with
// any missing return is dropped.
func CleanReturns(raw RawPanel) (*domain.Panel, error) {
	const op = "prices.CleanReturns"

	panel, err := domain.NewPanel(nil, raw.Assets, raw.Columns)
	if err != nil {
		return nil, err
	}
	order, dates, err := dateOrder(op, raw.Dates, panel.Len())
	if err != nil {
		return nil, err
	}

	var keep []int
	for _, i := range order {
		complete := true
		for _, c := range panel.Columns {
			if math.IsNaN(c[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, domain.DataError(op, "panel is empty after dropping missing rows")
	}

	out := gather(panel, dates, keep)
	if err := out.CheckReturns(op); err != nil {
		return nil, err
	}
	return out, nil
}

// dateOrder parses the date index and returns the row permutation that sorts
// it. Without dates the order is positional.
func dateOrder(op string, raw []string, rows int) ([]int, []time.Time, error) {
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	if len(raw) == 0 {
		return order, nil, nil
	}
	if len(raw) != rows {
		return nil, nil, domain.DataError(op, "%d dates for %d rows", len(raw), rows)
	}
	dates := make([]time.Time, rows)
	for i, s := range raw {
		d, err := parseDate(s)
		if err != nil {
			return nil, nil, domain.DataError(op, "row %d: unparsable date %q", i, s)
		}
		dates[i] = d
	}
	sort.SliceStable(order, func(a, b int) bool { return dates[order[a]].Before(dates[order[b]]) })
	for k := 1; k < rows; k++ {
		if dates[order[k]].Equal(dates[order[k-1]]) {
			return nil, nil, domain.DataError(op, "duplicate date %s", dates[order[k]].Format("2006-01-02"))
		}
	}
	return order, dates, nil
}

// gather copies the kept rows, in order, into a new panel.
func gather(panel *domain.Panel, dates []time.Time, keep []int) *domain.Panel {
	out := &domain.Panel{Assets: append([]string(nil), panel.Assets...), Columns: make([][]float64, len(panel.Columns))}
	if dates != nil {
		out.Dates = make([]time.Time, len(keep))
		for k, i := range keep {
			out.Dates[k] = dates[i]
		}
	}
	for j, c := range panel.Columns {
		col := make([]float64, len(keep))
		for k, i := range keep {
			col[k] = c[i]
		}
		out.Columns[j] = col
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		var d time.Time
		if d, err = time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, err
}

// SimpleReturns derives P[t]/P[t-1] - 1 and drops the leading row.
func SimpleReturns(prices *domain.Panel) (*domain.Panel, error) {
	return transform("prices.SimpleReturns", prices, formulas.CalculateReturns)
}

// LogReturns derives ln(P[t]/P[t-1]) and drops the leading row.
func LogReturns(prices *domain.Panel) (*domain.Panel, error) {
	return transform("prices.LogReturns", prices, formulas.CalculateLogReturns)
}

func transform(op string, prices *domain.Panel, fn func([]float64) []float64) (*domain.Panel, error) {
	if prices.Len() < 2 {
		return nil, domain.DataError(op, "need at least 2 price rows, got %d", prices.Len())
	}
	out := &domain.Panel{Assets: append([]string(nil), prices.Assets...), Columns: make([][]float64, prices.NumAssets())}
	if prices.Dates != nil {
		out.Dates = append([]time.Time(nil), prices.Dates[1:]...)
	}
	for j, c := range prices.Columns {
		out.Columns[j] = fn(c)
	}
	return out, nil
}

// CumulativeReturns compounds each column: prod(1+R) - 1. Any R <= -1 is a
// domain error since a total loss cannot be compounded.
func CumulativeReturns(returns *domain.Panel) (*domain.Panel, error) {
	if err := returns.CheckReturns("prices.CumulativeReturns"); err != nil {
		return nil, err
	}
	out := returns.Clone()
	for j, c := range returns.Columns {
		out.Columns[j] = formulas.CalculateCumulativeReturns(c)
	}
	return out, nil
}
