package domain

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Panel is a date-ordered table of per-asset series, stored column-major.
// It holds prices or returns; the producing function documents which.
type Panel struct {
	// Dates is nil for positional panels (no calendar attached)
	Dates   []time.Time
	Assets  []string
	Columns [][]float64 // Columns[asset][row]
}

// NewPanel checks shape and asset naming and returns the assembled panel.
func NewPanel(dates []time.Time, assets []string, columns [][]float64) (*Panel, error) {
	const op = "panel"
	if len(assets) == 0 {
		return nil, DataError(op, "panel has no assets")
	}
	if len(columns) != len(assets) {
		return nil, DataError(op, "%d asset names for %d columns", len(assets), len(columns))
	}
	seen := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		if a == "" {
			return nil, DataError(op, "empty asset name")
		}
		if _, dup := seen[a]; dup {
			return nil, DataError(op, "duplicate asset %q", a)
		}
		seen[a] = struct{}{}
	}
	rows := len(columns[0])
	for j, c := range columns {
		if len(c) != rows {
			return nil, DataError(op, "asset %q has %d rows, expected %d", assets[j], len(c), rows)
		}
	}
	if dates != nil && len(dates) != rows {
		return nil, DataError(op, "%d dates for %d rows", len(dates), rows)
	}
	return &Panel{Dates: dates, Assets: assets, Columns: columns}, nil
}

// Len returns the number of rows.
func (p *Panel) Len() int {
	if len(p.Columns) == 0 {
		return 0
	}
	return len(p.Columns[0])
}

// NumAssets returns the number of columns.
func (p *Panel) NumAssets() int {
	return len(p.Assets)
}

// Index returns the column position of asset, or -1.
func (p *Panel) Index(asset string) int {
	for j, a := range p.Assets {
		if a == asset {
			return j
		}
	}
	return -1
}

// Column returns the series for asset.
func (p *Panel) Column(asset string) ([]float64, error) {
	j := p.Index(asset)
	if j < 0 {
		return nil, DataError("panel", "asset %q not in panel", asset)
	}
	return p.Columns[j], nil
}

// Row returns a fresh slice with every asset's value at row t.
func (p *Panel) Row(t int) []float64 {
	row := make([]float64, len(p.Columns))
	for j, c := range p.Columns {
		row[j] = c[t]
	}
	return row
}

// Matrix lays the panel out as observations (rows) by assets (columns).
func (p *Panel) Matrix() *mat.Dense {
	m := mat.NewDense(p.Len(), p.NumAssets(), nil)
	for j, c := range p.Columns {
		m.SetCol(j, c)
	}
	return m
}

// Clone deep-copies the panel.
func (p *Panel) Clone() *Panel {
	out := &Panel{
		Assets:  append([]string(nil), p.Assets...),
		Columns: make([][]float64, len(p.Columns)),
	}
	if p.Dates != nil {
		out.Dates = append([]time.Time(nil), p.Dates...)
	}
	for j, c := range p.Columns {
		out.Columns[j] = append([]float64(nil), c...)
	}
	return out
}

// CheckFinite requires every value to be a number. It is the only check a
// log-return panel needs: any finite log return maps to a positive price.
func (p *Panel) CheckFinite(op string) error {
	for j, c := range p.Columns {
		for t, r := range c {
			if math.IsNaN(r) {
				return DataError(op, "missing return for %q at row %d", p.Assets[j], t)
			}
			if math.IsInf(r, 0) {
				return DataError(op, "return for %q at row %d is not finite", p.Assets[j], t)
			}
		}
	}
	return nil
}

// CheckReturns enforces R > -1 on a panel of simple returns; anything at or
// below -100% makes compounding undefined.
func (p *Panel) CheckReturns(op string) error {
	if err := p.CheckFinite(op); err != nil {
		return err
	}
	for j, c := range p.Columns {
		for t, r := range c {
			if r <= -1 {
				return DomainError(op, "return %g for %q at row %d is at or below -100%%", r, p.Assets[j], t)
			}
		}
	}
	return nil
}

// ValidateWeights checks a weight vector against a panel of n assets:
// length, sum to 1 within tol, and [0,1] bounds when shorting is off.
func ValidateWeights(op string, w []float64, n int, tol float64, allowShort bool) error {
	if len(w) != n {
		return DataError(op, "weight vector has %d entries for %d assets", len(w), n)
	}
	sum := 0.0
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return DataError(op, "weight %d is not finite", i)
		}
		if !allowShort && (v < -tol || v > 1+tol) {
			return DataError(op, "weight %d = %g outside [0,1] with short selling disabled", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > tol {
		return DataError(op, "weights sum to %g, expected 1", sum)
	}
	return nil
}
