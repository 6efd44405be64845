// Package market_regime labels periods as Volatile, Neutral or Calm from the
// rolling volatility of asset returns.
package market_regime

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/pkg/formulas"
)

// Regime is a volatility label.
type Regime string

const (
	RegimeVolatile Regime = "Volatile"
	RegimeNeutral  Regime = "Neutral"
	RegimeCalm     Regime = "Calm"
	// RegimeUnknown marks dates before the first full window
	RegimeUnknown Regime = "Unknown"
)

// Point is the regime as of one return row.
type Point struct {
	Row        int       `json:"row"`
	Date       time.Time `json:"date"`
	Volatility float64   `json:"volatility"`
	Regime     Regime    `json:"regime"`
}

// Detection is the regime timeline with the per-asset series behind it.
type Detection struct {
	Window          int         `json:"window"`
	Assets          []string    `json:"assets"`
	AssetVolatility [][]float64 `json:"asset_volatility"`
	Timeline        []Point     `json:"timeline"`
}

// Latest returns the last point of the timeline.
func (d *Detection) Latest() (Point, bool) {
	if len(d.Timeline) == 0 {
		return Point{}, false
	}
	return d.Timeline[len(d.Timeline)-1], true
}

func nanPrefix(out []float64, window int) []float64 {
	for i := 0; i < window-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

func allNaN(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// RollingVolatility is the population standard deviation of each trailing
// window, not annualized. The first window-1 values are NaN. talib floors a
// window variance below 1e-14 to zero, so readings under 1e-7 come back as 0.
func RollingVolatility(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, domain.ConfigError("market_regime.RollingVolatility", "window must be positive, got %d", window)
	}
	switch {
	case window > len(series):
		return allNaN(len(series)), nil
	case window == 1:
		return make([]float64, len(series)), nil
	}
	return nanPrefix(talib.StdDev(series, window, 1), window), nil
}

// RollingZScore is (x - rolling mean) / rolling population σ. The σ here is
// exact at any scale; only windows of identical values give NaN.
func RollingZScore(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, domain.ConfigError("market_regime.RollingZScore", "window must be positive, got %d", window)
	}
	sd := formulas.Rolling(series, window, dispersion)
	if window > len(series) {
		return sd, nil
	}
	mean := series
	if window > 1 {
		mean = talib.Sma(series, window)
	}
	out := make([]float64, len(series))
	for i := range out {
		if math.IsNaN(sd[i]) || sd[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (series[i] - mean[i]) / sd[i]
	}
	return out, nil
}

// dispersion is the population σ of a window, NaN when every value is equal.
func dispersion(w []float64) float64 {
	for _, v := range w[1:] {
		if v != w[0] {
			return formulas.PopStdDev(w)
		}
	}
	return math.NaN()
}

// Classify labels one volatility reading. Both thresholds belong to Neutral.
func Classify(value, high, low float64) Regime {
	switch {
	case math.IsNaN(value):
		return RegimeUnknown
	case value > high:
		return RegimeVolatile
	case value < low:
		return RegimeCalm
	default:
		return RegimeNeutral
	}
}

func checkThresholds(op string, high, low float64) error {
	if math.IsNaN(high) || math.IsNaN(low) || high < 0 || low < 0 {
		return domain.ConfigError(op, "thresholds must be non-negative numbers, got high=%g low=%g", high, low)
	}
	if low > high {
		return domain.ConfigError(op, "inconsistent threshold ordering: low %g above high %g", low, high)
	}
	return nil
}

// Detect classifies the cross-asset mean of the per-asset rolling
// volatility at every return row.
func Detect(returns *domain.Panel, window int, high, low float64) (*Detection, error) {
	const op = "market_regime.Detect"
	if err := checkThresholds(op, high, low); err != nil {
		return nil, err
	}
	if err := returns.CheckFinite(op); err != nil {
		return nil, err
	}

	d := &Detection{
		Window:          window,
		Assets:          append([]string(nil), returns.Assets...),
		AssetVolatility: make([][]float64, returns.NumAssets()),
		Timeline:        make([]Point, returns.Len()),
	}
	for j, col := range returns.Columns {
		vol, err := RollingVolatility(col, window)
		if err != nil {
			return nil, err
		}
		d.AssetVolatility[j] = vol
	}

	for t := range d.Timeline {
		var sum float64
		var n int
		for _, vol := range d.AssetVolatility {
			if !math.IsNaN(vol[t]) {
				sum += vol[t]
				n++
			}
		}
		mean := math.NaN()
		if n > 0 {
			mean = sum / float64(n)
		}
		p := Point{Row: t, Volatility: mean, Regime: Classify(mean, high, low)}
		if returns.Dates != nil {
			p.Date = returns.Dates[t]
		}
		d.Timeline[t] = p
	}
	return d, nil
}
