package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

// writePrices writes a seeded random-walk panel and returns its path.
func writePrices(t *testing.T, rows int, seed int64, assets ...string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	level := make([]float64, len(assets))
	for j := range level {
		level[j] = 100
	}

	var b strings.Builder
	b.WriteString("date," + strings.Join(assets, ",") + "\n")
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		b.WriteString(d.Format("2006-01-02"))
		for j := range level {
			level[j] *= 1 + 0.0005 + rng.NormFloat64()*0.01*float64(j+1)
			fmt.Fprintf(&b, ",%.6f", level[j])
		}
		b.WriteString("\n")
		i++
	}
	return writeFile(t, "prices.csv", b.String())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

const twoAssets = `date,A,B
2024-01-02,100,50
2024-01-03,110,50
`

func TestStress_SingleShock(t *testing.T) {
	path := writeFile(t, "prices.csv", twoAssets)

	out, err := run(t, "stress", "--prices", path, "--weights", "0.5,0.5", "--shock", "A=-0.1")
	require.NoError(t, err)

	v := decode(t, out)
	assert.InDelta(t, 1.0, v["pre_shock_value"], 1e-9)
	assert.InDelta(t, 0.95, v["post_shock_value"], 1e-9)
	assert.InDelta(t, -5.0, v["portfolio_value_change_percent"], 1e-9)
}

func TestStress_Scenarios(t *testing.T) {
	path := writeFile(t, "prices.csv", twoAssets)
	scenarios := writeFile(t, "scenarios.yaml", `scenarios:
  - name: a-crash
    shocks: {A: -0.2}
  - name: b-rally
    shocks: {B: 0.1}
`)

	out, err := run(t, "stress", "--prices", path, "--weights", "0.5,0.5", "--scenarios", scenarios)
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "a-crash", rows[0]["name"])
	assert.InDelta(t, -10.0, rows[0]["portfolio_value_change_percent"], 1e-9)
	assert.Equal(t, "b-rally", rows[1]["name"])
	assert.InDelta(t, 5.0, rows[1]["portfolio_value_change_percent"], 1e-9)
}

func TestStress_FlagErrors(t *testing.T) {
	path := writeFile(t, "prices.csv", twoAssets)

	tests := []struct {
		name string
		args []string
		kind domain.ErrorKind
	}{
		{"no shocks", []string{"--weights", "0.5,0.5"}, domain.KindConfig},
		{"missing weights", []string{"--shock", "A=-0.1"}, domain.KindConfig},
		{"bad shock", []string{"--weights", "0.5,0.5", "--shock", "A=down"}, domain.KindConfig},
		{"unknown asset", []string{"--weights", "0.5,0.5", "--shock", "C=-0.1"}, domain.KindData},
		{"beyond total loss", []string{"--weights", "0.5,0.5", "--shock", "A=-1.5"}, domain.KindDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"stress", "--prices", path}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}

func TestVar(t *testing.T) {
	path := writePrices(t, 120, 3, "A", "B")

	out, err := run(t, "var", "--prices", path, "--confidence", "0.9", "--weights", "0.6,0.4")
	require.NoError(t, err)

	v := decode(t, out)
	assert.InDelta(t, 0.9, v["confidence_level"], 1e-9)
	assets := v["assets"].([]interface{})
	require.Len(t, assets, 2)
	for _, row := range assets {
		r := row.(map[string]interface{})
		// historical CVaR averages returns at or below VaR
		assert.LessOrEqual(t, r["historical_cvar"].(float64), r["historical_var"].(float64))
	}
	require.NotNil(t, v["portfolio"])
}

func TestVar_WithoutWeightsOmitsPortfolio(t *testing.T) {
	path := writePrices(t, 60, 5, "A", "B")

	out, err := run(t, "var", "--prices", path)
	require.NoError(t, err)

	v := decode(t, out)
	_, ok := v["portfolio"]
	assert.False(t, ok)
}

func TestOptimize(t *testing.T) {
	path := writePrices(t, 250, 11, "A", "B", "C")

	out, err := run(t, "optimize", "--prices", path)
	require.NoError(t, err)

	v := decode(t, out)
	for _, key := range []string{"min_volatility", "max_sharpe"} {
		weights := v[key].(map[string]interface{})["weights"].(map[string]interface{})
		require.Len(t, weights, 3)
		var sum float64
		for _, w := range weights {
			assert.GreaterOrEqual(t, w.(float64), -1e-5)
			sum += w.(float64)
		}
		assert.InDelta(t, 1.0, sum, 1e-3)
	}
	assert.Nil(t, v["min_volatility"].(map[string]interface{})["expected_return"])
}

func TestOptimize_SingleAsset(t *testing.T) {
	path := writePrices(t, 50, 1, "A")

	_, err := run(t, "optimize", "--prices", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrData))
}

func TestReport(t *testing.T) {
	path := writePrices(t, 80, 7, "A", "B", "C")

	out, err := run(t, "report", "--prices", path, "--weights", "0.5,0.3,0.2", "--window", "10")
	require.NoError(t, err)

	v := decode(t, out)
	assert.Equal(t, []interface{}{"A", "B", "C"}, v["assets"])
	contribs := v["risk_contributions"].(map[string]interface{})["contributions"].([]interface{})
	var total float64
	for _, c := range contribs {
		total += c.(map[string]interface{})["percent"].(float64)
	}
	assert.InDelta(t, 100.0, total, 1e-3)
}

func TestReport_Summary(t *testing.T) {
	path := writePrices(t, 80, 7, "A", "B")

	out, err := run(t, "report", "--summary", "--prices", path, "--weights", "0.5,0.5")
	require.NoError(t, err)

	v := decode(t, out)
	assert.Contains(t, v, "portfolio_volatility")
	assert.Contains(t, []interface{}{"Volatile", "Neutral", "Calm", "Unknown"}, v["regime"])
}

func TestSettingsFlagsAreValidated(t *testing.T) {
	path := writePrices(t, 30, 2, "A", "B")

	_, err := run(t, "report", "--prices", path, "--weights", "0.5,0.5", "--high", "0.1", "--low", "0.2")
	require.Error(t, err)
	assert.Equal(t, domain.KindConfig, domain.KindOf(err))

	_, err = run(t, "var", "--prices", path, "--frequency", "hourly")
	require.Error(t, err)
	assert.Equal(t, domain.KindConfig, domain.KindOf(err))
}

func TestPricesFlagRequired(t *testing.T) {
	_, err := run(t, "var")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prices")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, domain.DataError("prices.Clean", "no rows"))
	assert.Equal(t, "data: prices.Clean: no rows\n", buf.String())

	buf.Reset()
	printError(&buf, errors.New("boom"))
	assert.Equal(t, "error: boom\n", buf.String())
}

func TestOutputIsRounded(t *testing.T) {
	path := writeFile(t, "prices.csv", "date,A,B\n2024-01-02,3,7\n2024-01-03,3,7\n")

	out, err := run(t, "stress", "--prices", path, "--weights", "0.5,0.5", "--shock", "A=0.333333333")
	require.NoError(t, err)

	v := decode(t, out)
	post := v["post_shock_value"].(float64)
	assert.Equal(t, math.Round(post*1e5)/1e5, post)
}
