package stress

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

func pricePanel(t *testing.T) *domain.Panel {
	t.Helper()
	p, err := domain.NewPanel(nil, []string{"AAPL", "MSFT"}, [][]float64{
		{100, 102, 101, 105},
		{50, 49, 51, 52},
	})
	require.NoError(t, err)
	return p
}

func TestSimulate_ReferenceScenario(t *testing.T) {
	res, err := Simulate(pricePanel(t), []float64{0.5, 0.5}, Shocks{"AAPL": -0.2})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.PreShockValue, 1e-15)
	assert.InDelta(t, 0.9, res.PostShockValue, 1e-15)
	assert.InDelta(t, -10.0, res.ChangePercent, 1e-12)
}

func TestSimulate_TotalWipeout(t *testing.T) {
	res, err := Simulate(pricePanel(t), []float64{0.5, 0.5}, Shocks{"AAPL": -1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.PostShockValue, 1e-15)
	assert.InDelta(t, -50.0, res.ChangePercent, 1e-12)

	shocked, err := ApplyShock(pricePanel(t), Shocks{"AAPL": -1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, shocked.Columns[0])
}

func TestSimulate_NoShockIsFlat(t *testing.T) {
	res, err := Simulate(pricePanel(t), []float64{0.7, 0.3}, Shocks{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.ChangePercent)
}

func TestSimulate_Errors(t *testing.T) {
	prices := pricePanel(t)
	tests := []struct {
		name    string
		weights []float64
		shocks  Shocks
		kind    error
	}{
		{"weight length", []float64{1}, Shocks{"AAPL": -0.1}, domain.ErrData},
		{"absent asset", []float64{0.5, 0.5}, Shocks{"TSLA": -0.1}, domain.ErrData},
		{"below total loss", []float64{0.5, 0.5}, Shocks{"AAPL": -1.5}, domain.ErrDomain},
		{"zero pre-shock value", []float64{0.5, -0.5}, Shocks{"AAPL": -0.1}, domain.ErrDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(prices, tt.weights, tt.shocks)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestApplyShock_CopiesInput(t *testing.T) {
	prices := pricePanel(t)
	shocked, err := ApplyShock(prices, Shocks{"MSFT": 0.1})
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 102, 101, 105}, shocked.Columns[0])
	assert.InDeltaSlice(t, []float64{55, 53.9, 56.1, 57.2}, shocked.Columns[1], 1e-12)
	assert.Equal(t, []float64{50, 49, 51, 52}, prices.Columns[1])
}

func TestRunScenarios_KeepsOrder(t *testing.T) {
	scenarios := []Scenario{
		{Name: "apple", Shocks: Shocks{"AAPL": -0.2}},
		{Name: "both", Shocks: Shocks{"AAPL": -0.1, "MSFT": -0.1}},
		{Name: "rally", Shocks: Shocks{"MSFT": 0.3}},
	}
	results, err := RunScenarios(context.Background(), pricePanel(t), []float64{0.5, 0.5}, scenarios)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "apple", results[0].Name)
	assert.InDelta(t, -10.0, results[0].ChangePercent, 1e-12)
	assert.InDelta(t, -10.0, results[1].ChangePercent, 1e-12)
	assert.InDelta(t, 15.0, results[2].ChangePercent, 1e-12)
}

func TestRunScenarios_FailureAbortsBatch(t *testing.T) {
	scenarios := []Scenario{
		{Name: "ok", Shocks: Shocks{"AAPL": -0.2}},
		{Name: "bad", Shocks: Shocks{"XYZ": -0.2}},
	}
	_, err := RunScenarios(context.Background(), pricePanel(t), []float64{0.5, 0.5}, scenarios)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrData))
	assert.Contains(t, err.Error(), `"bad"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RunScenarios(ctx, pricePanel(t), []float64{0.5, 0.5}, scenarios[:1])
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadScenarios(t *testing.T) {
	doc := `
scenarios:
  - name: tech-selloff
    description: broad tech drawdown
    shocks:
      AAPL: -0.2
      MSFT: -0.15
  - name: msft-rally
    shocks: {MSFT: 0.1}
`
	scenarios, err := LoadScenarios(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "tech-selloff", scenarios[0].Name)
	assert.Equal(t, -0.15, scenarios[0].Shocks["MSFT"])
	assert.Equal(t, Shocks{"MSFT": 0.1}, scenarios[1].Shocks)

	bad := []string{
		"",
		"scenarios: []",
		"scenarios:\n  - shocks: {A: -0.1}",
		"scenarios:\n  - name: x\n    shocks: {A: -0.1}\n  - name: x\n    shocks: {A: 0.1}",
		"scenarios:\n  - name: x",
		"scenario: []",
	}
	for _, in := range bad {
		_, err := LoadScenarios(strings.NewReader(in))
		assert.True(t, errors.Is(err, domain.ErrData), "input %q", in)
	}
}
