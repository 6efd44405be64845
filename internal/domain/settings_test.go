package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequency_PeriodsPerYear(t *testing.T) {
	tests := []struct {
		freq     Frequency
		expected int
	}{
		{FrequencyDaily, 252},
		{FrequencyWeekly, 52},
		{FrequencyMonthly, 12},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			ppy, err := tt.freq.PeriodsPerYear()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ppy)
		})
	}

	_, err := Frequency("hourly").PeriodsPerYear()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency("  Weekly ")
	require.NoError(t, err)
	assert.Equal(t, FrequencyWeekly, f)

	_, err = ParseFrequency("quarterly")
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestNewSettings_Defaults(t *testing.T) {
	s, err := NewSettings(DefaultSettingsInput())
	require.NoError(t, err)

	assert.Equal(t, FrequencyDaily, s.Frequency())
	assert.Equal(t, 252, s.PeriodsPerYear())
	assert.Equal(t, 20, s.Window())
	assert.Equal(t, 0.95, s.ConfidenceLevel())
	assert.Equal(t, 0.02, s.RiskFreeRate())
	assert.Equal(t, 0.03, s.HighVolThreshold())
	assert.Equal(t, 0.01, s.LowVolThreshold())
	assert.False(t, s.AllowShort())
	assert.Equal(t, DefaultSettingsInput(), s.Input())
}

func TestNewSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SettingsInput)
	}{
		{"unknown frequency", func(in *SettingsInput) { in.Frequency = "hourly" }},
		{"missing frequency", func(in *SettingsInput) { in.Frequency = "" }},
		{"zero window", func(in *SettingsInput) { in.Window = 0 }},
		{"confidence of one", func(in *SettingsInput) { in.ConfidenceLevel = 1 }},
		{"negative confidence", func(in *SettingsInput) { in.ConfidenceLevel = -0.5 }},
		{"inverted thresholds", func(in *SettingsInput) { in.LowVolThreshold, in.HighVolThreshold = 0.05, 0.01 }},
		{"zero tolerance", func(in *SettingsInput) { in.SolverTolerance = 0 }},
		{"zero iterations", func(in *SettingsInput) { in.MaxIterations = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DefaultSettingsInput()
			tt.mutate(&in)
			s, err := NewSettings(in)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.Equal(t, KindConfig, KindOf(err))
		})
	}
}

func TestNewSettings_EqualThresholdsAllowed(t *testing.T) {
	in := DefaultSettingsInput()
	in.HighVolThreshold, in.LowVolThreshold = 0.02, 0.02
	_, err := NewSettings(in)
	assert.NoError(t, err)
}

func TestError_KindSurvivesWrapping(t *testing.T) {
	base := DataError("prices.Clean", "panel is empty after cleaning")
	wrapped := fmt.Errorf("report: %w", base)

	assert.True(t, errors.Is(wrapped, ErrData))
	assert.False(t, errors.Is(wrapped, ErrDomain))
	assert.Equal(t, KindData, KindOf(wrapped))
	assert.Equal(t, "report: prices.Clean: panel is empty after cleaning", wrapped.Error())
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestConvergenceWarning_String(t *testing.T) {
	w := ConvergenceWarning{Status: "IterationLimit", Iterations: 500, Message: "tolerance not met"}
	assert.Equal(t, "IterationLimit after 500 iterations: tolerance not met", w.String())
}
