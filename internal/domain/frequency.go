package domain

import "strings"

// Frequency is the sampling interval of a price or return panel.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// PeriodsPerYear is the one annualization lookup used across the module:
// daily 252, weekly 52, monthly 12. Any other frequency is a config error.
func (f Frequency) PeriodsPerYear() (int, error) {
	switch f {
	case FrequencyDaily:
		return 252, nil
	case FrequencyWeekly:
		return 52, nil
	case FrequencyMonthly:
		return 12, nil
	}
	return 0, ConfigError("frequency", "unrecognized frequency %q (want daily, weekly or monthly)", string(f))
}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	_, err := f.PeriodsPerYear()
	return err == nil
}

// ParseFrequency normalizes case and surrounding whitespace before validating.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if _, err := f.PeriodsPerYear(); err != nil {
		return "", err
	}
	return f, nil
}
