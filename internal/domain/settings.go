package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SettingsInput is the loosely typed form of Settings as it arrives from
// env defaults, request bodies or CLI flags.
type SettingsInput struct {
	Frequency        string  `json:"frequency" yaml:"frequency" validate:"required"`
	Window           int     `json:"window" yaml:"window" validate:"gt=0"`
	ConfidenceLevel  float64 `json:"confidence_level" yaml:"confidence_level" validate:"gt=0,lt=1"`
	RiskFreeRate     float64 `json:"risk_free_rate" yaml:"risk_free_rate" validate:"gt=-1"`
	HighVolThreshold float64 `json:"high_vol_threshold" yaml:"high_vol_threshold" validate:"gte=0"`
	LowVolThreshold  float64 `json:"low_vol_threshold" yaml:"low_vol_threshold" validate:"gte=0"`
	AllowShort       bool    `json:"allow_short" yaml:"allow_short"`
	SolverTolerance  float64 `json:"solver_tolerance" yaml:"solver_tolerance" validate:"gt=0,lt=1"`
	MaxIterations    int     `json:"max_iterations" yaml:"max_iterations" validate:"gt=0,lte=1000000"`
	WeightTolerance  float64 `json:"weight_tolerance" yaml:"weight_tolerance" validate:"gt=0,lt=1"`
}

// DefaultSettingsInput mirrors the defaults of the original service.
func DefaultSettingsInput() SettingsInput {
	return SettingsInput{
		Frequency:        string(FrequencyDaily),
		Window:           20,
		ConfidenceLevel:  0.95,
		RiskFreeRate:     0.02,
		HighVolThreshold: 0.03,
		LowVolThreshold:  0.01,
		SolverTolerance:  1e-9,
		MaxIterations:    500,
		WeightTolerance:  1e-6,
	}
}

// Settings is the validated, immutable configuration handed to every
// analytics component for one request.
type Settings struct {
	frequency       Frequency
	periodsPerYear  int
	window          int
	confidence      float64
	riskFreeRate    float64
	highVol         float64
	lowVol          float64
	allowShort      bool
	solverTolerance float64
	maxIterations   int
	weightTolerance float64
}

// NewSettings validates in once and freezes it.
func NewSettings(in SettingsInput) (*Settings, error) {
	const op = "settings"

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return nil, ConfigError(op, "%s", strings.Join(msgs, "; "))
		}
		return nil, ConfigError(op, "%v", err)
	}

	freq, err := ParseFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}
	ppy, _ := freq.PeriodsPerYear()

	if in.LowVolThreshold > in.HighVolThreshold {
		return nil, ConfigError(op, "inconsistent threshold ordering: low_vol_threshold %g > high_vol_threshold %g",
			in.LowVolThreshold, in.HighVolThreshold)
	}

	return &Settings{
		frequency:       freq,
		periodsPerYear:  ppy,
		window:          in.Window,
		confidence:      in.ConfidenceLevel,
		riskFreeRate:    in.RiskFreeRate,
		highVol:         in.HighVolThreshold,
		lowVol:          in.LowVolThreshold,
		allowShort:      in.AllowShort,
		solverTolerance: in.SolverTolerance,
		maxIterations:   in.MaxIterations,
		weightTolerance: in.WeightTolerance,
	}, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func (s *Settings) Frequency() Frequency { return s.frequency }
func (s *Settings) PeriodsPerYear() int { return s.periodsPerYear }
func (s *Settings) Window() int { return s.window }
func (s *Settings) ConfidenceLevel() float64 { return s.confidence }
func (s *Settings) RiskFreeRate() float64 { return s.riskFreeRate }
func (s *Settings) HighVolThreshold() float64 { return s.highVol }
func (s *Settings) LowVolThreshold() float64 { return s.lowVol }
func (s *Settings) AllowShort() bool { return s.allowShort }
func (s *Settings) SolverTolerance() float64 { return s.solverTolerance }
func (s *Settings) MaxIterations() int { return s.maxIterations }
func (s *Settings) WeightTolerance() float64 { return s.weightTolerance }

// Input returns the settings in their loose form, e.g. to apply overrides.
func (s *Settings) Input() SettingsInput {
	return SettingsInput{
		Frequency:        string(s.frequency),
		Window:           s.window,
		ConfidenceLevel:  s.confidence,
		RiskFreeRate:     s.riskFreeRate,
		HighVolThreshold: s.highVol,
		LowVolThreshold:  s.lowVol,
		AllowShort:       s.allowShort,
		SolverTolerance:  s.solverTolerance,
		MaxIterations:    s.maxIterations,
		WeightTolerance:  s.weightTolerance,
	}
}
