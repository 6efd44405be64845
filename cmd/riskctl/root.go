package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/modules/prices"
	"github.com/HimJar911/RiskSuite360/pkg/logger"
)

// options are the flags shared by every subcommand.
type options struct {
	pricesPath string
	weights    string
	resample   bool
	logLevel   string
	settings   domain.SettingsInput
}

func newRootCmd() *cobra.Command {
	opts := &options{settings: domain.DefaultSettingsInput()}

	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Portfolio risk analytics from a CSV price panel",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.pricesPath, "prices", "", `CSV price panel ("date,<asset>,..."), or "-" for stdin`)
	f.StringVar(&opts.weights, "weights", "", "comma-separated portfolio weights in column order")
	f.BoolVar(&opts.resample, "resample", false, "resample prices to --frequency before computing")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	f.StringVar(&opts.settings.Frequency, "frequency", opts.settings.Frequency, "return frequency (daily, weekly, monthly)")
	f.IntVar(&opts.settings.Window, "window", opts.settings.Window, "rolling window length in periods")
	f.Float64Var(&opts.settings.ConfidenceLevel, "confidence", opts.settings.ConfidenceLevel, "VaR/CVaR confidence level")
	f.Float64Var(&opts.settings.RiskFreeRate, "risk-free", opts.settings.RiskFreeRate, "annual risk-free rate")
	f.Float64Var(&opts.settings.HighVolThreshold, "high", opts.settings.HighVolThreshold, "volatility at or above which a period is volatile")
	f.Float64Var(&opts.settings.LowVolThreshold, "low", opts.settings.LowVolThreshold, "volatility at or below which a period is calm")
	f.BoolVar(&opts.settings.AllowShort, "allow-short", opts.settings.AllowShort, "allow negative weights")
	_ = root.MarkPersistentFlagRequired("prices")

	root.AddCommand(
		reportCmd(opts),
		optimizeCmd(opts),
		varCmd(opts),
		stressCmd(opts),
	)
	return root
}

func (o *options) logger(cmd *cobra.Command) zerolog.Logger {
	return logger.New(logger.Config{Level: o.logLevel, Output: cmd.ErrOrStderr()})
}

func (o *options) buildSettings() (*domain.Settings, error) {
	return domain.NewSettings(o.settings)
}

// loadPrices reads, cleans and optionally resamples the price panel.
func (o *options) loadPrices(cmd *cobra.Command, settings *domain.Settings) (*domain.Panel, error) {
	var r io.Reader = cmd.InOrStdin()
	if o.pricesPath != "-" {
		f, err := os.Open(o.pricesPath)
		if err != nil {
			return nil, domain.DataError("riskctl", "open prices: %v", err)
		}
		defer f.Close()
		r = f
	}

	raw, err := prices.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	px, err := prices.Clean(raw)
	if err != nil {
		return nil, err
	}
	if o.resample {
		return prices.Resample(px, settings.Frequency())
	}
	return px, nil
}

// parseWeights parses --weights. An empty flag yields nil.
func (o *options) parseWeights() ([]float64, error) {
	if strings.TrimSpace(o.weights) == "" {
		return nil, nil
	}
	parts := strings.Split(o.weights, ",")
	w := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, domain.ConfigError("riskctl", "weight %d: %q is not a number", i, p)
		}
		w[i] = v
	}
	return w, nil
}

func (o *options) requireWeights() ([]float64, error) {
	w, err := o.parseWeights()
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, domain.ConfigError("riskctl", "--weights is required")
	}
	return w, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
