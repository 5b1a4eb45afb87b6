package perf

import "codeberg.org/mutker/dashmon/internal/errors"

const (
	WindowSize = 5

	defaultBalancedThreshold = 60.0
	defaultReducedThreshold  = 85.0
	defaultHysteresis        = 5.0
	defaultHotTemperature    = 80.0
)

type Config struct {
	// Load percentages at which quality steps down
	BalancedThreshold float64
	ReducedThreshold  float64
	Hysteresis        float64
	// Averaged temperature at or above which quality is reduced regardless of load
	HotTemperature float64
}

func DefaultConfig() Config {
	return Config{
		BalancedThreshold: defaultBalancedThreshold,
		ReducedThreshold:  defaultReducedThreshold,
		Hysteresis:        defaultHysteresis,
		HotTemperature:    defaultHotTemperature,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.BalancedThreshold <= 0 || c.ReducedThreshold <= c.BalancedThreshold || c.ReducedThreshold > 100 {
		return errFactory.WithData(ErrInvalidThreshold, struct {
			Balanced float64
			Reduced  float64
		}{c.BalancedThreshold, c.ReducedThreshold})
	}
	if c.Hysteresis < 0 || c.Hysteresis >= c.ReducedThreshold-c.BalancedThreshold {
		return errFactory.WithData(ErrInvalidHysteresis, c.Hysteresis)
	}

	return nil
}
