package gpio

import (
	"time"

	"codeberg.org/mutker/dashmon/internal/errors"
)

const (
	DefaultBasePath = "/sys/class/gpio"

	defaultDebounce     = 50 * time.Millisecond
	defaultPollInterval = 10 * time.Millisecond
	defaultFilePerm     = 0o644
)

type Config struct {
	Pins         []int
	ActiveLow    bool
	Debounce     time.Duration
	PollInterval time.Duration
	BasePath     string
}

func DefaultConfig() Config {
	return Config{
		ActiveLow:    true,
		Debounce:     defaultDebounce,
		PollInterval: defaultPollInterval,
		BasePath:     DefaultBasePath,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	for _, pin := range c.Pins {
		if pin < 0 {
			return errFactory.WithData(ErrInvalidPin, pin)
		}
	}
	if c.Debounce < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Debounce.String())
	}
	if c.PollInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PollInterval.String())
	}
	if c.BasePath == "" {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "GPIO base path must not be empty")
	}

	return nil
}
