package gpio

import "codeberg.org/mutker/dashmon/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidPin    = errors.ErrorCode("gpio_invalid_pin")
	ErrExportFailed  = errors.ErrorCode("gpio_export_failed")
	ErrOpenFailed    = errors.ErrorCode("gpio_open_failed")
	ErrReadFailed    = errors.ErrorCode("gpio_read_failed")
)
