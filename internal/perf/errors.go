package perf

import "codeberg.org/mutker/dashmon/internal/errors"

const (
	ErrInvalidThreshold  = errors.ErrorCode("perf_invalid_threshold")
	ErrInvalidHysteresis = errors.ErrorCode("perf_invalid_hysteresis")
)
