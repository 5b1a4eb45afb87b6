package status

import "codeberg.org/mutker/dashmon/internal/errors"

const (
	ErrServeFailed    = errors.ErrorCode("status_serve_failed")
	ErrShutdownFailed = errors.ErrShutdownFailed
)
