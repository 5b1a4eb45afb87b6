package telemetry

import "codeberg.org/mutker/dashmon/internal/errors"

const (
	// CPU Errors
	ErrStatReadFailed    = errors.ErrorCode("telemetry_stat_read_failed")
	ErrStatParseFailed   = errors.ErrorCode("telemetry_stat_parse_failed")
	ErrThermalReadFailed = errors.ErrorCode("telemetry_thermal_read_failed")

	// Memory Errors
	ErrMeminfoReadFailed  = errors.ErrorCode("telemetry_meminfo_read_failed")
	ErrMeminfoParseFailed = errors.ErrorCode("telemetry_meminfo_parse_failed")

	// Storage Errors
	ErrStatfsFailed  = errors.ErrorCode("telemetry_statfs_failed")
	ErrStatfsInvalid = errors.ErrorCode("telemetry_statfs_invalid")

	// Encoding Errors
	ErrUnknownPriority = errors.ErrorCode("telemetry_unknown_priority")
	ErrUnknownModule   = errors.ErrorCode("telemetry_unknown_module")
)
