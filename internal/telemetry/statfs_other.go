//go:build !linux

package telemetry

import "codeberg.org/mutker/dashmon/internal/errors"

// Statfs is only implemented on Linux; elsewhere the storage reader falls
// back to synthetic values.
func Statfs(path string) (FSStat, error) {
	return FSStat{}, errors.New().WithData(errors.ErrUnavailable, path)
}
