package telemetry

import (
	"math/rand/v2"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
)

const (
	storageChangeRatio      = 0.01
	storageMaxFailures      = 3
	syntheticStorageTotalKB = 8 * 1024 * 1024
	syntheticStorageMinPct  = 30
	syntheticStorageMaxPct  = 90
	syntheticStorageStepDiv = 200
)

// FSStat is the subset of statfs results the storage reader needs.
type FSStat struct {
	BlockSize       uint64
	Blocks          uint64
	BlocksAvailable uint64
}

// StatFunc queries filesystem statistics for a path.
type StatFunc func(path string) (FSStat, error)

// StorageReader reports space on one mount as seen by an unprivileged user.
type StorageReader struct {
	path   string
	stat   StatFunc
	rng    *rand.Rand
	logger logger.Logger

	usedKB   uint64
	totalKB  uint64
	failures int

	reportedUsed  uint64
	reportedTotal uint64
}

func NewStorageReader(path string, stat StatFunc, rng *rand.Rand, log logger.Logger) *StorageReader {
	return &StorageReader{
		path:   path,
		stat:   stat,
		rng:    rng,
		logger: log,
	}
}

// Path returns the mount path being reported.
func (r *StorageReader) Path() string {
	return r.path
}

// Sample queries the filesystem once. After more than three consecutive
// failures a bounded synthetic walk replaces the real value.
func (r *StorageReader) Sample() UsageSample {
	used, total, err := r.read()
	if err != nil {
		r.failures++
		r.logger.Debug().Err(err).Str("path", r.path).Int("failures", r.failures).Msg("Failed to query filesystem")
		if r.failures > storageMaxFailures {
			if r.failures == storageMaxFailures+1 {
				r.logger.Warn().Str("path", r.path).Msg("Filesystem statistics unavailable, using synthetic values")
			}
			r.synthesize()
		}
	} else {
		r.failures = 0
		r.usedKB = used
		r.totalKB = total
	}

	return UsageSample{
		UsedKB:  r.usedKB,
		TotalKB: r.totalKB,
		Changed: r.detectChange(),
	}
}

// Usage returns the last used and total values in kB.
func (r *StorageReader) Usage() (uint64, uint64) {
	return r.usedKB, r.totalKB
}

func (r *StorageReader) read() (uint64, uint64, error) {
	errFactory := errors.New()

	st, err := r.stat(r.path)
	if err != nil {
		return 0, 0, errFactory.Wrap(ErrStatfsFailed, err)
	}
	if st.BlockSize == 0 || st.Blocks == 0 {
		return 0, 0, errFactory.WithData(ErrStatfsInvalid, st)
	}

	available := min(st.BlocksAvailable, st.Blocks)
	total := st.BlockSize * st.Blocks / 1024
	used := st.BlockSize * (st.Blocks - available) / 1024

	return used, total, nil
}

func (r *StorageReader) synthesize() {
	if r.totalKB == 0 {
		r.totalKB = syntheticStorageTotalKB
	}
	minKB := r.totalKB * syntheticStorageMinPct / 100
	maxKB := r.totalKB * syntheticStorageMaxPct / 100

	if r.usedKB < minKB || r.usedKB > maxKB {
		r.usedKB = (minKB + maxKB) / 2
	}

	stepKB := int64(r.totalKB / syntheticStorageStepDiv)
	step := int64(0)
	if stepKB > 0 {
		step = r.rng.Int64N(2*stepKB+1) - stepKB
	}
	used := int64(r.usedKB) + step
	r.usedKB = clampUint(uint64(max(used, 0)), minKB, maxKB)
}

func (r *StorageReader) detectChange() bool {
	threshold := storageChangeRatio * float64(r.totalKB)

	if float64(absDiff(r.usedKB, r.reportedUsed)) > threshold ||
		float64(absDiff(r.totalKB, r.reportedTotal)) > threshold {
		r.reportedUsed = r.usedKB
		r.reportedTotal = r.totalKB
		return true
	}

	return false
}
