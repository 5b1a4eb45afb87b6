package telemetry

import (
	"bytes"
	"math/rand/v2"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
)

const (
	meminfoBufferSize = 2048

	memoryChangeRatio   = 0.02
	memoryMaxFailures   = 3
	syntheticMemTotalKB = 512 * 1024
	syntheticMemStepKB  = 1024
	syntheticMemMinPct  = 20
	syntheticMemMaxPct  = 90
)

var (
	memTotalKey     = []byte("MemTotal:")
	memAvailableKey = []byte("MemAvailable:")
)

// MemoryReader reports used and total memory from the meminfo pseudo-file.
type MemoryReader struct {
	path   string
	rng    *rand.Rand
	logger logger.Logger
	buf    []byte

	usedKB   uint64
	totalKB  uint64
	failures int

	reportedUsed  uint64
	reportedTotal uint64
}

func NewMemoryReader(path string, rng *rand.Rand, log logger.Logger) *MemoryReader {
	return &MemoryReader{
		path:   path,
		rng:    rng,
		logger: log,
		buf:    make([]byte, meminfoBufferSize),
	}
}

// Sample reads meminfo once. Until the third consecutive failure the last
// good value is kept; from then on a synthetic value is reported.
func (r *MemoryReader) Sample() UsageSample {
	total, available, err := r.read()
	if err != nil {
		r.failures++
		r.logger.Debug().Err(err).Int("failures", r.failures).Msg("Failed to read memory info")
		if r.failures >= memoryMaxFailures {
			if r.failures == memoryMaxFailures {
				r.logger.Warn().Msg("Memory info unavailable, using synthetic values")
			}
			r.synthesize()
		}
	} else {
		r.failures = 0
		r.totalKB = total
		r.usedKB = 0
		if total > available {
			r.usedKB = total - available
		}
	}

	return UsageSample{
		UsedKB:  r.usedKB,
		TotalKB: r.totalKB,
		Changed: r.detectChange(),
	}
}

// Usage returns the last used and total values in kB.
func (r *MemoryReader) Usage() (uint64, uint64) {
	return r.usedKB, r.totalKB
}

func (r *MemoryReader) read() (uint64, uint64, error) {
	errFactory := errors.New()

	data, err := readInto(r.path, r.buf)
	if err != nil {
		return 0, 0, errFactory.Wrap(ErrMeminfoReadFailed, err)
	}

	total, ok := scanKB(data, memTotalKey)
	if !ok || total == 0 {
		return 0, 0, errFactory.WithData(ErrMeminfoParseFailed, string(memTotalKey))
	}

	available, ok := scanKB(data, memAvailableKey)
	if !ok {
		return 0, 0, errFactory.WithData(ErrMeminfoParseFailed, string(memAvailableKey))
	}

	return total, available, nil
}

// scanKB finds key at the start of a line and parses the number after it.
func scanKB(data, key []byte) (uint64, bool) {
	off := 0
	for {
		i := bytes.Index(data[off:], key)
		if i < 0 {
			return 0, false
		}
		i += off
		if i == 0 || data[i-1] == '\n' {
			return parseLeadingUint(data[i+len(key):])
		}
		off = i + len(key)
	}
}

func parseLeadingUint(b []byte) (uint64, bool) {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t') {
		i++
	}

	var v uint64
	digits := 0
	for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
		v = v*10 + uint64(b[i]-'0')
		digits++
	}

	return v, digits > 0
}

func (r *MemoryReader) synthesize() {
	minKB := uint64(syntheticMemTotalKB * syntheticMemMinPct / 100)
	maxKB := uint64(syntheticMemTotalKB * syntheticMemMaxPct / 100)

	if r.totalKB != syntheticMemTotalKB {
		r.totalKB = syntheticMemTotalKB
		r.usedKB = syntheticMemTotalKB / 2
	}

	step := int64(r.rng.IntN(2*syntheticMemStepKB+1)) - syntheticMemStepKB
	used := int64(r.usedKB) + step
	r.usedKB = clampUint(uint64(max(used, 0)), minKB, maxKB)
}

func (r *MemoryReader) detectChange() bool {
	if r.totalKB != r.reportedTotal {
		r.reportedTotal = r.totalKB
		r.reportedUsed = r.usedKB
		return true
	}

	if float64(absDiff(r.usedKB, r.reportedUsed)) > memoryChangeRatio*float64(r.totalKB) {
		r.reportedUsed = r.usedKB
		return true
	}

	return false
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}

	return b - a
}

func clampUint(value, minValue, maxValue uint64) uint64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
