package telemetry

import (
	"testing"

	"codeberg.org/mutker/dashmon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryReader(f *fixture) *MemoryReader {
	return NewMemoryReader(f.paths.Meminfo, testRand(), logger.New("test"))
}

func TestMemoryUsage(t *testing.T) {
	f := newFixture(t)
	r := newTestMemoryReader(f)

	sample := r.Sample()
	assert.Equal(t, uint64(50000), sample.UsedKB)
	assert.Equal(t, uint64(100000), sample.TotalKB)
	assert.True(t, sample.Changed)
}

func TestMemoryChangeThreshold(t *testing.T) {
	f := newFixture(t)
	r := newTestMemoryReader(f)
	require.True(t, r.Sample().Changed)

	f.write("meminfo", "MemTotal: 100000 kB\nMemAvailable: 49000 kB\n")
	assert.False(t, r.Sample().Changed, "1% of total is below the threshold")

	f.write("meminfo", "MemTotal: 100000 kB\nMemAvailable: 47000 kB\n")
	assert.True(t, r.Sample().Changed, "3% from the last reported value")

	f.write("meminfo", "MemTotal: 100000 kB\nMemAvailable: 46000 kB\n")
	assert.False(t, r.Sample().Changed, "compared against the new reported value")
}

func TestMemoryAvailableAboveTotal(t *testing.T) {
	f := newFixture(t)
	f.write("meminfo", "MemTotal: 1000 kB\nMemAvailable: 2000 kB\n")
	r := newTestMemoryReader(f)

	sample := r.Sample()
	assert.Zero(t, sample.UsedKB)
	assert.Equal(t, uint64(1000), sample.TotalKB)
}

func TestMemoryKeyMustStartLine(t *testing.T) {
	f := newFixture(t)
	f.write("meminfo", "HugeMemTotal: 5 kB\nMemTotal: 1000 kB\nXMemAvailable: 1 kB\nMemAvailable: 250 kB\n")
	r := newTestMemoryReader(f)

	sample := r.Sample()
	assert.Equal(t, uint64(750), sample.UsedKB)
	assert.Equal(t, uint64(1000), sample.TotalKB)
}

func TestMemoryKeepsLastGoodValueBeforeSynthesizing(t *testing.T) {
	f := newFixture(t)
	r := newTestMemoryReader(f)
	r.Sample()

	f.remove("meminfo")
	for i := 0; i < memoryMaxFailures-1; i++ {
		sample := r.Sample()
		assert.Equal(t, uint64(50000), sample.UsedKB)
		assert.Equal(t, uint64(100000), sample.TotalKB)
	}

	sample := r.Sample()
	assert.Equal(t, uint64(syntheticMemTotalKB), sample.TotalKB)
	assert.True(t, sample.Changed)
}

func TestMemorySyntheticRange(t *testing.T) {
	f := newFixture(t)
	f.remove("meminfo")
	r := newTestMemoryReader(f)

	minKB := uint64(syntheticMemTotalKB * syntheticMemMinPct / 100)
	maxKB := uint64(syntheticMemTotalKB * syntheticMemMaxPct / 100)
	for i := 0; i < 500; i++ {
		sample := r.Sample()
		if i < memoryMaxFailures-1 {
			assert.Zero(t, sample.TotalKB)
			continue
		}
		require.GreaterOrEqual(t, sample.UsedKB, minKB)
		require.LessOrEqual(t, sample.UsedKB, maxKB)
	}
}

func TestMemoryRecoversAfterFailures(t *testing.T) {
	f := newFixture(t)
	f.write("meminfo", "MemTotal: garbage\n")
	r := newTestMemoryReader(f)
	for i := 0; i < 5; i++ {
		r.Sample()
	}

	f.write("meminfo", meminfo)
	sample := r.Sample()
	assert.Equal(t, uint64(50000), sample.UsedKB)
	assert.Equal(t, uint64(100000), sample.TotalKB)
	assert.Zero(t, r.failures)
}
