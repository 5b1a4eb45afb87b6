package telemetry

import (
	"errors"
	"testing"

	"codeberg.org/mutker/dashmon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorageReader(f *fixture) *StorageReader {
	return NewStorageReader("/data", f.statfs, testRand(), logger.New("test"))
}

func TestPercent(t *testing.T) {
	tests := []struct {
		used, total uint64
		want        uint8
	}{
		{50, 200, 25},
		{0, 0, 0},
		{5, 0, 0},
		{199, 200, 99},
		{300, 200, 100},
		{200, 200, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.used, tt.total), "Percent(%d, %d)", tt.used, tt.total)
	}
}

func TestStorageUsage(t *testing.T) {
	f := newFixture(t)
	f.setStat(FSStat{BlockSize: 4096, Blocks: 1000, BlocksAvailable: 250}, nil)
	r := newTestStorageReader(f)

	sample := r.Sample()
	assert.Equal(t, uint64(4000), sample.TotalKB)
	assert.Equal(t, uint64(3000), sample.UsedKB)
	assert.True(t, sample.Changed)
	assert.Equal(t, "/data", r.Path())
}

func TestStorageAvailableAboveBlocks(t *testing.T) {
	f := newFixture(t)
	f.setStat(FSStat{BlockSize: 1024, Blocks: 10, BlocksAvailable: 20}, nil)
	r := newTestStorageReader(f)

	sample := r.Sample()
	assert.Zero(t, sample.UsedKB)
	assert.Equal(t, uint64(10), sample.TotalKB)
}

func TestStorageChangeThreshold(t *testing.T) {
	f := newFixture(t)
	f.setStat(FSStat{BlockSize: 1024, Blocks: 10000, BlocksAvailable: 5000}, nil)
	r := newTestStorageReader(f)
	require.True(t, r.Sample().Changed)

	f.setStat(FSStat{BlockSize: 1024, Blocks: 10000, BlocksAvailable: 4900}, nil)
	assert.False(t, r.Sample().Changed, "exactly 1% is not a change")

	f.setStat(FSStat{BlockSize: 1024, Blocks: 10000, BlocksAvailable: 4899}, nil)
	assert.True(t, r.Sample().Changed)
}

func TestStorageSynthesizesAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	f.setStat(FSStat{BlockSize: 1024, Blocks: 10000, BlocksAvailable: 9900}, nil)
	r := newTestStorageReader(f)
	r.Sample()

	f.setStat(FSStat{}, errors.New("device gone"))
	for i := 0; i < storageMaxFailures; i++ {
		sample := r.Sample()
		assert.Equal(t, uint64(100), sample.UsedKB, "last good value kept on failure %d", i+1)
	}

	for i := 0; i < 200; i++ {
		sample := r.Sample()
		require.Equal(t, uint64(10000), sample.TotalKB)
		require.GreaterOrEqual(t, sample.UsedKB, uint64(3000))
		require.LessOrEqual(t, sample.UsedKB, uint64(9000))
	}
}

func TestStorageSyntheticWithoutEverReading(t *testing.T) {
	f := newFixture(t)
	f.setStat(FSStat{}, errors.New("no such mount"))
	r := newTestStorageReader(f)

	var sample UsageSample
	for i := 0; i <= storageMaxFailures; i++ {
		sample = r.Sample()
	}

	assert.Equal(t, uint64(syntheticStorageTotalKB), sample.TotalKB)
	pct := Percent(sample.UsedKB, sample.TotalKB)
	assert.GreaterOrEqual(t, pct, uint8(syntheticStorageMinPct))
	assert.LessOrEqual(t, pct, uint8(syntheticStorageMaxPct))
}

func TestStorageRejectsEmptyFilesystem(t *testing.T) {
	f := newFixture(t)
	f.setStat(FSStat{BlockSize: 4096}, nil)
	r := newTestStorageReader(f)

	sample := r.Sample()
	assert.Zero(t, sample.TotalKB)
	assert.Equal(t, 1, r.failures)
}
