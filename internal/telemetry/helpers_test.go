package telemetry

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/dashmon/internal/logger"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingSink struct {
	mu      sync.Mutex
	calls   int
	cpu     float64
	memory  float64
	cpuTemp uint8
}

func (s *countingSink) ReportLoad(cpuLoad, memoryPressure float64, cpuTemp uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.cpu = cpuLoad
	s.memory = memoryPressure
	s.cpuTemp = cpuTemp
}

const (
	idleStat = "cpu  100 0 0 100 0 0 0 0\ncpu0 50 0 0 50 0 0 0 0\ncpu1 50 0 0 50 0 0 0 0\nintr 0\n"
	meminfo  = "MemTotal:       100000 kB\nMemFree:         10000 kB\nMemAvailable:    50000 kB\n"
)

// fixture lays out fake pseudo-files in a temp dir.
type fixture struct {
	t     *testing.T
	dir   string
	clock *manualClock
	paths Paths

	mu      sync.Mutex
	fs      FSStat
	statErr error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		t:     t,
		dir:   dir,
		clock: newManualClock(),
		paths: Paths{
			Stat:    filepath.Join(dir, "stat"),
			Meminfo: filepath.Join(dir, "meminfo"),
			Thermal: []string{filepath.Join(dir, "temp0"), filepath.Join(dir, "temp1")},
		},
		fs: FSStat{BlockSize: 4096, Blocks: 1000, BlocksAvailable: 500},
	}
	f.write("stat", idleStat)
	f.write("meminfo", meminfo)
	f.write("temp0", "48000\n")

	return f
}

func (f *fixture) write(name, content string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o600))
}

func (f *fixture) remove(name string) {
	f.t.Helper()
	require.NoError(f.t, os.Remove(filepath.Join(f.dir, name)))
}

func (f *fixture) setStat(st FSStat, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fs = st
	f.statErr = err
}

func (f *fixture) statfs(string) (FSStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fs, f.statErr
}

func (f *fixture) sampler(opts ...Option) *Sampler {
	base := []Option{
		WithPaths(f.paths),
		WithClock(f.clock),
		WithRand(testRand()),
		WithStatFunc(f.statfs),
		WithCoreCount(2),
		WithLogger(logger.New("test")),
	}

	return New("/", append(base, opts...)...)
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}
