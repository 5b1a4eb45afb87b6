package telemetry

import (
	"math/rand/v2"

	"codeberg.org/mutker/dashmon/internal/logger"
)

const (
	DefaultStatPath    = "/proc/stat"
	DefaultMeminfoPath = "/proc/meminfo"
	DefaultStoragePath = "/"
)

// DefaultThermalPaths are tried in order for the CPU temperature.
var DefaultThermalPaths = []string{
	"/sys/class/thermal/thermal_zone0/temp",
	"/sys/devices/virtual/thermal/thermal_zone0/temp",
}

// Paths locates the kernel pseudo-files read by the sampler.
type Paths struct {
	Stat    string
	Meminfo string
	Thermal []string
}

// DefaultPaths returns the procfs and sysfs locations.
func DefaultPaths() Paths {
	return Paths{
		Stat:    DefaultStatPath,
		Meminfo: DefaultMeminfoPath,
		Thermal: DefaultThermalPaths,
	}
}

// Option configures a Sampler
type Option func(*options)

type options struct {
	paths     Paths
	clock     Clock
	rng       *rand.Rand
	sink      PerfSink
	logger    logger.Logger
	stat      StatFunc
	coreCount int
	module    Module
}

// WithPaths overrides the pseudo-file locations.
func WithPaths(p Paths) Option {
	return func(o *options) {
		o.paths = p
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRand sets the source for synthetic values.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// WithPerfSink sets the collaborator that receives the per-tick load figures.
func WithPerfSink(s PerfSink) Option {
	return func(o *options) {
		o.sink = s
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStatFunc replaces statfs(2) for the storage reader.
func WithStatFunc(f StatFunc) Option {
	return func(o *options) {
		o.stat = f
	}
}

// WithCoreCount fixes the number of tracked cores instead of detecting it.
func WithCoreCount(n int) Option {
	return func(o *options) {
		o.coreCount = n
	}
}

// WithActiveModule sets the module in front at startup.
func WithActiveModule(m Module) Option {
	return func(o *options) {
		o.module = m
	}
}
