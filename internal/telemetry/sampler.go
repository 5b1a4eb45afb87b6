package telemetry

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/dashmon/internal/logger"
)

// Sampler is the adaptive telemetry engine. Update is meant to be driven
// from a single tick goroutine; every other method may be called from any
// goroutine.
type Sampler struct {
	mu sync.Mutex

	clock  Clock
	sink   PerfSink
	logger logger.Logger

	cpu     *CPUReader
	memory  *MemoryReader
	storage *StorageReader
	sched   *scheduler

	pending   bool
	animating atomic.Bool
	module    atomic.Int32
}

// New builds a sampler reporting storage for storagePath.
func New(storagePath string, opts ...Option) *Sampler {
	o := &options{
		paths:  DefaultPaths(),
		clock:  systemClock{},
		sink:   noopSink{},
		stat:   Statfs,
		module: ModuleHome,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.New("telemetry")
	}
	if o.rng == nil {
		seed := uint64(time.Now().UnixNano())
		o.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if o.coreCount <= 0 {
		o.coreCount = detectCoreCount()
	}
	if storagePath == "" {
		storagePath = DefaultStoragePath
	}

	s := &Sampler{
		clock:   o.clock,
		sink:    o.sink,
		logger:  o.logger,
		cpu:     NewCPUReader(o.paths.Stat, o.paths.Thermal, o.coreCount, o.clock, o.rng, o.logger.With("cpu")),
		memory:  NewMemoryReader(o.paths.Meminfo, o.rng, o.logger.With("memory")),
		storage: NewStorageReader(storagePath, o.stat, o.rng, o.logger.With("storage")),
		sched:   newScheduler(o.clock.Now()),
	}
	s.module.Store(int32(o.module))

	return s
}

// Update runs one scheduler tick and reports whether the presentation
// layer should redraw.
func (s *Sampler) Update() bool {
	now := s.clock.Now()
	module := Module(s.module.Load())

	s.mu.Lock()
	s.sched.applyDecay(now)
	run := s.sched.plan(module, now)

	changed := false
	if run[MetricCPU] {
		changed = s.cpu.Sample().Changed || changed
		s.sched.markSampled(MetricCPU, now)
	}
	if run[MetricMemory] {
		changed = s.memory.Sample().Changed || changed
		s.sched.markSampled(MetricMemory, now)
	}
	if run[MetricStorage] {
		changed = s.storage.Sample().Changed || changed
		s.sched.markSampled(MetricStorage, now)
	}

	if changed {
		s.pending = true
		s.sched.noteChange(now)
	} else if s.sched.checkIdle(now) {
		s.logger.Debug().Msg("No activity, entering low power mode")
	}

	usage := s.cpu.Usage()
	temp := s.cpu.Temperature()
	memUsed, memTotal := s.memory.Usage()
	redraw := s.pending
	s.mu.Unlock()

	s.sink.ReportLoad(usage, pressure(memUsed, memTotal), temp)

	return redraw || s.animating.Load()
}

// NotifyUserActivity raises the priority to high, leaves low power mode and
// schedules the fall back to medium priority.
func (s *Sampler) NotifyUserActivity() {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sched.noteActivity(now)
}

// SetPriority sets the interval table row directly. Out of range values are
// clamped. An explicit priority cancels a pending decay.
func (s *Sampler) SetPriority(p Priority) {
	if p < PriorityLow {
		p = PriorityLow
	}
	if p > PriorityHigh {
		p = PriorityHigh
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sched.setPriority(p)
}

// Priority returns the current priority, applying a due decay first.
func (s *Sampler) Priority() Priority {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sched.applyDecay(now)

	return s.sched.priority
}

// LowPower reports whether idle throttling is engaged.
func (s *Sampler) LowPower() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sched.lowPower
}

// SetAnimating forces Update to request redraws while an animation runs.
func (s *Sampler) SetAnimating(animating bool) {
	s.animating.Store(animating)
}

// SetActiveModule tells the scheduler which screen is in front.
func (s *Sampler) SetActiveModule(m Module) {
	s.module.Store(int32(m))
}

// ActiveModule returns the module last set.
func (s *Sampler) ActiveModule() Module {
	return Module(s.module.Load())
}

// HasChanges reports whether data changed since the last call and clears
// the flag.
func (s *Sampler) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pending
	s.pending = false

	return pending
}

// Storage returns used and total space in kB and the used percentage.
func (s *Sampler) Storage() (uint64, uint64, uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, total := s.storage.Usage()

	return used, total, Percent(used, total)
}

// Memory returns used and total memory in kB and the used percentage.
func (s *Sampler) Memory() (uint64, uint64, uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, total := s.memory.Usage()

	return used, total, Percent(used, total)
}

// CPU returns aggregate usage and temperature in degrees Celsius.
func (s *Sampler) CPU() (float64, uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cpu.Usage(), s.cpu.Temperature()
}

// CPUCore returns the usage of one core; ok is false for an unknown index.
func (s *Sampler) CPUCore(index int) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cores := s.cpu.Cores()
	if index < 0 || index >= len(cores) {
		return 0, false
	}

	return cores[index], true
}

// CPUCoreCount returns the number of tracked cores.
func (s *Sampler) CPUCoreCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cpu.Cores())
}

// Snapshot copies every accessor value at once.
func (s *Sampler) Snapshot() Snapshot {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sched.applyDecay(now)

	memUsed, memTotal := s.memory.Usage()
	stUsed, stTotal := s.storage.Usage()
	cores := make([]float64, len(s.cpu.Cores()))
	copy(cores, s.cpu.Cores())

	return Snapshot{
		Timestamp: now,
		CPU: CPUSnapshot{
			Usage:       s.cpu.Usage(),
			Cores:       cores,
			Temperature: s.cpu.Temperature(),
		},
		Memory: UsageSnapshot{
			UsedKB:  memUsed,
			TotalKB: memTotal,
			Percent: Percent(memUsed, memTotal),
		},
		Storage: StorageSnapshot{
			UsageSnapshot: UsageSnapshot{
				UsedKB:  stUsed,
				TotalKB: stTotal,
				Percent: Percent(stUsed, stTotal),
			},
			Path: s.storage.Path(),
		},
		Priority:     s.sched.priority,
		LowPower:     s.sched.lowPower,
		Animating:    s.animating.Load(),
		ActiveModule: Module(s.module.Load()),
	}
}

// Percent returns used as an integer percentage of total, 0 when total is 0.
func Percent(used, total uint64) uint8 {
	if total == 0 {
		return 0
	}

	return uint8(min(used*100/total, 100))
}

func pressure(used, total uint64) float64 {
	if total == 0 {
		return 0
	}

	return float64(used) * 100 / float64(total)
}
