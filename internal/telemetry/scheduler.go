package telemetry

import "time"

const (
	idleTimeout      = 30 * time.Second
	priorityDecay    = 3 * time.Second
	storageResync    = 30 * time.Second
	lowPowerFactor   = 3
	lowPowerCPUEvery = 3
	cpuModuleMemMul  = 2
)

// baseIntervals holds the minimum time between samples, indexed by metric
// then priority (low, medium, high).
var baseIntervals = [metricCount][3]time.Duration{
	MetricCPU:     {800 * time.Millisecond, 400 * time.Millisecond, 200 * time.Millisecond},
	MetricMemory:  {2000 * time.Millisecond, 1000 * time.Millisecond, 500 * time.Millisecond},
	MetricStorage: {5000 * time.Millisecond, 3000 * time.Millisecond, 1500 * time.Millisecond},
}

// scheduler decides which readers run on a tick. It holds no locks; the
// sampler serializes access.
type scheduler struct {
	priority     Priority
	lowPower     bool
	lastActivity time.Time
	decayAt      time.Time

	lastSampled [metricCount]time.Time
	sampled     [metricCount]bool

	tick        uint64
	cpuThrottle uint64
}

func newScheduler(now time.Time) *scheduler {
	return &scheduler{
		priority:     PriorityMedium,
		lastActivity: now,
	}
}

func (s *scheduler) interval(m Metric) time.Duration {
	d := baseIntervals[m][s.priority]
	if s.lowPower {
		d *= lowPowerFactor
	}

	return d
}

func (s *scheduler) due(m Metric, now time.Time, scale time.Duration) bool {
	if !s.sampled[m] {
		return true
	}

	return now.Sub(s.lastSampled[m]) >= s.interval(m)*scale
}

// plan returns the readers to run this tick and advances the round-robin counter.
func (s *scheduler) plan(module Module, now time.Time) [metricCount]bool {
	var run [metricCount]bool

	switch module {
	case ModuleStorage:
		run[MetricStorage] = s.due(MetricStorage, now, 1)
		run[MetricMemory] = s.due(MetricMemory, now, 1)
	case ModuleCPU:
		if s.due(MetricCPU, now, 1) {
			if s.lowPower {
				s.cpuThrottle++
				run[MetricCPU] = s.cpuThrottle%lowPowerCPUEvery == 0
			} else {
				run[MetricCPU] = true
			}
		}
		run[MetricMemory] = s.due(MetricMemory, now, cpuModuleMemMul)
	default:
		m := Metric(s.tick % metricCount)
		run[m] = s.due(m, now, 1)
	}
	s.tick++

	if !run[MetricStorage] && (!s.sampled[MetricStorage] || now.Sub(s.lastSampled[MetricStorage]) >= storageResync) {
		run[MetricStorage] = true
	}

	return run
}

func (s *scheduler) markSampled(m Metric, now time.Time) {
	s.sampled[m] = true
	s.lastSampled[m] = now
}

func (s *scheduler) noteActivity(now time.Time) {
	s.priority = PriorityHigh
	s.lowPower = false
	s.lastActivity = now
	s.decayAt = now.Add(priorityDecay)
}

func (s *scheduler) noteChange(now time.Time) {
	s.lowPower = false
	s.lastActivity = now
}

func (s *scheduler) setPriority(p Priority) {
	s.priority = p
	s.decayAt = time.Time{}
}

func (s *scheduler) applyDecay(now time.Time) {
	if s.decayAt.IsZero() || now.Before(s.decayAt) {
		return
	}
	s.priority = PriorityMedium
	s.decayAt = time.Time{}
}

// checkIdle engages low power after idleTimeout without change or activity
// and reports whether it just did.
func (s *scheduler) checkIdle(now time.Time) bool {
	if s.lowPower || now.Sub(s.lastActivity) < idleTimeout {
		return false
	}
	s.lowPower = true

	return true
}
