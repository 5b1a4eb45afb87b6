package perf

import (
	"sync"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
)

// Monitor averages the load the sampler reports on every tick and derives a
// render quality from it.
type Monitor struct {
	mu     sync.RWMutex
	cfg    Config
	logger logger.Logger

	cpu    [WindowSize]float64
	memory [WindowSize]float64
	temp   [WindowSize]float64
	next   int
	count  int

	averages Averages
	quality  Quality
}

func NewMonitor(cfg Config, log logger.Logger) (*Monitor, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return &Monitor{
		cfg:     cfg,
		logger:  log,
		quality: QualityFull,
	}, nil
}

// ReportLoad adds one entry to the window, dropping the oldest once full.
func (m *Monitor) ReportLoad(cpuLoad, memoryPressure float64, cpuTemp uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cpu[m.next] = cpuLoad
	m.memory[m.next] = memoryPressure
	m.temp[m.next] = float64(cpuTemp)
	m.next = (m.next + 1) % WindowSize
	if m.count < WindowSize {
		m.count++
	}

	m.averages = Averages{
		CPU:         mean(m.cpu[:m.count]),
		Memory:      mean(m.memory[:m.count]),
		Temperature: mean(m.temp[:m.count]),
		Samples:     m.count,
	}

	next := m.nextQuality(m.score())
	if next != m.quality {
		m.logger.Info().
			Str("from", m.quality.String()).
			Str("to", next.String()).
			Float64("cpu_avg", m.averages.CPU).
			Float64("memory_avg", m.averages.Memory).
			Float64("temp_avg", m.averages.Temperature).
			Msg("Render quality changed")
		m.quality = next
	}
}

// Quality returns the current render quality.
func (m *Monitor) Quality() Quality {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.quality
}

// Averages returns the window means.
func (m *Monitor) Averages() Averages {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.averages
}

func (m *Monitor) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Report{Averages: m.averages, Quality: m.quality}
}

// score is the load figure compared against the thresholds. A hot CPU
// counts as full load.
func (m *Monitor) score() float64 {
	if m.averages.Temperature >= m.cfg.HotTemperature {
		return 100
	}

	return max(m.averages.CPU, m.averages.Memory)
}

// nextQuality moves at most as far as the score clears each boundary by
// more than the hysteresis margin.
func (m *Monitor) nextQuality(score float64) Quality {
	boundaries := [...]float64{m.cfg.BalancedThreshold, m.cfg.ReducedThreshold}

	q := m.quality
	for q < QualityReduced && score > boundaries[q]+m.cfg.Hysteresis {
		q++
	}
	for q > QualityFull && score < boundaries[q-1]-m.cfg.Hysteresis {
		q--
	}

	return q
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
