package perf_test

import (
	"encoding/json"
	"sync"
	"testing"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
	"codeberg.org/mutker/dashmon/internal/perf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonitor(t *testing.T) *perf.Monitor {
	t.Helper()

	m, err := perf.NewMonitor(perf.DefaultConfig(), logger.New("test"))
	require.NoError(t, err)

	return m
}

func report(m *perf.Monitor, cpu float64, times int) {
	for i := 0; i < times; i++ {
		m.ReportLoad(cpu, 0, 40)
	}
}

func TestSlidingWindowAverage(t *testing.T) {
	m := newMonitor(t)

	assert.Equal(t, perf.Averages{}, m.Averages())

	m.ReportLoad(10, 20, 40)
	m.ReportLoad(20, 40, 50)
	avg := m.Averages()
	assert.InDelta(t, 15.0, avg.CPU, 0.0001)
	assert.InDelta(t, 30.0, avg.Memory, 0.0001)
	assert.InDelta(t, 45.0, avg.Temperature, 0.0001)
	assert.Equal(t, 2, avg.Samples)

	for _, v := range []float64{30, 40, 50, 60} {
		m.ReportLoad(v, 0, 40)
	}
	avg = m.Averages()
	assert.InDelta(t, 40.0, avg.CPU, 0.0001, "oldest entry dropped")
	assert.Equal(t, perf.WindowSize, avg.Samples)
}

func TestQualityHysteresis(t *testing.T) {
	m := newMonitor(t)

	report(m, 64, perf.WindowSize)
	assert.Equal(t, perf.QualityFull, m.Quality(), "within the margin above the threshold")

	report(m, 70, perf.WindowSize)
	assert.Equal(t, perf.QualityBalanced, m.Quality())

	report(m, 58, perf.WindowSize)
	assert.Equal(t, perf.QualityBalanced, m.Quality(), "within the margin below the threshold")

	report(m, 50, perf.WindowSize)
	assert.Equal(t, perf.QualityFull, m.Quality())
}

func TestQualityJumpsToReduced(t *testing.T) {
	m := newMonitor(t)

	m.ReportLoad(95, 0, 40)
	assert.Equal(t, perf.QualityReduced, m.Quality())

	report(m, 70, perf.WindowSize)
	assert.Equal(t, perf.QualityBalanced, m.Quality())
}

func TestMemoryPressureAndHeat(t *testing.T) {
	m := newMonitor(t)
	for i := 0; i < perf.WindowSize; i++ {
		m.ReportLoad(5, 92, 40)
	}
	assert.Equal(t, perf.QualityReduced, m.Quality())

	m = newMonitor(t)
	for i := 0; i < perf.WindowSize; i++ {
		m.ReportLoad(5, 5, 85)
	}
	assert.Equal(t, perf.QualityReduced, m.Quality())
}

func TestReportJSON(t *testing.T) {
	m := newMonitor(t)
	m.ReportLoad(70, 10, 40)

	data, err := json.Marshal(m.Report())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"averages":{"cpu":70,"memory":10,"temperature":40,"samples":1},"quality":"balanced"}`,
		string(data))
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*perf.Config)
		code   errors.ErrorCode
	}{
		{"reduced below balanced", func(c *perf.Config) { c.ReducedThreshold = 50 }, perf.ErrInvalidThreshold},
		{"reduced above 100", func(c *perf.Config) { c.ReducedThreshold = 101 }, perf.ErrInvalidThreshold},
		{"zero balanced", func(c *perf.Config) { c.BalancedThreshold = 0 }, perf.ErrInvalidThreshold},
		{"negative hysteresis", func(c *perf.Config) { c.Hysteresis = -1 }, perf.ErrInvalidHysteresis},
		{"hysteresis spans levels", func(c *perf.Config) { c.Hysteresis = 30 }, perf.ErrInvalidHysteresis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := perf.DefaultConfig()
			tt.mutate(&cfg)

			_, err := perf.NewMonitor(cfg, logger.New("test"))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code))
		})
	}
}

func TestConcurrentReports(t *testing.T) {
	m := newMonitor(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.ReportLoad(float64(j), float64(j), 40)
				_ = m.Quality()
				_ = m.Averages()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, perf.WindowSize, m.Averages().Samples)
}
