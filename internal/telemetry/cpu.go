package telemetry

import (
	"bytes"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
)

const (
	statBufferSize    = 8192
	thermalBufferSize = 32

	cpuChangeThreshold = 1.0
	coreUsageFloor     = 1.0
	temperatureTTL     = 2000 * time.Millisecond

	syntheticCPUMin  = 25.0
	syntheticCPUMax  = 75.0
	syntheticCPUStep = 3.0
	syntheticTempMin = 45
	syntheticTempJit = 15
)

// cpuTimes holds one line of tick counters from the stat file.
type cpuTimes struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

func (t cpuTimes) active() uint64 {
	return t.user + t.nice + t.system + t.irq + t.softirq + t.steal
}

func (t cpuTimes) idleTotal() uint64 {
	return t.idle + t.iowait
}

func (t cpuTimes) total() uint64 {
	return t.active() + t.idleTotal()
}

// utilization returns the busy percentage between two snapshots. ok is false
// when the counters did not advance, which includes resets and wraparound.
func utilization(prev, cur cpuTimes) (float64, bool) {
	prevTotal, curTotal := prev.total(), cur.total()
	if curTotal <= prevTotal {
		return 0, false
	}

	totalDiff := float64(curTotal - prevTotal)
	idleDiff := float64(cur.idleTotal()) - float64(prev.idleTotal())

	return clampFloat(100*(totalDiff-idleDiff)/totalDiff, 0, 100), true
}

// CPUReader derives utilization from the kernel tick counters and keeps the
// previous snapshot it needs for the next delta.
type CPUReader struct {
	statPath     string
	thermalPaths []string
	clock        Clock
	rng          *rand.Rand
	logger       logger.Logger

	statBuf    []byte
	thermalBuf []byte
	parsed     []cpuTimes
	parsedOK   []bool

	prev       cpuTimes
	primed     bool
	prevCores  []cpuTimes
	corePrimed []bool

	usage float64
	cores []float64

	temperature  uint8
	tempRead     bool
	lastTempRead time.Time

	reportedUsage float64
	reportedCores []float64
	reportedTemp  uint8
	tempReported  bool
	synthetic     bool
}

// NewCPUReader returns a reader tracking coreCount cores. Per-core buffers
// are allocated here and never grow.
func NewCPUReader(statPath string, thermalPaths []string, coreCount int, clock Clock, rng *rand.Rand, log logger.Logger) *CPUReader {
	r := &CPUReader{
		statPath:      statPath,
		thermalPaths:  thermalPaths,
		clock:         clock,
		rng:           rng,
		logger:        log,
		statBuf:       make([]byte, statBufferSize),
		thermalBuf:    make([]byte, thermalBufferSize),
		parsed:        make([]cpuTimes, coreCount),
		parsedOK:      make([]bool, coreCount),
		prevCores:     make([]cpuTimes, coreCount),
		corePrimed:    make([]bool, coreCount),
		cores:         make([]float64, coreCount),
		reportedCores: make([]float64, coreCount),
	}
	for i := range r.cores {
		r.cores[i] = coreUsageFloor
		r.reportedCores[i] = coreUsageFloor
	}

	return r
}

// Sample reads the counters once and returns aggregate and per-core usage.
// The returned Cores slice is owned by the reader and valid until the next call.
func (r *CPUReader) Sample() CPUSample {
	agg, err := r.readStat()
	if err != nil {
		if !r.synthetic {
			r.logger.Warn().Err(err).Msg("CPU counters unavailable, using synthetic values")
			r.synthetic = true
		}
		r.synthesize()
	} else {
		if r.synthetic {
			r.logger.Info().Msg("CPU counters available again")
			r.synthetic = false
		}
		r.apply(agg)
	}

	r.updateTemperature(r.clock.Now())

	return CPUSample{
		Usage:       r.usage,
		Cores:       r.cores,
		Temperature: r.temperature,
		Changed:     r.detectChange(),
	}
}

// Usage returns the last computed aggregate usage.
func (r *CPUReader) Usage() float64 {
	return r.usage
}

// Cores returns the last computed per-core usage.
func (r *CPUReader) Cores() []float64 {
	return r.cores
}

// Temperature returns the last temperature in whole degrees Celsius.
func (r *CPUReader) Temperature() uint8 {
	return r.temperature
}

func (r *CPUReader) apply(agg cpuTimes) {
	if r.primed {
		if usage, ok := utilization(r.prev, agg); ok {
			r.usage = usage
		} else {
			r.logger.Debug().Msg("CPU counters did not advance, keeping previous usage")
		}
	}
	r.prev = agg
	r.primed = true

	for i := range r.cores {
		if !r.parsedOK[i] {
			continue
		}
		if r.corePrimed[i] {
			if usage, ok := utilization(r.prevCores[i], r.parsed[i]); ok {
				r.cores[i] = math.Max(usage, coreUsageFloor)
			}
		}
		r.prevCores[i] = r.parsed[i]
		r.corePrimed[i] = true
	}
}

// readStat parses the aggregate line and fills r.parsed for every core line.
func (r *CPUReader) readStat() (cpuTimes, error) {
	errFactory := errors.New()

	data, err := readInto(r.statPath, r.statBuf)
	if err != nil {
		return cpuTimes{}, errFactory.Wrap(ErrStatReadFailed, err)
	}

	for i := range r.parsedOK {
		r.parsedOK[i] = false
	}

	var agg cpuTimes
	found := false
	for len(data) > 0 {
		var line []byte
		line, data = nextLine(data)
		if !bytes.HasPrefix(line, []byte("cpu")) {
			if found {
				// cpu lines are contiguous at the top of the file
				break
			}
			continue
		}

		fields := bytes.Fields(line)
		times, ok := parseCPUFields(fields)
		if !ok {
			continue
		}

		name := fields[0]
		if len(name) == 3 {
			agg = times
			found = true
			continue
		}

		idx, err := strconv.Atoi(string(name[3:]))
		if err != nil || idx < 0 || idx >= len(r.parsed) {
			continue
		}
		r.parsed[idx] = times
		r.parsedOK[idx] = true
	}

	if !found {
		return cpuTimes{}, errFactory.New(ErrStatParseFailed)
	}

	return agg, nil
}

func parseCPUFields(fields [][]byte) (cpuTimes, bool) {
	// name + user nice system idle at minimum; later columns appeared over kernel versions
	if len(fields) < 5 {
		return cpuTimes{}, false
	}

	var values [8]uint64
	for i := 0; i < len(values) && i+1 < len(fields); i++ {
		v, err := strconv.ParseUint(string(fields[i+1]), 10, 64)
		if err != nil {
			return cpuTimes{}, false
		}
		values[i] = v
	}

	return cpuTimes{
		user:    values[0],
		nice:    values[1],
		system:  values[2],
		idle:    values[3],
		iowait:  values[4],
		irq:     values[5],
		softirq: values[6],
		steal:   values[7],
	}, true
}

func (r *CPUReader) synthesize() {
	if r.usage < syntheticCPUMin || r.usage > syntheticCPUMax {
		r.usage = (syntheticCPUMin + syntheticCPUMax) / 2
	}
	r.usage = r.walk(r.usage)

	for i := range r.cores {
		if r.cores[i] < syntheticCPUMin || r.cores[i] > syntheticCPUMax {
			r.cores[i] = r.usage
		}
		r.cores[i] = r.walk(r.cores[i])
	}
}

func (r *CPUReader) walk(v float64) float64 {
	step := (r.rng.Float64()*2 - 1) * syntheticCPUStep
	return clampFloat(v+step, syntheticCPUMin, syntheticCPUMax)
}

func (r *CPUReader) updateTemperature(now time.Time) {
	if r.tempRead && now.Sub(r.lastTempRead) < temperatureTTL {
		return
	}
	r.tempRead = true
	r.lastTempRead = now

	for _, path := range r.thermalPaths {
		if temp, err := r.readThermal(path); err == nil {
			r.temperature = temp
			return
		}
	}

	r.temperature = uint8(syntheticTempMin + r.rng.IntN(syntheticTempJit))
}

func (r *CPUReader) readThermal(path string) (uint8, error) {
	errFactory := errors.New()

	data, err := readInto(path, r.thermalBuf)
	if err != nil {
		return 0, errFactory.Wrap(ErrThermalReadFailed, err)
	}

	milli, err := strconv.ParseInt(string(bytes.TrimSpace(data)), 10, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrThermalReadFailed, err)
	}

	celsius := milli / 1000
	if celsius < 0 {
		celsius = 0
	}
	if celsius > math.MaxUint8 {
		celsius = math.MaxUint8
	}

	return uint8(celsius), nil
}

func (r *CPUReader) detectChange() bool {
	changed := false

	if math.Abs(r.usage-r.reportedUsage) > cpuChangeThreshold {
		r.reportedUsage = r.usage
		changed = true
	}

	for i, usage := range r.cores {
		if math.Abs(usage-r.reportedCores[i]) > cpuChangeThreshold {
			r.reportedCores[i] = usage
			changed = true
		}
	}

	if !r.tempReported || r.temperature != r.reportedTemp {
		r.reportedTemp = r.temperature
		r.tempReported = true
		changed = true
	}

	return changed
}

func clampFloat(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
