package telemetry

import (
	"fmt"
	"time"

	"codeberg.org/mutker/dashmon/internal/errors"
)

// Clock supplies the current time to the scheduler. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

// PerfSink receives the latest load figures on every tick, sampled or not.
type PerfSink interface {
	ReportLoad(cpuLoad, memoryPressure float64, cpuTemp uint8)
}

// Priority selects the row of the sampling interval table.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Priority) UnmarshalText(text []byte) error {
	for v := PriorityLow; v <= PriorityHigh; v++ {
		if v.String() == string(text) {
			*p = v
			return nil
		}
	}

	return errors.New().WithData(ErrUnknownPriority, string(text))
}

// Module identifies the dashboard screen currently in front. Only
// ModuleStorage and ModuleCPU bias the scheduler.
type Module int

const (
	ModuleHome Module = iota
	ModuleStorage
	ModuleCPU
	ModuleMenu
	ModuleAssistant
	ModuleLyrics
)

func (m Module) String() string {
	switch m {
	case ModuleHome:
		return "home"
	case ModuleStorage:
		return "storage"
	case ModuleCPU:
		return "cpu"
	case ModuleMenu:
		return "menu"
	case ModuleAssistant:
		return "assistant"
	case ModuleLyrics:
		return "lyrics"
	default:
		return fmt.Sprintf("module(%d)", int(m))
	}
}

// Valid reports whether m is one of the known modules.
func (m Module) Valid() bool {
	return m >= ModuleHome && m <= ModuleLyrics
}

// MarshalText implements encoding.TextMarshaler
func (m Module) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Module) UnmarshalText(text []byte) error {
	for v := ModuleHome; v.Valid(); v++ {
		if v.String() == string(text) {
			*m = v
			return nil
		}
	}

	return errors.New().WithData(ErrUnknownModule, string(text))
}

// Metric indexes the per-metric scheduler tables.
type Metric int

const (
	MetricCPU Metric = iota
	MetricMemory
	MetricStorage

	metricCount = 3
)

// CPUSample is the output of one CPU reader call.
type CPUSample struct {
	Usage       float64
	Cores       []float64
	Temperature uint8
	Changed     bool
}

// UsageSample is the output of one memory or storage reader call, in kB.
type UsageSample struct {
	UsedKB  uint64
	TotalKB uint64
	Changed bool
}

// Snapshot is an immutable copy of everything the accessors expose.
type Snapshot struct {
	Timestamp    time.Time       `json:"timestamp"`
	CPU          CPUSnapshot     `json:"cpu"`
	Memory       UsageSnapshot   `json:"memory"`
	Storage      StorageSnapshot `json:"storage"`
	Priority     Priority        `json:"priority"`
	LowPower     bool            `json:"low_power"`
	Animating    bool            `json:"animating"`
	ActiveModule Module          `json:"active_module"`
}

type CPUSnapshot struct {
	Usage       float64   `json:"usage"`
	Cores       []float64 `json:"cores"`
	Temperature uint8     `json:"temperature_c"`
}

type UsageSnapshot struct {
	UsedKB  uint64 `json:"used_kb"`
	TotalKB uint64 `json:"total_kb"`
	Percent uint8  `json:"percent"`
}

type StorageSnapshot struct {
	UsageSnapshot
	Path string `json:"path"`
}
