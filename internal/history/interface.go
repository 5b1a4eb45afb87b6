package history

import (
	"context"
	"time"

	"codeberg.org/mutker/dashmon/internal/telemetry"
)

// Recorder is what the daemon talks to. A disabled recorder accepts and
// drops everything.
type Recorder interface {
	Record(ctx context.Context, snapshot *telemetry.Snapshot) error
	Recent(ctx context.Context, limit int) ([]Sample, error)
	Close() error
	Enabled() bool
}

// Repository defines the interface for sample storage
type Repository interface {
	Record(sample *Sample) error
	Recent(ctx context.Context, limit int) ([]Sample, error)
	Flush() error
	Close() error
}

// Sample is one persisted row, flattened from a telemetry snapshot.
type Sample struct {
	Timestamp      time.Time          `json:"timestamp"`
	CPUUsage       float64            `json:"cpu_usage"`
	CPUTemperature uint8              `json:"cpu_temperature"`
	MemoryUsedKB   uint64             `json:"memory_used_kb"`
	MemoryTotalKB  uint64             `json:"memory_total_kb"`
	StorageUsedKB  uint64             `json:"storage_used_kb"`
	StorageTotalKB uint64             `json:"storage_total_kb"`
	Priority       telemetry.Priority `json:"priority"`
	LowPower       bool               `json:"low_power"`
	ActiveModule   telemetry.Module   `json:"active_module"`
}

// SampleFromSnapshot drops the per-core detail, which is not persisted.
func SampleFromSnapshot(s *telemetry.Snapshot) *Sample {
	return &Sample{
		Timestamp:      s.Timestamp,
		CPUUsage:       s.CPU.Usage,
		CPUTemperature: s.CPU.Temperature,
		MemoryUsedKB:   s.Memory.UsedKB,
		MemoryTotalKB:  s.Memory.TotalKB,
		StorageUsedKB:  s.Storage.UsedKB,
		StorageTotalKB: s.Storage.TotalKB,
		Priority:       s.Priority,
		LowPower:       s.LowPower,
		ActiveModule:   s.ActiveModule,
	}
}
