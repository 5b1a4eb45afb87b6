package status

import (
	"context"

	"codeberg.org/mutker/dashmon/internal/history"
	"codeberg.org/mutker/dashmon/internal/perf"
	"codeberg.org/mutker/dashmon/internal/telemetry"
)

type SnapshotSource interface {
	Snapshot() telemetry.Snapshot
}

type PerfSource interface {
	Report() perf.Report
}

type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]history.Sample, error)
	Enabled() bool
}
