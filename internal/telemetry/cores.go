package telemetry

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

const maxCores = 64

// detectCoreCount sizes the per-core buffers once at construction.
func detectCoreCount() int {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		count = runtime.NumCPU()
	}

	return min(max(count, 1), maxCores)
}
