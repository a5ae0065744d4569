package helpers

import (
	"runtime"
	"time"
)

// -----------------------------------------------------------------------------

var startTime = time.Now()

// MRuntimeStats is a point-in-time view of the process, reported by the
// health endpoint.
type MRuntimeStats struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	Goroutines    int    `json:"goroutines"`
	HeapAllocMB   uint64 `json:"heap_alloc_mb"`
	HeapSysMB     uint64 `json:"heap_sys_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// -----------------------------------------------------------------------------

// GetRuntimeStats samples the Go runtime.
func GetRuntimeStats() MRuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return MRuntimeStats{
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   mem.HeapAlloc / 1024 / 1024,
		HeapSysMB:     mem.HeapSys / 1024 / 1024,
		NumGC:         mem.NumGC,
	}
}
