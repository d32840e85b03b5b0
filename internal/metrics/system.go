package metrics

import (
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var (
	systemCPUUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_cpu_usage_percent",
			Help: "Current CPU usage percentage",
		},
		[]string{"core"},
	)

	systemMemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_memory_usage_bytes",
			Help: "Current memory usage in bytes",
		},
		[]string{"type"},
	)

	goHeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_go_heap_alloc_bytes",
			Help: "Heap memory allocated and still in use",
		},
	)

	goGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_go_goroutines",
			Help: "Number of goroutines that currently exist",
		},
	)
)

// StartSystemMetricsCollection samples host and runtime metrics on a
// fixed interval for the /metrics endpoint.
func StartSystemMetricsCollection(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			collectSystemMetrics()
			collectRuntimeMetrics()
		}
	}()
}

func collectSystemMetrics() {
	if percentages, err := cpu.Percent(0, true); err == nil {
		for i, pct := range percentages {
			systemCPUUsage.WithLabelValues(fmt.Sprintf("cpu%d", i)).Set(pct)
		}
	}

	if vmstat, err := mem.VirtualMemory(); err == nil {
		systemMemoryUsage.WithLabelValues("total").Set(float64(vmstat.Total))
		systemMemoryUsage.WithLabelValues("available").Set(float64(vmstat.Available))
		systemMemoryUsage.WithLabelValues("used").Set(float64(vmstat.Used))
	}
}

func collectRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	goHeapAlloc.Set(float64(m.HeapAlloc))
	goGoroutines.Set(float64(runtime.NumGoroutine()))
}
