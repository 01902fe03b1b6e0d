package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// MetricsManager owns the registry every collector of this package registers
// on, and the host sampler behind ENABLE_SYSTEM_METRICS.
type MetricsManager struct {
	registry *prometheus.Registry

	hostCPU    prometheus.Gauge
	hostMemory *prometheus.GaugeVec
	hostLoad   *prometheus.GaugeVec
	samples    *prometheus.CounterVec

	systemOnce sync.Once
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the process-wide MetricsManager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = &MetricsManager{registry: prometheus.NewRegistry()}
	})
	return instance
}

// Registry returns the registry served on /metrics
func Registry() *prometheus.Registry {
	return GetInstance().registry
}

// InitializeSystemMetrics registers the Go runtime, process and host
// collectors. Safe to call more than once.
func (mm *MetricsManager) InitializeSystemMetrics() {
	mm.systemOnce.Do(func() {
		mm.hostCPU = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "host",
			Name:      "cpu_usage_percent",
			Help:      "Host CPU usage across all cores, sampled",
		})
		mm.hostMemory = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "host",
			Name:      "memory_bytes",
			Help:      "Host memory by state",
		}, []string{"state"}) // "total", "available", "used"
		mm.hostLoad = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "host",
			Name:      "load_average",
			Help:      "Host load average",
		}, []string{"window"}) // "1m", "5m", "15m"
		mm.samples = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "host",
			Name:      "samples_total",
			Help:      "Host sampling rounds by outcome",
		}, []string{"source", "status"})

		mm.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			mm.hostCPU,
			mm.hostMemory,
			mm.hostLoad,
			mm.samples,
		)
	})
}

// StartSystemMetrics samples the host every interval until ctx is done. It is
// a no-op while system metrics are switched off.
func StartSystemMetrics(ctx context.Context, interval time.Duration) {
	if !systemEnabled.Load() {
		return
	}

	mm := GetInstance()
	mm.InitializeSystemMetrics()
	mm.sampleHost()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mm.sampleHost()
			}
		}
	}()
}

// sampleHost reads CPU, memory and load. A source that fails keeps its last value.
func (mm *MetricsManager) sampleHost() {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		mm.hostCPU.Set(percents[0])
		mm.samples.WithLabelValues("cpu", "ok").Inc()
	} else {
		mm.samples.WithLabelValues("cpu", "error").Inc()
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		mm.hostMemory.WithLabelValues("total").Set(float64(vm.Total))
		mm.hostMemory.WithLabelValues("available").Set(float64(vm.Available))
		mm.hostMemory.WithLabelValues("used").Set(float64(vm.Used))
		mm.samples.WithLabelValues("memory", "ok").Inc()
	} else {
		mm.samples.WithLabelValues("memory", "error").Inc()
	}

	if avg, err := load.Avg(); err == nil {
		mm.hostLoad.WithLabelValues("1m").Set(avg.Load1)
		mm.hostLoad.WithLabelValues("5m").Set(avg.Load5)
		mm.hostLoad.WithLabelValues("15m").Set(avg.Load15)
		mm.samples.WithLabelValues("load", "ok").Inc()
	} else {
		mm.samples.WithLabelValues("load", "error").Inc()
	}
}
