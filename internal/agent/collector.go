package agent

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/idudko/mendel/internal/model"
)

// Collector samples runtime and host gauges between reports.
type Collector struct {
	mu        sync.Mutex
	gauges    map[string]float64
	pollCount int64
}

func NewCollector() *Collector {
	return &Collector{gauges: make(map[string]float64)}
}

// runtimeGauges are the runtime.MemStats fields reported by name.
var runtimeGauges = []struct {
	name string
	read func(*runtime.MemStats) float64
}{
	{"Alloc", func(m *runtime.MemStats) float64 { return float64(m.Alloc) }},
	{"BuckHashSys", func(m *runtime.MemStats) float64 { return float64(m.BuckHashSys) }},
	{"Frees", func(m *runtime.MemStats) float64 { return float64(m.Frees) }},
	{"GCCPUFraction", func(m *runtime.MemStats) float64 { return m.GCCPUFraction }},
	{"GCSys", func(m *runtime.MemStats) float64 { return float64(m.GCSys) }},
	{"HeapAlloc", func(m *runtime.MemStats) float64 { return float64(m.HeapAlloc) }},
	{"HeapIdle", func(m *runtime.MemStats) float64 { return float64(m.HeapIdle) }},
	{"HeapInuse", func(m *runtime.MemStats) float64 { return float64(m.HeapInuse) }},
	{"HeapObjects", func(m *runtime.MemStats) float64 { return float64(m.HeapObjects) }},
	{"HeapReleased", func(m *runtime.MemStats) float64 { return float64(m.HeapReleased) }},
	{"HeapSys", func(m *runtime.MemStats) float64 { return float64(m.HeapSys) }},
	{"LastGC", func(m *runtime.MemStats) float64 { return float64(m.LastGC) }},
	{"Mallocs", func(m *runtime.MemStats) float64 { return float64(m.Mallocs) }},
	{"NextGC", func(m *runtime.MemStats) float64 { return float64(m.NextGC) }},
	{"NumGC", func(m *runtime.MemStats) float64 { return float64(m.NumGC) }},
	{"PauseTotalNs", func(m *runtime.MemStats) float64 { return float64(m.PauseTotalNs) }},
	{"StackInuse", func(m *runtime.MemStats) float64 { return float64(m.StackInuse) }},
	{"Sys", func(m *runtime.MemStats) float64 { return float64(m.Sys) }},
	{"TotalAlloc", func(m *runtime.MemStats) float64 { return float64(m.TotalAlloc) }},
}

// Collect samples the Go runtime memory statistics.
func (c *Collector) Collect() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, g := range runtimeGauges {
		c.gauges[g.name] = g.read(&ms)
	}
	c.gauges["RandomValue"] = rand.Float64()
	c.pollCount++
	c.gauges["PollCount"] = float64(c.pollCount)
}

// CollectSystem samples host memory and per-CPU utilization.
func (c *Collector) CollectSystem(ctx context.Context) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read memory stats: %w", err)
	}
	percents, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return fmt.Errorf("failed to read cpu stats: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gauges["TotalMemory"] = float64(vm.Total)
	c.gauges["FreeMemory"] = float64(vm.Free)
	for i, p := range percents {
		c.gauges[fmt.Sprintf("CPUutilization%d", i+1)] = p
	}
	return nil
}

// Snapshot returns a copy of the latest samples.
func (c *Collector) Snapshot() model.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(model.Report(c.gauges))
}
