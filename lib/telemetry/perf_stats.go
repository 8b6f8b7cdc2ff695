package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const PerfStatsInterval = time.Second * 30

type perfStats struct {
	cpu        metric.Float64Gauge
	memory     metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newPerfStats() (perfStats, error) {
	meter := otel.Meter("baikalctl.perf_stats")
	cpuGauge, err := meter.Float64Gauge("cpu_usage", metric.WithUnit("%"))
	if err != nil {
		return perfStats{}, err
	}
	memoryGauge, err := meter.Int64Gauge("allocated_mb", metric.WithUnit("MB"))
	if err != nil {
		return perfStats{}, err
	}
	goroutineGauge, err := meter.Int64Gauge("goroutine_count")
	if err != nil {
		return perfStats{}, err
	}
	return perfStats{cpu: cpuGauge, memory: memoryGauge, goroutines: goroutineGauge}, nil
}

func (p perfStats) record(ctx context.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// interval 0 compares against the previous call
	cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
	if err == nil && len(cpuUsage) > 0 {
		p.cpu.Record(ctx, cpuUsage[0])
	} else if err != nil {
		slog.Debug("failed to read cpu usage", "err", err)
	}

	p.memory.Record(ctx, int64(memStats.Alloc/1_000_000))
	p.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
}

// InstrumentPerfStats records cpu, memory and goroutine gauges every interval
// until ctx is done. It must be called after Setup so the gauges bind to the
// exporting meter provider.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) error {
	stats, err := newPerfStats()
	if err != nil {
		return err
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats.record(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
