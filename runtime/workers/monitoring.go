package workers

import (
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"support-chat/observability"
	"support-chat/runtime"

	"github.com/shirou/gopsutil/process"
)

// MonitoringWorker periodically logs traffic counters, presence size and
// the server process cpu/ram usage.
type MonitoringWorker struct {
	log            *slog.Logger
	stats          *observability.Stats
	presence       *runtime.Presence
	metricInterval time.Duration
}

func NewMonitoringWorker(log *slog.Logger, stats *observability.Stats,
	presence *runtime.Presence, metricInterval time.Duration) *MonitoringWorker {
	return &MonitoringWorker{
		log:            log,
		stats:          stats,
		presence:       presence,
		metricInterval: metricInterval,
	}
}

func (w *MonitoringWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping monitoring")
			return nil
		case <-ticker.C:
			w.report(proc)
		}
	}
}

func (w *MonitoringWorker) report(proc *process.Process) {
	snapshot := w.stats.Snapshot()

	var memStats goruntime.MemStats
	goruntime.ReadMemStats(&memStats)

	attrs := []any{
		"online", w.presence.Count(),
		"connections_total", snapshot.Connections,
		"disconnections_total", snapshot.Disconnections,
		"messages_total", snapshot.Messages,
		"dropped_events_total", snapshot.DroppedEvents,
		"alloc_mem_mb", memStats.Alloc / (1 << 20),
		"num_gc", memStats.NumGC,
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	}
	if ram, err := proc.MemoryPercent(); err == nil {
		attrs = append(attrs, "ram_percent", ram)
	}
	for lang, count := range snapshot.Languages {
		attrs = append(attrs, "lang_"+lang, count)
	}

	w.log.Info("telemetry", attrs...)
}
