// Package observability aggregates broker counters and process stats for the
// debug inspector.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Monitor collects cheap atomic counters from the hot paths and merges them
// with Go runtime and OS process stats on demand.
type Monitor struct {
	log     *slog.Logger
	proc    *process.Process
	started time.Time

	sessionsOpened      uint64
	sessionsClosed      uint64
	messagesPersisted   uint64
	votesToggled        uint64
	anonymousBroadcasts uint64
	droppedEvents       uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process stats unavailable", "error", err)
	}
	return &Monitor{log: log, proc: proc, started: time.Now()}
}

func (m *Monitor) SessionOpened()      { atomic.AddUint64(&m.sessionsOpened, 1) }
func (m *Monitor) SessionClosed()      { atomic.AddUint64(&m.sessionsClosed, 1) }
func (m *Monitor) MessagePersisted()   { atomic.AddUint64(&m.messagesPersisted, 1) }
func (m *Monitor) VoteToggled()        { atomic.AddUint64(&m.votesToggled, 1) }
func (m *Monitor) AnonymousBroadcast() { atomic.AddUint64(&m.anonymousBroadcasts, 1) }
func (m *Monitor) EventDropped()       { atomic.AddUint64(&m.droppedEvents, 1) }

// Snapshot returns the current counters plus memory and CPU usage, shaped for
// the debug server's stats table.
func (m *Monitor) Snapshot() map[string]any {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := map[string]any{
		"Uptime":               time.Since(m.started).Round(time.Second).String(),
		"Sessions opened":      atomic.LoadUint64(&m.sessionsOpened),
		"Sessions closed":      atomic.LoadUint64(&m.sessionsClosed),
		"Messages persisted":   atomic.LoadUint64(&m.messagesPersisted),
		"Votes toggled":        atomic.LoadUint64(&m.votesToggled),
		"Anonymous broadcasts": atomic.LoadUint64(&m.anonymousBroadcasts),
		"Dropped events":       atomic.LoadUint64(&m.droppedEvents),
		"Goroutines":           runtime.NumGoroutine(),
		"Alloc MB":             memStats.Alloc / 1024 / 1024,
		"GC cycles":            memStats.NumGC,
	}

	if m.proc != nil {
		if cpu, err := m.proc.CPUPercent(); err == nil {
			stats["CPU %"] = cpu
		}
		if mem, err := m.proc.MemoryInfo(); err == nil {
			stats["RSS MB"] = mem.RSS / 1024 / 1024
		}
	}
	return stats
}
