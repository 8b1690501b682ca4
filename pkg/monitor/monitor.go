// Package monitor aggregates per-tick timing history for the executive.
//
// Every completed tick contributes one (synchronization time,
// deliberation time) pair. The history is append-only; consumers read it
// whole. An optional sink receives each pair as it is appended, which is
// how tick data reaches the executive's SQLite log.
package monitor

import (
	"github.com/automenta/trex-autonomy/pkg/model"
	"github.com/automenta/trex-autonomy/pkg/stats"
)

// TickData is the timing record for one completed tick.
type TickData struct {
	Tick         model.Tick
	Sync         stats.Usage
	Deliberation stats.Usage
}

// Sink receives tick data as it is appended. Sink errors are the sink's
// problem; the monitor keeps its in-memory history regardless.
type Sink interface {
	RecordTickData(d TickData) error
}

// Monitor holds the append-only tick history. All calls happen on the
// orchestrator goroutine.
type Monitor struct {
	data []TickData
	sink Sink
}

// New builds an empty monitor.
func New() *Monitor { return &Monitor{} }

// SetSink attaches a sink for appended records. Pass nil to detach.
func (m *Monitor) SetSink(s Sink) { m.sink = s }

// AddTickData appends one tick's timings.
func (m *Monitor) AddTickData(d TickData) {
	m.data = append(m.data, d)
	if m.sink != nil {
		_ = m.sink.RecordTickData(d)
	}
}

// Data returns the full history, oldest first. The returned slice is a
// copy.
func (m *Monitor) Data() []TickData {
	out := make([]TickData, len(m.data))
	copy(out, m.data)
	return out
}
