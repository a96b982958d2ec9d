package serialhost

import (
	"sync/atomic"
	"time"
)

// Metrics tracks serial host health statistics. All fields are driven
// by the reader loop, the write gate and the restart path.
type Metrics struct {
	// Session lifecycle
	Opens      atomic.Int64 // successful device opens (incl. reopens)
	OpenErrors atomic.Int64 // failed open attempts
	Restarts   atomic.Int64 // forced session closes from transport errors
	LastOpen   atomic.Int64 // unix timestamp of last successful open

	// Reader loop
	PollCycles    atomic.Int64 // completed locked poll sections
	Batches       atomic.Int64 // handler invocations
	BytesRead     atomic.Int64 // total bytes drained
	ReadErrors    atomic.Int64 // non-timeout read failures
	IdleEvents    atomic.Int64 // idle conditions reported
	HandlerErrors atomic.Int64 // panics recovered from the data handler
	LastData      atomic.Int64 // unix timestamp of last non-empty batch

	// Write gate
	Writes       atomic.Int64 // completed writes
	BytesWritten atomic.Int64 // total bytes written
	WriteErrors  atomic.Int64 // dropped writes
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Opens      int64
	OpenErrors int64
	Restarts   int64
	LastOpen   time.Time

	PollCycles    int64
	Batches       int64
	BytesRead     int64
	ReadErrors    int64
	IdleEvents    int64
	HandlerErrors int64
	LastData      time.Time

	Writes       int64
	BytesWritten int64
	WriteErrors  int64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Opens:      m.Opens.Load(),
		OpenErrors: m.OpenErrors.Load(),
		Restarts:   m.Restarts.Load(),
		LastOpen:   unixOrZero(m.LastOpen.Load()),

		PollCycles:    m.PollCycles.Load(),
		Batches:       m.Batches.Load(),
		BytesRead:     m.BytesRead.Load(),
		ReadErrors:    m.ReadErrors.Load(),
		IdleEvents:    m.IdleEvents.Load(),
		HandlerErrors: m.HandlerErrors.Load(),
		LastData:      unixOrZero(m.LastData.Load()),

		Writes:       m.Writes.Load(),
		BytesWritten: m.BytesWritten.Load(),
		WriteErrors:  m.WriteErrors.Load(),
	}
}

func unixOrZero(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
