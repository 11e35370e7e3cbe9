package infra

import "sync/atomic"

// Metrics provides lightweight observability without external
// dependencies. Uses atomic operations for thread-safety.
type Metrics struct {
	ticksProcessed   atomic.Uint64
	tradesExecuted   atomic.Uint64
	tradesRejected   atomic.Uint64
	snapshotsDropped atomic.Uint64

	activeSubscribers atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick counts one completed engine tick.
func (m *Metrics) RecordTick() {
	m.ticksProcessed.Add(1)
}

// RecordTradeExecuted counts one successfully executed trade.
func (m *Metrics) RecordTradeExecuted() {
	m.tradesExecuted.Add(1)
}

// RecordTradeRejected counts one rejected trade request.
func (m *Metrics) RecordTradeRejected() {
	m.tradesRejected.Add(1)
}

// RecordSnapshotDropped counts one snapshot overwritten in a slow
// subscriber's mailbox.
func (m *Metrics) RecordSnapshotDropped() {
	m.snapshotsDropped.Add(1)
}

// IncrementSubscribers increments the active subscriber gauge.
func (m *Metrics) IncrementSubscribers() {
	m.activeSubscribers.Add(1)
}

// DecrementSubscribers decrements the active subscriber gauge.
func (m *Metrics) DecrementSubscribers() {
	m.activeSubscribers.Add(-1)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	TicksProcessed    uint64 `json:"ticks_processed"`
	TradesExecuted    uint64 `json:"trades_executed"`
	TradesRejected    uint64 `json:"trades_rejected"`
	SnapshotsDropped  uint64 `json:"snapshots_dropped"`
	ActiveSubscribers int32  `json:"active_subscribers"`
}

// Snapshot returns a consistent-enough copy for diagnostics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TicksProcessed:    m.ticksProcessed.Load(),
		TradesExecuted:    m.tradesExecuted.Load(),
		TradesRejected:    m.tradesRejected.Load(),
		SnapshotsDropped:  m.snapshotsDropped.Load(),
		ActiveSubscribers: m.activeSubscribers.Load(),
	}
}
