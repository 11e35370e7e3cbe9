package engine

import (
	"log/slog"

	"stock_sim/internal/domain"
	"stock_sim/internal/infra"
)

// Subscriber fan-out. Each subscriber holds a single-slot mailbox; a
// full mailbox is drained before the new snapshot is offered, so a slow
// consumer only ever sees the most recent snapshot and the broadcaster
// never blocks.

// RegisterSubscriber creates a mailbox for clientID and immediately
// enqueues a snapshot, so a new subscriber never waits for the next
// tick. Registering an id again replaces the previous mailbox.
func (e *Engine) RegisterSubscriber(clientID string) <-chan domain.Snapshot {
	ch := make(chan domain.Snapshot, 1)

	e.subMu.Lock()
	_, replaced := e.subscribers[clientID]
	e.subscribers[clientID] = ch
	e.subMu.Unlock()

	if !replaced {
		infra.GlobalMetrics.IncrementSubscribers()
	}
	offer(ch, e.Snapshot())

	slog.Debug("subscriber registered", slog.String("client", clientID))
	return ch
}

// UnregisterSubscriber removes the mailbox. Deliveries after removal
// are not retried.
func (e *Engine) UnregisterSubscriber(clientID string) {
	e.subMu.Lock()
	_, ok := e.subscribers[clientID]
	delete(e.subscribers, clientID)
	e.subMu.Unlock()

	if ok {
		infra.GlobalMetrics.DecrementSubscribers()
		slog.Debug("subscriber unregistered", slog.String("client", clientID))
	}
}

// broadcast fans a snapshot out to every registered subscriber.
func (e *Engine) broadcast(snap domain.Snapshot) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for _, ch := range e.subscribers {
		offer(ch, snap)
	}
}

// offer implements drop-oldest: an unconsumed snapshot is discarded
// before the new one is enqueued. Both operations are non-blocking.
func offer(ch chan domain.Snapshot, snap domain.Snapshot) {
	select {
	case <-ch:
		infra.GlobalMetrics.RecordSnapshotDropped()
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
