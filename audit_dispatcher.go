package sessiongate

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves events off the request path onto one sink goroutine.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	queue      chan AuditEvent
	worker     sync.WaitGroup

	// stop is closed first by Close to release senders blocked on a full queue.
	stop     chan struct{}
	stopOnce sync.Once

	// mu guards closed. Emit holds the read lock while it sends so Close
	// never closes queue under a sender.
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// newAuditDispatcher returns nil when auditing is disabled; a nil dispatcher
// accepts and ignores every call.
func newAuditDispatcher(cfg AuditConfig) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
	}
	d.worker.Add(1)
	go func() {
		defer d.worker.Done()
		for event := range d.queue {
			d.sink.Emit(context.Background(), event)
		}
	}()
	return d
}

// Emit queues event. With DropIfFull it never blocks; otherwise it waits
// for room until ctx is done or the dispatcher closes. Either way a
// discarded event is counted.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
		d.dropped.Add(1)
	}
}

// Close stops accepting events and returns once every queued event has
// reached the sink. It is safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() { close(d.stop) })
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.worker.Wait()
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
