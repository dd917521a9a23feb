package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWriteTimeout bounds one sink delivery when Config.WriteTimeout is zero.
const DefaultWriteTimeout = 5 * time.Second

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	WriteTimeout time.Duration
}

// Dispatcher asynchronously forwards audit events to a sink. It implements Sink itself so the
// engine does not care whether delivery is synchronous.
//
// Events outlive the request that produced them, so the sink sees a fresh context bounded by
// WriteTimeout rather than the caller's.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan Event
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
	dropped atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	cfg.BufferSize = max(cfg.BufferSize, 1)
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make(chan Event, cfg.BufferSize),
		stopped: make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.stopped)
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.WriteTimeout)
		d.sink.Emit(ctx, event)
		cancel()
	}
}

// Emit queues event. With DropIfFull a full buffer drops the event and counts it; otherwise
// Emit waits for room or for ctx to end.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and blocks until the buffer has drained into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

// Dropped returns the number of events that never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
