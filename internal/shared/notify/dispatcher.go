package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink delivers one event to an external channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Dispatcher fans queued events out to every registered sink on a fixed pool
// of workers. A full queue drops the event with a warning; commands never wait.
type Dispatcher struct {
	mu      sync.RWMutex
	sinks   map[string]Sink
	queue   chan Event
	logger  *zap.Logger
	timeout time.Duration
	workers int

	wg     sync.WaitGroup
	qmu    sync.RWMutex
	closed bool
}

func NewDispatcher(logger *zap.Logger, queueSize, workers int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		sinks:   make(map[string]Sink),
		queue:   make(chan Event, queueSize),
		logger:  logger,
		timeout: timeout,
		workers: workers,
	}
}

// Register adds or replaces a sink by name.
func (d *Dispatcher) Register(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[s.Name()] = s
	d.logger.Info("notification sink registered", zap.String("sink", s.Name()), zap.Int("total", len(d.sinks)))
}

func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sinks, name)
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Publish enqueues events; it never blocks.
func (d *Dispatcher) Publish(events ...Event) {
	d.qmu.RLock()
	defer d.qmu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping events", zap.Int("count", len(events)))
		return
	}
	for _, e := range events {
		select {
		case d.queue <- e:
		default:
			d.logger.Warn("notification queue full, dropping event",
				zap.String("type", string(e.Type)), zap.String("subject", e.Subject))
		}
	}
}

// Close stops intake and waits for queued events until ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.qmu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.qmu.Unlock()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	d.mu.RLock()
	sinks := make([]Sink, 0, len(d.sinks))
	for _, s := range d.sinks {
		sinks = append(sinks, s)
	}
	d.mu.RUnlock()

	for _, s := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := s.Deliver(ctx, e); err != nil {
			d.logger.Error("notification delivery failed",
				zap.String("sink", s.Name()),
				zap.String("type", string(e.Type)),
				zap.String("subject", e.Subject),
				zap.Error(err))
		}
		cancel()
	}
}
