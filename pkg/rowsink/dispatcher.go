package rowsink

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrDispatcherClosed = errors.New("rowsink: dispatcher closed")

type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
	Logger          Logger
	Metrics         *Metrics
}

// Dispatcher fans rows out to every sink from a bounded queue so slow
// destinations never hold up the capture request.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Row
	timeout time.Duration
	logger  Logger
	metrics *Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, sinks ...Sink) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Row, cfg.QueueSize),
		timeout: cfg.DeliveryTimeout,
		logger:  loggerOrNop(cfg.Logger),
		metrics: cfg.Metrics,
	}

	if len(sinks) == 0 {
		return d
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) Sinks() []Sink {
	return d.sinks
}

// Enqueue never blocks. It reports false when the row was dropped.
func (d *Dispatcher) Enqueue(row Row) bool {
	if len(d.sinks) == 0 {
		return true
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.drop()
		d.logger.Warn("Row sink dispatcher closed; dropping row", "correlation_id", row.CorrelationID)
		return false
	}

	select {
	case d.queue <- row:
		return true
	default:
		d.metrics.drop()
		d.logger.Warn("Row sink queue full; dropping row", "correlation_id", row.CorrelationID, "capacity", cap(d.queue))
		return false
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for row := range d.queue {
		for _, sink := range d.sinks {
			d.deliver(sink, row)
		}
	}
}

func (d *Dispatcher) deliver(sink Sink, row Row) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := sink.Append(ctx, row)
	d.metrics.delivery(sink.Name(), err)
	if err != nil {
		d.logger.Error("Failed to forward row to sink",
			"sink", sink.Name(),
			"correlation_id", row.CorrelationID,
			"source", row.Source,
			"error", err,
		)
	}
}

// Close stops intake, drains queued rows until ctx expires and closes every sink.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()

	var drainErr error
	select {
	case <-drained:
		d.logger.Info("Row sink dispatcher drained")
	case <-ctx.Done():
		drainErr = ctx.Err()
		d.logger.Warn("Row sink dispatcher drain interrupted", "pending", len(d.queue), "error", drainErr)
	}

	var errs []error
	if drainErr != nil {
		errs = append(errs, drainErr)
	}
	for _, sink := range d.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
