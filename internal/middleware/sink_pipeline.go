package middleware

import (
	"context"
	"sync"
	"time"

	"SigmaSync/internal/domain/models"
	domrepo "SigmaSync/internal/domain/repository"
	applogger "SigmaSync/pkg/logger"
)

// SinkPipeline sits between the snapshot store and the external sinks.
// Submit never blocks the caller; a single worker delivers to every sink in
// order, retrying failed deliveries with capped exponential backoff.
type SinkPipeline struct {
	sinks      []domrepo.SnapshotSink
	metrics    domrepo.Metrics
	logger     *applogger.Logger
	bufSize    int
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration

	bufCh   chan models.Snapshot
	stopCh  chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	stopped bool
}

type PipelineOption func(*SinkPipeline)

// WithBufferSize sets how many snapshots may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *SinkPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetries sets retry count and backoff bounds per delivery.
func WithRetries(n int, base, max time.Duration) PipelineOption {
	return func(p *SinkPipeline) {
		if n >= 0 {
			p.maxRetries = n
		}
		if base > 0 {
			p.backoff = base
		}
		if max > 0 {
			p.maxBackoff = max
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *SinkPipeline) { p.logger = l }
}

func NewSinkPipeline(sinks []domrepo.SnapshotSink, metrics domrepo.Metrics, opts ...PipelineOption) *SinkPipeline {
	p := &SinkPipeline{
		sinks:      sinks,
		metrics:    metrics,
		logger:     applogger.Nop(),
		bufSize:    1024,
		maxRetries: 3,
		backoff:    50 * time.Millisecond,
		maxBackoff: 2 * time.Second,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	p.bufCh = make(chan models.Snapshot, p.bufSize)
	return p
}

// Sinks returns the configured sink names.
func (p *SinkPipeline) Sinks() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}

// Start launches the delivery worker. No-op without sinks. Deliveries keep
// ctx's values but not its cancellation; the worker's context ends only
// after Stop has drained the buffer.
func (p *SinkPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped || len(p.sinks) == 0 {
		return
	}
	p.started = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	go p.run(runCtx)
}

// Submit queues s for delivery. Returns false when the pipeline is not
// running or the buffer is full; the snapshot is then dropped.
func (p *SinkPipeline) Submit(s models.Snapshot) bool {
	p.mu.Lock()
	running := p.started && !p.stopped
	p.mu.Unlock()
	if !running {
		return false
	}
	select {
	case p.bufCh <- s:
		return true
	default:
		p.metrics.RecordError("sink_buffer_full")
		return false
	}
}

// Stop ends the worker after it flushes what is buffered (one attempt each),
// then closes every sink.
func (p *SinkPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started, cancel := p.started, p.cancel
	p.mu.Unlock()

	if started {
		close(p.stopCh)
		select {
		case <-p.done:
			cancel()
		case <-ctx.Done():
			// abandon in-flight deliveries
			cancel()
			return ctx.Err()
		}
	}

	var firstErr error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			p.logger.Warn("sink close failed", applogger.String("sink", s.Name()), applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (p *SinkPipeline) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-p.stopCh:
			p.drain(ctx)
			return
		case s := <-p.bufCh:
			p.deliver(ctx, s, p.maxRetries)
		}
	}
}

func (p *SinkPipeline) drain(ctx context.Context) {
	for {
		select {
		case s := <-p.bufCh:
			p.deliver(ctx, s, 0)
		default:
			return
		}
	}
}

func (p *SinkPipeline) deliver(ctx context.Context, s models.Snapshot, retries int) {
	for _, sink := range p.sinks {
		backoff := p.backoff
		for attempt := 0; ; attempt++ {
			start := time.Now()
			err := sink.Deliver(ctx, s)
			if err == nil {
				p.metrics.RecordLatency("sink_"+sink.Name(), time.Since(start).Seconds())
				break
			}
			p.metrics.RecordError("sink_" + sink.Name())
			if attempt >= retries {
				p.logger.Warn("sink delivery dropped",
					applogger.String("sink", sink.Name()),
					applogger.Uint64("seq", s.Seq),
					applogger.Error(err))
				break
			}
			if !p.sleep(backoff) {
				break // stopping
			}
			if backoff < p.maxBackoff {
				backoff *= 2
				if backoff > p.maxBackoff {
					backoff = p.maxBackoff
				}
			}
		}
	}
}

func (p *SinkPipeline) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.stopCh:
		return false
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordSnapshot(string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordChannelState(string) {}
func (nopMetrics) RecordBufferSize(int) {}
func (nopMetrics) RecordLatency(string, float64) {}
