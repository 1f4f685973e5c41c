package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SigmaSync/internal/domain/models"
	drepo "SigmaSync/internal/domain/repository"
	"SigmaSync/internal/middleware"
	applogger "SigmaSync/pkg/logger"
)

type CoreConfig struct {
	Capacity       int
	BootstrapLimit int
	TopModels      int
	TrendWindow    int
	Transport      TransportConfig
}

// SynchronizationCore owns the store, the transport and the view
// derivation. Readers never block on acquisition.
type SynchronizationCore struct {
	cfg       CoreConfig
	store     *SnapshotStore
	validator *SnapshotValidator
	transport *TransportManager
	pull      drepo.PullSource
	sinks     *middleware.SinkPipeline
	logger    *applogger.Logger
	metrics   drepo.Metrics
	now       func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

type CoreOption func(*SynchronizationCore)

func WithLogger(l *applogger.Logger) CoreOption {
	return func(c *SynchronizationCore) { c.logger = l }
}

func WithMetrics(m drepo.Metrics) CoreOption {
	return func(c *SynchronizationCore) { c.metrics = m }
}

// WithSinks forwards every accepted snapshot to p.
func WithSinks(p *middleware.SinkPipeline) CoreOption {
	return func(c *SynchronizationCore) { c.sinks = p }
}

func NewSynchronizationCore(push drepo.PushStream, pull drepo.PullSource, cfg CoreConfig, opts ...CoreOption) *SynchronizationCore {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 500
	}
	if cfg.TopModels <= 0 {
		cfg.TopModels = 5
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = 20
	}
	if cfg.Transport.Backoff.Delay <= 0 {
		cfg.Transport.Backoff = FixedDelay(10 * time.Second)
	}

	c := &SynchronizationCore{
		cfg:       cfg,
		store:     NewSnapshotStore(cfg.Capacity),
		validator: NewSnapshotValidator(),
		pull:      pull,
		logger:    applogger.Nop(),
		metrics:   nopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.transport = NewTransportManager(push, pull, cfg.Transport, c.ingest,
		WithTransportLogger(c.logger),
		WithTransportMetrics(c.metrics),
	)
	return c
}

// Start runs the optional bootstrap fetch and then the transport in the
// background. It returns once acquisition is running.
func (c *SynchronizationCore) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	if c.store.Closed() {
		c.mu.Unlock()
		return fmt.Errorf("synchronization core closed")
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	if c.sinks != nil {
		c.sinks.Start(runCtx)
	}
	if c.cfg.BootstrapLimit > 0 {
		c.bootstrap(runCtx)
	}

	go func() {
		defer close(done)
		c.transport.Run(runCtx)
	}()
	c.logger.Info("synchronization core started",
		applogger.Int("capacity", c.cfg.Capacity),
		applogger.Int("bootstrap", c.cfg.BootstrapLimit))
	return nil
}

func (c *SynchronizationCore) bootstrap(ctx context.Context) {
	start := c.now()
	fctx := ctx
	if t := c.cfg.Transport.Pull.Timeout; t > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	body, err := c.pull.Fetch(fctx, c.cfg.BootstrapLimit)
	if err != nil {
		c.metrics.RecordError("transport")
		c.logger.Warn("bootstrap fetch failed",
			applogger.Error(fmt.Errorf("%w: bootstrap: %v", models.ErrTransport, err)))
		return
	}
	n := c.accept(models.SourceBootstrap, body)
	c.metrics.RecordLatency("bootstrap", c.now().Sub(start).Seconds())
	c.logger.Info("bootstrap loaded", applogger.Int("snapshots", n))
}

func (c *SynchronizationCore) ingest(_ context.Context, source models.Source, raw []byte) {
	c.accept(source, raw)
}

// accept validates a raw payload and appends every valid snapshot. Returns
// the number accepted. A push frame must be a single object; pull and
// bootstrap bodies may be arrays.
func (c *SynchronizationCore) accept(source models.Source, raw []byte) int {
	var snaps []models.Snapshot
	var errs []error
	if source == models.SourcePush {
		// one frame, one snapshot
		s, err := c.validator.Validate(raw)
		if err != nil {
			errs = []error{err}
		} else {
			snaps = []models.Snapshot{s}
		}
	} else {
		snaps, errs = c.validator.ValidateBatch(raw)
	}
	for _, err := range errs {
		c.metrics.RecordError("malformed")
		c.logger.Warn("snapshot rejected",
			applogger.String("source", string(source)),
			applogger.Error(err))
	}

	accepted := 0
	for _, s := range snaps {
		s.Source = source
		s.ReceivedAt = c.now()
		stored, ok := c.store.Put(s)
		if !ok {
			// torn down
			return accepted
		}
		accepted++
		c.metrics.RecordSnapshot(string(source))
		if c.sinks != nil {
			c.sinks.Submit(stored)
		}
	}
	if accepted > 0 {
		c.metrics.RecordBufferSize(c.store.Len())
	}
	return accepted
}

// Close stops acquisition. Store updates are blocked first so nothing lands
// after Close returns; then push is closed, pull cancelled and both waited
// for, and finally the sinks are flushed.
func (c *SynchronizationCore) Close(ctx context.Context) error {
	c.store.Close()

	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.sinks != nil {
		if err := c.sinks.Stop(ctx); err != nil {
			return err
		}
	}
	c.logger.Info("synchronization core stopped")
	return nil
}

// Latest is the most recently accepted snapshot.
func (c *SynchronizationCore) Latest() models.Optional[models.Snapshot] {
	return c.store.Latest()
}

// Window returns up to k most recent snapshots, oldest first.
func (c *SynchronizationCore) Window(k int) []models.Snapshot {
	return c.store.Window(k)
}

func (c *SynchronizationCore) Capacity() int { return c.store.Cap() }

func (c *SynchronizationCore) Classification() models.MarketView {
	return DeriveMarketView(c.store.Latest())
}

// Leaderboard ranks models over the full history and tracks the top ones
// across the trend window.
func (c *SynchronizationCore) Leaderboard() models.Leaderboard {
	return c.LeaderboardWith(c.cfg.TopModels, c.cfg.TrendWindow)
}

func (c *SynchronizationCore) LeaderboardWith(top, window int) models.Leaderboard {
	return DeriveLeaderboard(c.store.All(), top, window)
}

// Trend is the confidence trend of the top models.
func (c *SynchronizationCore) Trend() []models.TrendPoint {
	return c.Leaderboard().Trend
}

func (c *SynchronizationCore) ChannelState() models.ChannelHealth {
	return c.transport.Monitor().State()
}

// Ready reports whether at least one snapshot has been accepted.
func (c *SynchronizationCore) Ready() bool {
	return c.store.Len() > 0
}
