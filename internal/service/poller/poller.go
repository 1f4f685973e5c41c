package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SigmaSync/internal/domain/models"
	drepo "SigmaSync/internal/domain/repository"
	applogger "SigmaSync/pkg/logger"
)

// Handler receives each successful pull response body.
type Handler func(ctx context.Context, body []byte)

// ErrorHandler receives each failed pull; the poller keeps its schedule.
type ErrorHandler func(err error)

type Config struct {
	Interval time.Duration
	Limit    int
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: 15 * time.Second, Limit: 1, Timeout: 5 * time.Second}
}

// Poller is the pull fallback: one fetch on activation, then one per tick,
// until Stop. It can be started again after stopping.
type Poller struct {
	src     drepo.PullSource
	cfg     Config
	handle  Handler
	onError ErrorHandler
	logger  *applogger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Poller)

func WithErrorHandler(fn ErrorHandler) Option {
	return func(p *Poller) { p.onError = fn }
}

func WithLogger(l *applogger.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

func New(src drepo.PullSource, cfg Config, handle Handler, opts ...Option) *Poller {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	p := &Poller{src: src, cfg: cfg, handle: handle, logger: applogger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start activates polling. Returns false if it is already active.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(runCtx)
	return true
}

// Stop cancels the timer and any in-flight request without waiting.
// Returns false if polling was not active.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return false
	}
	p.cancel()
	p.cancel = nil
	return true
}

func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Wait blocks until every run started so far has returned.
func (p *Poller) Wait() { p.wg.Wait() }

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	p.logger.Info("pull channel active", applogger.Duration("interval_ms", p.cfg.Interval))
	p.poll(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pull channel stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	fctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := p.src.Fetch(fctx, p.cfg.Limit)
	if ctx.Err() != nil {
		// deactivated while the request was in flight
		return
	}
	if err != nil {
		err = fmt.Errorf("%w: pull: %v", models.ErrTransport, err)
		p.logger.Warn("pull failed", applogger.Error(err))
		if p.onError != nil {
			p.onError(err)
		}
		return
	}
	p.handle(ctx, body)
}
