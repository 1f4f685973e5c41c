package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SigmaSync/internal/domain/models"
	drepo "SigmaSync/internal/domain/repository"
	"SigmaSync/internal/service/poller"
	applogger "SigmaSync/pkg/logger"
)

// IngestFunc receives every raw payload from either channel.
type IngestFunc func(ctx context.Context, source models.Source, raw []byte)

type TransportConfig struct {
	Pull    poller.Config
	Backoff BackoffPolicy
}

type pushEventKind int

const (
	pushOpened pushEventKind = iota
	pushOpenFailed
	pushClosed
)

type pushEvent struct {
	gen  uint64
	kind pushEventKind
	err  error
}

// TransportManager keeps one channel delivering snapshots: push when it is
// up, pull while it is not. Run owns the monitor, the reconnect timer and
// pull activation; connection goroutines only post events.
type TransportManager struct {
	push    drepo.PushStream
	poller  *poller.Poller
	monitor *ChannelHealthMonitor
	ingest  IngestFunc
	logger  *applogger.Logger
	metrics drepo.Metrics

	events chan pushEvent
	gen    uint64
	conns  sync.WaitGroup
}

type TransportOption func(*TransportManager)

func WithTransportLogger(l *applogger.Logger) TransportOption {
	return func(m *TransportManager) { m.logger = l }
}

func WithTransportMetrics(mt drepo.Metrics) TransportOption {
	return func(m *TransportManager) { m.metrics = mt }
}

func NewTransportManager(push drepo.PushStream, pull drepo.PullSource, cfg TransportConfig, ingest IngestFunc, opts ...TransportOption) *TransportManager {
	m := &TransportManager{
		push:    push,
		monitor: NewChannelHealthMonitor(cfg.Backoff),
		ingest:  ingest,
		logger:  applogger.Nop(),
		metrics: nopMetrics{},
		events:  make(chan pushEvent, 8),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.poller = poller.New(pull, cfg.Pull,
		func(ctx context.Context, body []byte) { m.ingest(ctx, models.SourcePull, body) },
		poller.WithLogger(m.logger),
		poller.WithErrorHandler(func(error) { m.metrics.RecordError("transport") }),
	)
	return m
}

// Monitor exposes the channel health state machine for reads.
func (m *TransportManager) Monitor() *ChannelHealthMonitor { return m.monitor }

// Run drives both channels until ctx is cancelled, then closes the push
// connection, stops pulling and waits for every acquisition goroutine.
func (m *TransportManager) Run(ctx context.Context) {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		m.poller.Stop()
		if err := m.push.Close(); err != nil {
			m.logger.Warn("push close failed", applogger.Error(err))
		}
		m.conns.Wait()
		m.poller.Wait()
		m.monitor.SetActive(models.ChannelNone)
	}()

	m.attempt(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-m.events:
			if ev.gen != m.gen {
				// left over from a connection we already gave up on
				continue
			}
			if m.apply(ctx, ev) == EffectFailover {
				if timer != nil {
					timer.Stop()
				}
				delay := m.monitor.NextDelay()
				m.logger.Info("push reconnect scheduled", applogger.Duration("delay_ms", delay))
				timer = time.NewTimer(delay)
				timerC = timer.C
			}

		case <-timerC:
			timer, timerC = nil, nil
			m.attempt(ctx)
		}
	}
}

func (m *TransportManager) apply(ctx context.Context, ev pushEvent) Effect {
	var event models.ChannelEvent
	switch ev.kind {
	case pushOpened:
		event = models.EventOpened
	case pushOpenFailed:
		event = models.EventFailed
	default:
		event = models.EventClosed
	}

	effect, err := m.monitor.Fire(event, ev.err)
	if err != nil {
		m.logger.Error("channel transition rejected", applogger.Error(err))
		m.metrics.RecordError("transition")
		return EffectNone
	}
	st := m.monitor.State()
	m.metrics.RecordChannelState(string(st.State))

	switch effect {
	case EffectDeactivatePull:
		m.poller.Stop()
		m.monitor.SetActive(models.ChannelPush)
		m.logger.Info("push channel connected, pull deactivated")
	case EffectFailover:
		if ev.err != nil {
			m.metrics.RecordError("transport")
		}
		m.logger.Warn("push channel down, pull active",
			applogger.String("event", string(event)),
			applogger.Int("retries", st.Retries),
			applogger.Error(ev.err))
		m.poller.Start(ctx)
		m.monitor.SetActive(models.ChannelPull)
	}
	return effect
}

func (m *TransportManager) attempt(ctx context.Context) {
	if _, err := m.monitor.Fire(models.EventAttempt, nil); err != nil {
		m.logger.Error("push attempt rejected", applogger.Error(err))
		return
	}
	m.metrics.RecordChannelState(string(models.StateReconnecting))
	m.gen++
	m.conns.Add(1)
	go m.connect(ctx, m.gen)
}

func (m *TransportManager) connect(ctx context.Context, gen uint64) {
	defer m.conns.Done()

	if err := m.push.Connect(ctx); err != nil {
		m.post(ctx, pushEvent{gen: gen, kind: pushOpenFailed, err: err})
		return
	}
	if !m.post(ctx, pushEvent{gen: gen, kind: pushOpened}) {
		return
	}

	frames, errs := m.push.Read(ctx)
	for raw := range frames {
		m.ingest(ctx, models.SourcePush, raw)
	}
	err := <-errs
	if errors.Is(err, context.Canceled) {
		return
	}
	m.post(ctx, pushEvent{gen: gen, kind: pushClosed, err: err})
}

func (m *TransportManager) post(ctx context.Context, ev pushEvent) bool {
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordSnapshot(string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordChannelState(string) {}
func (nopMetrics) RecordBufferSize(int) {}
func (nopMetrics) RecordLatency(string, float64) {}
