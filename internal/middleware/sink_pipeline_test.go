package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SigmaSync/internal/domain/models"
	domrepo "SigmaSync/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name      string
	fails     int           // fail this many deliveries first
	hold      chan struct{} // deliveries wait until closed
	honourCtx bool

	mu     sync.Mutex
	seqs   []uint64
	tries  int
	closed bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, snap models.Snapshot) error {
	if s.hold != nil {
		<-s.hold
	}
	if s.honourCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tries++
	if s.fails > 0 {
		s.fails--
		return errors.New("sink unavailable")
	}
	s.seqs = append(s.seqs, snap.Seq)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) delivered() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.seqs...)
}

type errCounter struct {
	mu     sync.Mutex
	errors map[string]int
}

func (c *errCounter) RecordSnapshot(string) {}
func (c *errCounter) RecordChannelState(string) {}
func (c *errCounter) RecordBufferSize(int) {}
func (c *errCounter) RecordLatency(string, float64) {}
func (c *errCounter) RecordError(kind string) {
	c.mu.Lock()
	if c.errors == nil {
		c.errors = map[string]int{}
	}
	c.errors[kind]++
	c.mu.Unlock()
}

func (c *errCounter) count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors[kind]
}

func TestPipelineDeliversToEverySinkInOrder(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	p := NewSinkPipeline([]domrepo.SnapshotSink{a, b}, nil)
	p.Start(context.Background())

	for i := 1; i <= 5; i++ {
		require.True(t, p.Submit(models.Snapshot{Seq: uint64(i)}))
	}
	require.Eventually(t, func() bool { return len(b.delivered()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, a.delivered())

	require.NoError(t, p.Stop(context.Background()))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.False(t, p.Submit(models.Snapshot{Seq: 6}))
}

func TestPipelineRetriesWithBackoff(t *testing.T) {
	flaky := &recordingSink{name: "flaky", fails: 2}
	m := &errCounter{}
	p := NewSinkPipeline([]domrepo.SnapshotSink{flaky}, m, WithRetries(3, time.Millisecond, 4*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop(context.Background())

	p.Submit(models.Snapshot{Seq: 7})
	require.Eventually(t, func() bool { return len(flaky.delivered()) == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, 2, m.count("sink_flaky"))
}

func TestPipelineDropsAfterRetriesExhausted(t *testing.T) {
	dead := &recordingSink{name: "dead", fails: 100}
	ok := &recordingSink{name: "ok"}
	p := NewSinkPipeline([]domrepo.SnapshotSink{dead, ok}, nil, WithRetries(1, time.Millisecond, time.Millisecond))
	p.Start(context.Background())
	defer p.Stop(context.Background())

	p.Submit(models.Snapshot{Seq: 1})
	require.Eventually(t, func() bool { return len(ok.delivered()) == 1 }, time.Second, 2*time.Millisecond)
	dead.mu.Lock()
	assert.Equal(t, 2, dead.tries)
	dead.mu.Unlock()
}

func TestPipelineSubmitNeverBlocks(t *testing.T) {
	m := &errCounter{}
	p := NewSinkPipeline([]domrepo.SnapshotSink{&recordingSink{name: "x"}}, m, WithBufferSize(2))

	assert.False(t, p.Submit(models.Snapshot{}), "not started")

	// fill the buffer without a worker draining it
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	assert.True(t, p.Submit(models.Snapshot{Seq: 1}))
	assert.True(t, p.Submit(models.Snapshot{Seq: 2}))
	assert.False(t, p.Submit(models.Snapshot{Seq: 3}))
	assert.Equal(t, 1, m.count("sink_buffer_full"))
}

func TestPipelineWithoutSinksStaysIdle(t *testing.T) {
	p := NewSinkPipeline(nil, nil)
	p.Start(context.Background())
	assert.False(t, p.Submit(models.Snapshot{}))
	assert.NoError(t, p.Stop(context.Background()))
	assert.Empty(t, p.Sinks())
}

func TestPipelineStopFlushesAfterStartContextCancelled(t *testing.T) {
	hold := make(chan struct{})
	sink := &recordingSink{name: "ctx", hold: hold, honourCtx: true}
	errs := &errCounter{}
	p := NewSinkPipeline([]domrepo.SnapshotSink{sink}, errs, WithRetries(0, time.Millisecond, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	for i := uint64(1); i <= 5; i++ {
		require.True(t, p.Submit(models.Snapshot{Seq: i}))
	}
	cancel()
	close(hold)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, p.Stop(stopCtx))

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, sink.delivered())
	assert.Zero(t, errs.count("sink_ctx"))
}
