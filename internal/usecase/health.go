package usecase

import (
	"fmt"
	"math"
	"sync"
	"time"

	"SigmaSync/internal/domain/models"
)

// Effect is the side effect a transition asks the transport to perform.
type Effect int

const (
	EffectNone Effect = iota
	// EffectDeactivatePull: push is up, cancel the pull timer.
	EffectDeactivatePull
	// EffectFailover: activate pull and schedule the next push attempt.
	EffectFailover
)

func (e Effect) String() string {
	switch e {
	case EffectDeactivatePull:
		return "deactivate_pull"
	case EffectFailover:
		return "failover"
	default:
		return "none"
	}
}

type transitionKey struct {
	from  models.ChannelState
	event models.ChannelEvent
}

type transition struct {
	to     models.ChannelState
	effect Effect
}

// every legal move; anything missing is rejected
var transitions = map[transitionKey]transition{
	{models.StateDisconnected, models.EventAttempt}: {models.StateReconnecting, EffectNone},
	{models.StateReconnecting, models.EventOpened}:  {models.StateConnected, EffectDeactivatePull},
	{models.StateConnected, models.EventClosed}:     {models.StateDisconnected, EffectFailover},
	{models.StateReconnecting, models.EventFailed}:  {models.StateDisconnected, EffectFailover},
}

// BackoffPolicy computes the delay before the next push attempt.
// With Multiplier <= 1 the delay is fixed.
type BackoffPolicy struct {
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// FixedDelay is the reconnect-forever policy with a constant delay.
func FixedDelay(d time.Duration) BackoffPolicy {
	return BackoffPolicy{Delay: d, Multiplier: 1}
}

// Next returns the delay after `failures` consecutive failed attempts (>= 1).
func (p BackoffPolicy) Next(failures int) time.Duration {
	if p.Multiplier <= 1 || failures <= 1 {
		return p.Delay
	}
	d := float64(p.Delay) * math.Pow(p.Multiplier, float64(failures-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// ChannelHealthMonitor is the push channel state machine. It has no
// terminal state: Disconnected always leads back to a new attempt.
type ChannelHealthMonitor struct {
	mu       sync.RWMutex
	state    models.ChannelState
	retries  int
	failures int
	changed  time.Time
	lastErr  string
	active   models.ActiveChannel
	policy   BackoffPolicy
	now      func() time.Time
}

func NewChannelHealthMonitor(policy BackoffPolicy) *ChannelHealthMonitor {
	m := &ChannelHealthMonitor{
		state:  models.StateDisconnected,
		active: models.ChannelNone,
		policy: policy,
		now:    time.Now,
	}
	m.changed = m.now()
	return m
}

// Fire applies event and returns the side effect to perform. Illegal events
// leave the state untouched and return ErrInvalidTransition.
func (m *ChannelHealthMonitor) Fire(event models.ChannelEvent, cause error) (Effect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := transitions[transitionKey{m.state, event}]
	if !ok {
		return EffectNone, fmt.Errorf("%w: %s on %s", models.ErrInvalidTransition, event, m.state)
	}

	switch event {
	case models.EventAttempt:
		m.retries++
	case models.EventOpened:
		m.retries = 0
		m.failures = 0
		m.lastErr = ""
	case models.EventClosed, models.EventFailed:
		m.failures++
		if cause != nil {
			m.lastErr = cause.Error()
		}
	}

	m.state = t.to
	m.changed = m.now()
	return t.effect, nil
}

// NextDelay is the wait before the next attempt under the backoff policy.
func (m *ChannelHealthMonitor) NextDelay() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy.Next(m.failures)
}

// SetActive records which channel currently delivers snapshots.
func (m *ChannelHealthMonitor) SetActive(c models.ActiveChannel) {
	m.mu.Lock()
	m.active = c
	m.mu.Unlock()
}

// State returns a copy of the current health.
func (m *ChannelHealthMonitor) State() models.ChannelHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.ChannelHealth{
		State:          m.state,
		Retries:        m.retries,
		LastTransition: m.changed,
		LastError:      m.lastErr,
		Active:         m.active,
	}
}
