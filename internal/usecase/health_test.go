package usecase

import (
	"errors"
	"testing"
	"time"

	"SigmaSync/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorStartsDisconnected(t *testing.T) {
	m := NewChannelHealthMonitor(FixedDelay(10 * time.Second))
	h := m.State()
	assert.Equal(t, models.StateDisconnected, h.State)
	assert.Equal(t, models.ChannelNone, h.Active)
	assert.Zero(t, h.Retries)
}

func TestMonitorTransitions(t *testing.T) {
	cases := []struct {
		name   string
		events []models.ChannelEvent
		want   models.ChannelState
		effect Effect
	}{
		{"attempt", []models.ChannelEvent{models.EventAttempt}, models.StateReconnecting, EffectNone},
		{"open", []models.ChannelEvent{models.EventAttempt, models.EventOpened}, models.StateConnected, EffectDeactivatePull},
		{"open fails", []models.ChannelEvent{models.EventAttempt, models.EventFailed}, models.StateDisconnected, EffectFailover},
		{"drop", []models.ChannelEvent{models.EventAttempt, models.EventOpened, models.EventClosed}, models.StateDisconnected, EffectFailover},
		{"recover", []models.ChannelEvent{models.EventAttempt, models.EventFailed, models.EventAttempt, models.EventOpened}, models.StateConnected, EffectDeactivatePull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewChannelHealthMonitor(FixedDelay(time.Second))
			var last Effect
			for _, ev := range tc.events {
				eff, err := m.Fire(ev, nil)
				require.NoError(t, err)
				last = eff
			}
			assert.Equal(t, tc.want, m.State().State)
			assert.Equal(t, tc.effect, last)
		})
	}
}

func TestMonitorRejectsIllegalEvents(t *testing.T) {
	m := NewChannelHealthMonitor(FixedDelay(time.Second))
	for _, ev := range []models.ChannelEvent{models.EventOpened, models.EventClosed, models.EventFailed} {
		_, err := m.Fire(ev, nil)
		assert.True(t, errors.Is(err, models.ErrInvalidTransition), "event %s", ev)
	}
	assert.Equal(t, models.StateDisconnected, m.State().State)

	_, err := m.Fire(models.EventAttempt, nil)
	require.NoError(t, err)
	_, err = m.Fire(models.EventAttempt, nil)
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	assert.Equal(t, models.StateReconnecting, m.State().State)
}

func TestMonitorCountsRetriesAndKeepsLastError(t *testing.T) {
	m := NewChannelHealthMonitor(FixedDelay(time.Second))
	for i := 0; i < 3; i++ {
		_, _ = m.Fire(models.EventAttempt, nil)
		_, _ = m.Fire(models.EventFailed, errors.New("dial refused"))
	}
	h := m.State()
	assert.Equal(t, 3, h.Retries)
	assert.Equal(t, "dial refused", h.LastError)

	_, _ = m.Fire(models.EventAttempt, nil)
	_, _ = m.Fire(models.EventOpened, nil)
	h = m.State()
	assert.Zero(t, h.Retries)
	assert.Empty(t, h.LastError)
}

func TestMonitorFixedDelayNeverGrows(t *testing.T) {
	m := NewChannelHealthMonitor(FixedDelay(10 * time.Second))
	for i := 0; i < 20; i++ {
		_, _ = m.Fire(models.EventAttempt, nil)
		_, _ = m.Fire(models.EventFailed, nil)
		assert.Equal(t, 10*time.Second, m.NextDelay())
	}
}

func TestBackoffPolicyIsBounded(t *testing.T) {
	p := BackoffPolicy{Delay: time.Second, Multiplier: 2, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, p.Next(1))
	assert.Equal(t, 2*time.Second, p.Next(2))
	assert.Equal(t, 4*time.Second, p.Next(3))
	assert.Equal(t, 5*time.Second, p.Next(4))
	assert.Equal(t, 5*time.Second, p.Next(50))
}
