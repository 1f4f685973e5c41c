package models

import "time"

// ChannelState is the push channel connectivity state.
type ChannelState string

const (
	StateDisconnected ChannelState = "disconnected"
	StateReconnecting ChannelState = "reconnecting"
	StateConnected    ChannelState = "connected"
)

// ChannelEvent drives ChannelState transitions.
type ChannelEvent string

const (
	EventAttempt ChannelEvent = "attempt"
	EventOpened  ChannelEvent = "opened"
	EventClosed  ChannelEvent = "closed"
	EventFailed  ChannelEvent = "failed"
)

// ActiveChannel names the transport currently delivering snapshots.
type ActiveChannel string

const (
	ChannelNone ActiveChannel = "none"
	ChannelPush ActiveChannel = "push"
	ChannelPull ActiveChannel = "pull"
)

// ChannelHealth is a read-only copy of the monitor state.
type ChannelHealth struct {
	State          ChannelState  `json:"state"`
	Retries        int           `json:"retries"`
	LastTransition time.Time     `json:"last_transition"`
	LastError      string        `json:"last_error,omitempty"`
	Active         ActiveChannel `json:"active"`
}
