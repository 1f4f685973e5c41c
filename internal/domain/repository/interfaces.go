package repository

import (
	"context"

	"SigmaSync/internal/domain/models"
)

// PushStream is the persistent streaming channel to the upstream.
type PushStream interface {
	Connect(ctx context.Context) error
	// Read delivers raw frames until the connection drops; the error channel
	// receives exactly one value when it does.
	Read(ctx context.Context) (<-chan []byte, <-chan error)
	Close() error
	IsConnected() bool
}

// PullSource fetches recent snapshots on demand. The body is either one
// snapshot object or an array of them, most recent last.
type PullSource interface {
	Fetch(ctx context.Context, limit int) ([]byte, error)
}

// SnapshotSink receives every accepted snapshot outside the core.
type SnapshotSink interface {
	Name() string
	Deliver(ctx context.Context, s models.Snapshot) error
	Close() error
}

type Metrics interface {
	RecordSnapshot(source string)
	RecordError(kind string)
	RecordChannelState(state string)
	RecordBufferSize(n int)
	RecordLatency(op string, seconds float64)
}
