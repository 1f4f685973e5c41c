package usecase

import (
	"sync"

	"SigmaSync/internal/domain/models"
)

// SnapshotStore is the bounded arrival-ordered history plus the latest pointer.
// It is the only mutable state shared between acquisition and readers.
type SnapshotStore struct {
	mu     sync.RWMutex
	buf    []models.Snapshot
	head   int // index of the oldest entry
	size   int
	seq    uint64
	closed bool
}

// NewSnapshotStore creates a store holding at most capacity snapshots.
func NewSnapshotStore(capacity int) *SnapshotStore {
	if capacity < 1 {
		capacity = 1
	}
	return &SnapshotStore{buf: make([]models.Snapshot, capacity)}
}

// Append inserts s at the tail, evicting the oldest entry when full.
// Last writer wins by arrival; no reordering or dedupe. Returns false once
// the store is closed.
func (s *SnapshotStore) Append(snap models.Snapshot) bool {
	_, ok := s.Put(snap)
	return ok
}

// Put is Append returning the stored copy with its sequence number.
func (s *SnapshotStore) Put(snap models.Snapshot) (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.Snapshot{}, false
	}

	s.seq++
	snap.Seq = s.seq

	capacity := len(s.buf)
	if s.size < capacity {
		s.buf[(s.head+s.size)%capacity] = snap
		s.size++
		return snap, true
	}
	s.buf[s.head] = snap
	s.head = (s.head + 1) % capacity
	return snap, true
}

// Latest returns the most recently appended snapshot, Unknown before the first.
func (s *SnapshotStore) Latest() models.Optional[models.Snapshot] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.size == 0 {
		return models.Unknown[models.Snapshot]()
	}
	return models.Known(s.buf[(s.head+s.size-1)%len(s.buf)])
}

// Window returns the most recent k snapshots in arrival order.
func (s *SnapshotStore) Window(k int) []models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowLocked(k)
}

// All returns the whole retained history in arrival order.
func (s *SnapshotStore) All() []models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowLocked(s.size)
}

func (s *SnapshotStore) windowLocked(k int) []models.Snapshot {
	if k > s.size {
		k = s.size
	}
	if k <= 0 {
		return []models.Snapshot{}
	}
	out := make([]models.Snapshot, k)
	start := s.head + s.size - k
	for i := 0; i < k; i++ {
		out[i] = s.buf[(start+i)%len(s.buf)]
	}
	return out
}

func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *SnapshotStore) Cap() int { return len(s.buf) }

// Close rejects every later Append. Reads keep working.
func (s *SnapshotStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *SnapshotStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
