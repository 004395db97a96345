// Package memory provides an in-process ImportHistoryStore for tests and
// for running the server without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/flighthours/internal/core"
)

// Store keeps snapshots in a slice ordered by import time.
type Store struct {
	mu        sync.RWMutex
	snapshots []core.ImportSnapshot
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Latest returns the newest snapshot, or nil if there is none.
func (s *Store) Latest(ctx context.Context) (*core.ImportSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return nil, nil
	}
	snap := s.snapshots[len(s.snapshots)-1]
	return &snap, nil
}

// Save appends a snapshot, keeping the slice sorted by timestamp.
func (s *Store) Save(ctx context.Context, snapshot core.ImportSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snapshot)
	sort.SliceStable(s.snapshots, func(i, j int) bool {
		return s.snapshots[i].Timestamp.Before(s.snapshots[j].Timestamp)
	})
	return nil
}

// List returns up to limit snapshots newest first, skipping offset.
func (s *Store) List(ctx context.Context, limit, offset int) ([]core.ImportSnapshot, error) {
	limit, offset = core.NormalizePage(limit, offset)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.ImportSnapshot, 0, min(limit, len(s.snapshots)))
	for i := len(s.snapshots) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.snapshots[i])
	}
	return out, nil
}

// Prune drops snapshots beyond the newest keep and those older than
// olderThan. The newest snapshot always survives.
func (s *Store) Prune(ctx context.Context, keep int, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.snapshots)
	if n == 0 {
		return 0, nil
	}

	kept := make([]core.ImportSnapshot, 0, n)
	for i, snap := range s.snapshots {
		rank := n - 1 - i // 0 = newest
		switch {
		case rank == 0:
		case keep > 0 && rank >= keep:
			continue
		case !olderThan.IsZero() && snap.Timestamp.Before(olderThan):
			continue
		}
		kept = append(kept, snap)
	}

	deleted := int64(n - len(kept))
	s.snapshots = kept
	return deleted, nil
}

// Len reports the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
