package reconcile

import (
	"context"
	"log"
	"time"

	"haulr-dispatch/internal/models"
)

func (s *Store) poll(ctx context.Context) {
	defer close(s.pollDone)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.pull(ctx); err != nil && ctx.Err() == nil {
			log.Printf("⚠️  Poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.refreshCh:
		}
	}
}

// Refresh asks the poller for an immediate pull without waiting for it
func (s *Store) Refresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// PullAll fetches a snapshot now and applies it, returning any error
func (s *Store) PullAll(ctx context.Context) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	return s.pull(ctx)
}

// pull fetches the full snapshot and overwrites each synced collection with
// it. The sequence number read before the request marks the snapshot's age:
// a collection mutated after that point, still waiting for its upload to be
// acknowledged, or acknowledged after that point keeps its local copy.
func (s *Store) pull(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	since := s.seq.Load()

	s.inflight.Add(1)
	snap, err := s.remote.GetAll(ctx)
	s.inflight.Add(-1)
	if err != nil {
		s.recordFailure(err)
		return err
	}
	if s.closed.Load() {
		return nil
	}

	applied := s.applySnapshot(ctx, snap, since)
	s.recordSuccess()
	s.writeLastSync(ctx)
	if applied < len(models.SyncedCollections) {
		log.Printf("🔄 Applied %d/%d collections, kept local changes for the rest", applied, len(models.SyncedCollections))
	}

	s.resumePending()
	return nil
}

func (s *Store) applySnapshot(ctx context.Context, snap *models.Snapshot, since uint64) int {
	applied := 0
	for _, h := range s.handles {
		if !h.synced() {
			continue
		}
		if h.applySnapshot(ctx, snap, since) {
			applied++
		}
	}
	return applied
}

// Status is a point-in-time view of the sync pipeline
type Status struct {
	Loading             bool
	Syncing             bool
	LastSync            time.Time
	LastError           error
	ConsecutiveFailures int
	Pending             []models.Collection
}

// IsOffline reports whether the backend has failed repeatedly
func (st Status) IsOffline() bool {
	return st.ConsecutiveFailures >= offlineAfter
}

// Status returns the current sync status
func (s *Store) Status() Status {
	s.statusMu.RLock()
	st := Status{
		LastSync:            s.lastSync,
		LastError:           s.lastErr,
		ConsecutiveFailures: s.failures,
	}
	s.statusMu.RUnlock()

	st.Loading = s.loading.Load()
	st.Syncing = s.inflight.Load() > 0
	st.Pending = s.pending()
	return st
}

func (s *Store) recordSuccess() {
	s.statusMu.Lock()
	s.lastSync = time.Now()
	s.lastErr = nil
	s.failures = 0
	s.statusMu.Unlock()
}

func (s *Store) recordFailure(err error) {
	s.statusMu.Lock()
	s.lastErr = err
	s.failures++
	s.statusMu.Unlock()
}
