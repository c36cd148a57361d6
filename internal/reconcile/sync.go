package reconcile

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"haulr-dispatch/internal/localstore"
	"haulr-dispatch/internal/models"
)

// syncState tracks one collection's upload pipeline. A collection is pending
// while dirty > acked; at most one worker runs per collection and a mutation
// during a run sets again so the worker sends the latest copy once more.
// ackedAt is the store sequence taken when the last upload was acknowledged.
type syncState struct {
	dirty   uint64
	acked   uint64
	ackedAt uint64
	running bool
	again   bool
}

func (s *Store) stateFor(name models.Collection) *syncState {
	st, ok := s.syncState[name]
	if !ok {
		st = &syncState{}
		s.syncState[name] = st
	}
	return st
}

// markDirty records an unacknowledged change and schedules its upload
func (s *Store) markDirty(ctx context.Context, h handle, seq uint64) {
	s.syncMu.Lock()
	st := s.stateFor(h.collection())
	if seq > st.dirty {
		st.dirty = seq
	}
	s.syncMu.Unlock()

	s.persistOutbox(ctx)
	s.scheduleSync(h)
}

func (s *Store) isPending(name models.Collection) bool {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	st, ok := s.syncState[name]
	return ok && st.dirty > st.acked
}

// ackedSince reports whether an upload of name was acknowledged after the
// store sequence reached since. A snapshot requested before that ack predates
// the acknowledged write.
func (s *Store) ackedSince(name models.Collection, since uint64) bool {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	st, ok := s.syncState[name]
	return ok && st.ackedAt > since
}

// markAcked must be called with syncMu held
func (s *Store) markAcked(st *syncState, seq uint64) {
	if seq > st.acked {
		st.acked = seq
	}
	st.ackedAt = s.nextSeq()
}

// pending lists the collections with unacknowledged changes, in manifest order
func (s *Store) pending() []models.Collection {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	out := []models.Collection{}
	for _, name := range models.SyncedCollections {
		if st, ok := s.syncState[name]; ok && st.dirty > st.acked {
			out = append(out, name)
		}
	}
	return out
}

func (s *Store) scheduleSync(h handle) {
	if s.remote == nil || !h.synced() {
		return
	}
	s.syncMu.Lock()
	st := s.stateFor(h.collection())
	if st.running {
		st.again = true
		s.syncMu.Unlock()
		return
	}
	st.running = true
	s.workers.Add(1)
	s.syncMu.Unlock()

	go s.runSync(h)
}

// runSync uploads the latest copy of one collection until no mutation arrived
// during the previous attempt. Failures are logged and left in the outbox; the
// optimistic local state is never rolled back.
func (s *Store) runSync(h handle) {
	defer s.workers.Done()
	name := h.collection()
	acked := false

	for {
		req, seq, ok := h.syncRequest()
		var err error
		if ok {
			ctx, cancel := context.WithTimeout(context.Background(), s.opts.SyncTimeout)
			s.inflight.Add(1)
			_, err = s.remote.Sync(ctx, req)
			s.inflight.Add(-1)
			cancel()
		}

		if err != nil {
			log.Printf("❌ Sync of %s failed, keeping local changes: %v", name, err)
			s.recordFailure(err)
		} else {
			if ok {
				log.Printf("✅ Synced %s", name)
				s.recordSuccess()
			}
			acked = true
		}

		s.syncMu.Lock()
		st := s.stateFor(name)
		if err == nil && ok {
			s.markAcked(st, seq)
		}
		if !ok && st.dirty > st.acked {
			// nothing to send for this collection, e.g. settings never created
			st.acked = st.dirty
		}
		again := st.again
		st.again = false
		if !again {
			st.running = false
		}
		s.syncMu.Unlock()

		if !again {
			break
		}
	}

	s.persistOutbox(context.Background())
	if acked {
		s.writeLastSync(context.Background())
		if !s.opts.DisableRefetch {
			s.Refresh()
		}
	}
}

// persistOutbox writes the pending set to the local store so a restart can
// push changes the backend never acknowledged.
func (s *Store) persistOutbox(ctx context.Context) {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	raw, err := localstore.Encode(s.pending())
	if err != nil {
		log.Printf("⚠️  Failed to encode outbox: %v", err)
		return
	}
	if err := s.local.Write(ctx, localstore.OutboxKey, raw); err != nil {
		log.Printf("⚠️  Failed to persist outbox: %v", err)
	}
}

func (s *Store) replayOutbox(ctx context.Context, raw string) {
	names, err := localstore.Decode[[]string](raw, nil)
	if err != nil {
		log.Printf("⚠️  Ignoring corrupt outbox: %v", err)
		return
	}
	replayed := 0
	for _, name := range names {
		c, ok := models.ParseCollection(name)
		if !ok || !c.IsSynced() {
			continue
		}
		h, ok := s.byName[c]
		if !ok {
			continue
		}
		seq := s.nextSeq()
		h.touch(seq)
		s.syncMu.Lock()
		s.stateFor(c).dirty = seq
		s.syncMu.Unlock()
		s.scheduleSync(h)
		replayed++
	}
	if replayed > 0 {
		log.Printf("🔄 Replaying %d unsynced collections from the last session", replayed)
	}
}

// resumePending restarts uploads for collections whose last attempt failed
func (s *Store) resumePending() {
	for _, name := range s.pending() {
		s.syncMu.Lock()
		running := s.stateFor(name).running
		s.syncMu.Unlock()
		if !running {
			s.scheduleSync(s.byName[name])
		}
	}
}

// PushAll uploads every synced collection in one request and waits for the
// result. Unlike background syncs the error is returned to the caller.
func (s *Store) PushAll(ctx context.Context) error {
	if s.remote == nil {
		return ErrNoRemote
	}

	var req models.SyncRequest
	seqs := make(map[models.Collection]uint64)
	for _, h := range s.handles {
		part, seq, ok := h.syncRequest()
		if !ok {
			continue
		}
		if err := mergeRequest(&req, part); err != nil {
			return err
		}
		seqs[h.collection()] = seq
	}

	s.inflight.Add(1)
	_, err := s.remote.Sync(ctx, req)
	s.inflight.Add(-1)
	if err != nil {
		s.recordFailure(err)
		return err
	}
	s.recordSuccess()

	s.syncMu.Lock()
	for name, seq := range seqs {
		s.markAcked(s.stateFor(name), seq)
	}
	s.syncMu.Unlock()

	s.persistOutbox(ctx)
	s.writeLastSync(ctx)
	log.Printf("✅ Pushed %d collections", len(seqs))
	return nil
}

// mergeRequest copies the collections present in part into req
func mergeRequest(req *models.SyncRequest, part models.SyncRequest) error {
	raw, err := part.Raw()
	if err != nil {
		return err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, req)
}

func (s *Store) writeLastSync(ctx context.Context) {
	s.statusMu.RLock()
	at := s.lastSync
	s.statusMu.RUnlock()
	if at.IsZero() {
		return
	}
	if err := s.local.Write(ctx, localstore.LastSyncKey, at.UTC().Format(time.RFC3339)); err != nil {
		log.Printf("⚠️  Failed to persist last sync time: %v", err)
	}
}
