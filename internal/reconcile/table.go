package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"

	"haulr-dispatch/internal/localstore"
	"haulr-dispatch/internal/models"
)

// Table owns the in-memory copy of one collection. Every mutation replaces the
// whole slice, persists it locally and schedules a sync of this collection only.
// Mutations of one table are serialized; tables never block each other.
type Table[T models.Entity] struct {
	store    *Store
	name     models.Collection
	seed     func() []T
	fromSnap func(*models.Snapshot) []T
	toReq    func(*models.SyncRequest, []T)

	mu    sync.RWMutex
	items []T
	seq   uint64 // store sequence number of the last local mutation
}

// handle is the type-erased view the store uses for load, sync and apply
type handle interface {
	collection() models.Collection
	synced() bool
	decode(raw string) error
	touch(seq uint64)
	syncRequest() (models.SyncRequest, uint64, bool)
	applySnapshot(ctx context.Context, snap *models.Snapshot, since uint64) bool
}

func register[T models.Entity](
	s *Store,
	name models.Collection,
	seed func() []T,
	fromSnap func(*models.Snapshot) []T,
	toReq func(*models.SyncRequest, []T),
) *Table[T] {
	t := &Table[T]{
		store:    s,
		name:     name,
		seed:     seed,
		fromSnap: fromSnap,
		toReq:    toReq,
		items:    []T{},
	}
	s.handles = append(s.handles, t)
	s.byName[name] = t
	return t
}

// Name returns the collection key
func (t *Table[T]) Name() models.Collection { return t.name }

// All returns a copy of every record in stored order
func (t *Table[T]) All() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return clone(t.items)
}

// Len returns the number of records
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Find resolves id by linear scan. Dangling ids return ok == false.
func (t *Table[T]) Find(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, item := range t.items {
		if item.GetID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns the records for which keep returns true
func (t *Table[T]) Filter(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := []T{}
	for _, item := range t.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Add appends item. The id must be set and unused.
func (t *Table[T]) Add(ctx context.Context, item T) error {
	if item.GetID() == "" {
		return models.Invalid("%s: id is required", t.name)
	}
	if err := validate(item); err != nil {
		return err
	}
	return t.Mutate(ctx, func(items []T) ([]T, error) {
		for _, existing := range items {
			if existing.GetID() == item.GetID() {
				return nil, models.Invalid("%s: duplicate id %q", t.name, item.GetID())
			}
		}
		return append(items, item), nil
	})
}

// Update applies fn to a copy of the record with id. When fn returns an error
// nothing changes.
func (t *Table[T]) Update(ctx context.Context, id string, fn func(*T) error) error {
	return t.Mutate(ctx, func(items []T) ([]T, error) {
		for i := range items {
			if items[i].GetID() != id {
				continue
			}
			updated := items[i]
			if err := fn(&updated); err != nil {
				return nil, err
			}
			if updated.GetID() != id {
				return nil, models.Invalid("%s: id cannot change", t.name)
			}
			if err := validate(updated); err != nil {
				return nil, err
			}
			items[i] = updated
			return items, nil
		}
		return nil, fmt.Errorf("%s %s: %w", t.name, id, models.ErrNotFound)
	})
}

// Delete removes the record with id
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	return t.Mutate(ctx, func(items []T) ([]T, error) {
		out := make([]T, 0, len(items))
		for _, item := range items {
			if item.GetID() != id {
				out = append(out, item)
			}
		}
		if len(out) == len(items) {
			return nil, fmt.Errorf("%s %s: %w", t.name, id, models.ErrNotFound)
		}
		return out, nil
	})
}

// Replace sets the whole collection
func (t *Table[T]) Replace(ctx context.Context, items []T) error {
	for _, item := range items {
		if item.GetID() == "" {
			return models.Invalid("%s: id is required", t.name)
		}
		if err := validate(item); err != nil {
			return err
		}
	}
	return t.Mutate(ctx, func([]T) ([]T, error) {
		return clone(items), nil
	})
}

// Mutate is the read-modify-write primitive behind every change. fn receives a
// private copy of the current slice and returns the new one; an error leaves
// the collection untouched.
func (t *Table[T]) Mutate(ctx context.Context, fn func([]T) ([]T, error)) error {
	if t.store.closed.Load() {
		return ErrClosed
	}

	t.mu.Lock()
	next, err := fn(clone(t.items))
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if next == nil {
		next = []T{}
	}
	raw, err := localstore.Encode(next)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("encode %s: %w", t.name, err)
	}
	t.items = next
	seq := t.store.nextSeq()
	t.seq = seq
	if err := t.store.local.Write(ctx, string(t.name), raw); err != nil {
		// memory stays ahead of disk; the next write or snapshot persists it
		log.Printf("⚠️  failed to persist %s locally: %v", t.name, err)
	}
	t.mu.Unlock()

	if t.synced() {
		t.store.markDirty(ctx, t, seq)
	}
	return nil
}

func (t *Table[T]) collection() models.Collection { return t.name }

func (t *Table[T]) synced() bool { return t.toReq != nil && t.name.IsSynced() }

// fallback is sample data for master-data collections and empty for the rest
func (t *Table[T]) fallback() []T {
	if t.seed != nil && t.name.IsMasterData() {
		return t.seed()
	}
	return []T{}
}

func (t *Table[T]) decode(raw string) error {
	items, err := localstore.Decode(raw, t.fallback())
	if items == nil {
		items = t.fallback()
	}
	t.mu.Lock()
	t.items = items
	t.mu.Unlock()
	return err
}

func (t *Table[T]) touch(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq > t.seq {
		t.seq = seq
	}
}

func (t *Table[T]) syncRequest() (models.SyncRequest, uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var req models.SyncRequest
	if !t.synced() {
		return req, 0, false
	}
	t.toReq(&req, clone(t.items))
	return req, t.seq, len(req.Collections()) > 0
}

// applySnapshot overwrites the collection with the snapshot copy. Unless the
// stale guard is disabled, a collection keeps its local copy when it has
// unacknowledged changes, a mutation newer than since, or an upload
// acknowledged after since.
func (t *Table[T]) applySnapshot(ctx context.Context, snap *models.Snapshot, since uint64) bool {
	if t.fromSnap == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.store.guardStale() && (t.seq > since || t.store.isPending(t.name) || t.store.ackedSince(t.name, since)) {
		return false
	}

	items := clone(t.fromSnap(snap))
	if items == nil {
		items = []T{}
	}
	raw, err := localstore.Encode(items)
	if err != nil {
		log.Printf("⚠️  failed to encode %s from snapshot: %v", t.name, err)
		return false
	}
	t.items = items
	if err := t.store.local.Write(ctx, string(t.name), raw); err != nil {
		log.Printf("⚠️  failed to persist %s snapshot locally: %v", t.name, err)
	}
	return true
}

func validate(v interface{}) error {
	if val, ok := v.(models.Validator); ok {
		return val.Validate()
	}
	return nil
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
