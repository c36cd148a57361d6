package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"haulr-dispatch/internal/models"
)

// MemoryBackend is an in-process backend with the same semantics as the HTTP
// server: getAll returns every synced collection, sync overwrites only the
// collections present. Failures and delays can be injected for tests.
type MemoryBackend struct {
	mu        sync.Mutex
	docs      map[models.Collection]json.RawMessage
	syncCalls []models.SyncRequest
	getAlls   int

	getAllErr  error
	syncErr    error
	syncGate   chan struct{}
	getAllHook func()
}

var _ Client = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[models.Collection]json.RawMessage)}
}

// Seed stores collections directly, bypassing the recorded sync calls
func (m *MemoryBackend) Seed(req models.SyncRequest) error {
	raw, err := req.Raw()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, doc := range raw {
		m.docs[name] = doc
	}
	return nil
}

func (m *MemoryBackend) GetAll(ctx context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	hook := m.getAllHook
	m.getAlls++
	if m.getAllErr != nil {
		err := m.getAllErr
		m.mu.Unlock()
		return nil, err
	}
	docs := make(map[models.Collection]json.RawMessage, len(m.docs))
	for k, v := range m.docs {
		docs[k] = v
	}
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return models.SnapshotFromRaw(docs)
}

func (m *MemoryBackend) Sync(ctx context.Context, req models.SyncRequest) (*models.SyncAck, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	gate := m.syncGate
	m.syncCalls = append(m.syncCalls, req)
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	raw, err := req.Raw()
	if err != nil {
		return nil, err
	}
	for name, doc := range raw {
		m.docs[name] = doc
	}
	return &models.SyncAck{OK: true, Collections: req.Collections(), SyncedAt: time.Now().UnixMilli()}, nil
}

// SyncCalls returns every sync request received, in arrival order
func (m *MemoryBackend) SyncCalls() []models.SyncRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SyncRequest(nil), m.syncCalls...)
}

// GetAllCalls returns how many times getAll was called
func (m *MemoryBackend) GetAllCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAlls
}

// Raw returns the stored document of one collection
func (m *MemoryBackend) Raw(name models.Collection) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[name]
	return doc, ok
}

// FailGetAll makes getAll return err until called again with nil
func (m *MemoryBackend) FailGetAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllErr = err
}

// FailSync makes sync return err until called again with nil
func (m *MemoryBackend) FailSync(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncErr = err
}

// HoldSync blocks sync calls until the returned release func is called
func (m *MemoryBackend) HoldSync() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.syncGate = gate
	m.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.syncGate = nil
			m.mu.Unlock()
			close(gate)
		})
	}
}

// OnGetAll runs hook after getAll captured its data and before it returns
func (m *MemoryBackend) OnGetAll(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllHook = hook
}
