package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"haulr-dispatch/internal/localstore"
	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/remote"
	"haulr-dispatch/internal/seed"
)

func newJob(id string) models.Job {
	return models.Job{
		ID:         id,
		CustomerID: "customer-1",
		Status:     models.JobStatusPlanned,
		Active:     true,
		CreatedAt:  1704067200000,
	}
}

func newTestStore(t *testing.T, local localstore.Store, backend remote.Client, opts Options) *Store {
	t.Helper()
	s := New(local, backend, opts)
	s.Load(context.Background())
	t.Cleanup(s.Close)
	return s
}

func jobIDs(jobs []models.Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestLoad_CorruptCollectionIsIsolated(t *testing.T) {
	jobs, _ := json.Marshal([]models.Job{newJob("job-1")})
	local := localstore.NewMemoryStore(map[string]string{
		"jobs":   string(jobs),
		"trucks": "undefined",
	})
	local.Corrupt("drivers")

	s := newTestStore(t, local, nil, Options{})

	if got := jobIDs(s.Jobs.All()); len(got) != 1 || got[0] != "job-1" {
		t.Errorf("jobs = %v, want [job-1]", got)
	}
	if got, want := s.Drivers.Len(), len(seed.Drivers()); got != want {
		t.Errorf("drivers = %d, want %d seeded", got, want)
	}
	if got, want := s.Trucks.Len(), len(seed.Trucks()); got != want {
		t.Errorf("trucks = %d, want %d seeded", got, want)
	}
	if s.Yards.Len() != 0 {
		t.Errorf("yards should start empty, got %d", s.Yards.Len())
	}
	if s.Status().Loading {
		t.Error("Loading should be false after Load returns")
	}
}

type blockingStore struct {
	*localstore.MemoryStore
	release chan struct{}
}

func (b *blockingStore) LoadAll(ctx context.Context) (map[string]string, error) {
	<-b.release
	return b.MemoryStore.LoadAll(context.Background())
}

func TestLoad_SlowStoreFallsBackToDefaults(t *testing.T) {
	local := &blockingStore{
		MemoryStore: localstore.NewMemoryStore(map[string]string{"jobs": `[{"id":"job-1"}]`}),
		release:     make(chan struct{}),
	}
	defer close(local.release)

	start := time.Now()
	s := newTestStore(t, local, nil, Options{LoadTimeout: 50 * time.Millisecond})

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Load took %s, want it abandoned after the timeout", elapsed)
	}
	if s.Jobs.Len() != 0 {
		t.Errorf("jobs = %d, want 0", s.Jobs.Len())
	}
	if s.Drivers.Len() != len(seed.Drivers()) {
		t.Errorf("drivers should be seeded after a timed out load")
	}
}

func TestAddJob_SyncsOnlyThatCollection(t *testing.T) {
	local := localstore.NewMemoryStore(nil)
	backend := remote.NewMemoryBackend()
	s := newTestStore(t, local, backend, Options{})

	if err := s.Jobs.Add(context.Background(), newJob("job-1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Wait()

	calls := backend.SyncCalls()
	if len(calls) != 1 {
		t.Fatalf("sync calls = %d, want 1", len(calls))
	}
	if got := calls[0].Collections(); len(got) != 1 || got[0] != models.CollectionJobs {
		t.Errorf("synced collections = %v, want [jobs]", got)
	}
	if calls[0].Jobs == nil || len(*calls[0].Jobs) != 1 || (*calls[0].Jobs)[0].ID != "job-1" {
		t.Errorf("synced jobs = %+v", calls[0].Jobs)
	}

	stored, _ := local.Get("jobs")
	if !strings.Contains(stored, `"job-1"`) {
		t.Errorf("local jobs = %s, want job-1 persisted", stored)
	}
	if outbox, _ := local.Get(localstore.OutboxKey); outbox != "[]" {
		t.Errorf("outbox = %s, want []", outbox)
	}
	if _, ok := local.Get(localstore.LastSyncKey); !ok {
		t.Error("last sync time should be persisted after an acknowledged sync")
	}
	if st := s.Status(); len(st.Pending) != 0 || st.LastSync.IsZero() {
		t.Errorf("status = %+v, want nothing pending and a last sync time", st)
	}
}

func TestFailedSync_KeepsOptimisticStateAndOutbox(t *testing.T) {
	local := localstore.NewMemoryStore(nil)
	backend := remote.NewMemoryBackend()
	backend.FailSync(remote.ErrUnavailable)
	s := newTestStore(t, local, backend, Options{})
	ctx := context.Background()

	if err := s.Jobs.Add(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Add job: %v", err)
	}
	msg := models.Message{ID: "msg-1", FromID: "driver-1", ToID: "dispatcher", Body: "running late", CreatedAt: 1}
	if err := s.Messages.Add(ctx, msg); err != nil {
		t.Fatalf("Add message: %v", err)
	}
	s.Wait()

	if len(backend.SyncCalls()) != 2 {
		t.Errorf("each collection should attempt its own sync, got %d calls", len(backend.SyncCalls()))
	}
	if _, ok := s.Jobs.Find("job-1"); !ok {
		t.Error("failed sync must not roll back the local job")
	}
	if _, ok := s.Messages.Find("msg-1"); !ok {
		t.Error("failed sync must not roll back the local message")
	}

	st := s.Status()
	if len(st.Pending) != 2 || st.LastError == nil {
		t.Errorf("status = %+v, want jobs and messages pending with an error", st)
	}
	outbox, _ := local.Get(localstore.OutboxKey)
	if outbox != `["jobs","messages"]` {
		t.Errorf("outbox = %s", outbox)
	}

	// The next successful poll keeps the pending copies and retries them
	backend.FailSync(nil)
	if err := s.PullAll(ctx); err != nil {
		t.Fatalf("PullAll: %v", err)
	}
	if _, ok := s.Jobs.Find("job-1"); !ok {
		t.Error("poll clobbered a pending collection")
	}
	s.Wait()

	if doc, ok := backend.Raw(models.CollectionJobs); !ok || !strings.Contains(string(doc), "job-1") {
		t.Errorf("backend jobs = %s, want job-1 after retry", doc)
	}
	if pending := s.Status().Pending; len(pending) != 0 {
		t.Errorf("pending = %v after retry, want none", pending)
	}
}

func TestSyncBurstSendsLatestCopy(t *testing.T) {
	backend := remote.NewMemoryBackend()
	release := backend.HoldSync()
	s := newTestStore(t, localstore.NewMemoryStore(nil), backend, Options{})
	ctx := context.Background()

	for _, id := range []string{"job-1", "job-2", "job-3"} {
		if err := s.Jobs.Add(ctx, newJob(id)); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}
	release()
	s.Wait()

	calls := backend.SyncCalls()
	if len(calls) != 2 {
		t.Fatalf("sync calls = %d, want the held call plus one follow-up", len(calls))
	}
	last := calls[len(calls)-1]
	if last.Jobs == nil || len(*last.Jobs) != 3 {
		t.Errorf("final sync carried %v, want all three jobs", last.Jobs)
	}
}

func TestPull_KeepsJobAddedDuringFetch(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		wantSurvive bool
	}{
		{name: "stale guard", opts: Options{}, wantSurvive: true},
		{name: "unguarded overwrite", opts: Options{DisableStaleGuard: true}, wantSurvive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := remote.NewMemoryBackend()
			jobs := []models.Job{newJob("job-1")}
			if err := backend.Seed(models.SyncRequest{Jobs: &jobs}); err != nil {
				t.Fatal(err)
			}
			release := backend.HoldSync()
			defer release()

			s := newTestStore(t, localstore.NewMemoryStore(nil), backend, tt.opts)
			if err := s.PullAll(ctx); err != nil {
				t.Fatalf("initial PullAll: %v", err)
			}

			var once sync.Once
			backend.OnGetAll(func() {
				once.Do(func() {
					if err := s.Jobs.Add(ctx, newJob("job-2")); err != nil {
						t.Errorf("Add job-2: %v", err)
					}
				})
			})

			if err := s.PullAll(ctx); err != nil {
				t.Fatalf("PullAll: %v", err)
			}

			_, survived := s.Jobs.Find("job-2")
			if survived != tt.wantSurvive {
				t.Errorf("job-2 present = %v, want %v (jobs %v)", survived, tt.wantSurvive, jobIDs(s.Jobs.All()))
			}
			if _, ok := s.Jobs.Find("job-1"); !ok {
				t.Error("job-1 from the first pull should remain")
			}

			release()
			s.Wait()
		})
	}
}

func TestPull_KeepsJobAcknowledgedDuringFetch(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend()
	jobs := []models.Job{newJob("job-1")}
	if err := backend.Seed(models.SyncRequest{Jobs: &jobs}); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, localstore.NewMemoryStore(nil), backend, Options{DisableRefetch: true})
	if err := s.PullAll(ctx); err != nil {
		t.Fatalf("initial PullAll: %v", err)
	}

	release := backend.HoldSync()
	defer release()
	if err := s.Jobs.Add(ctx, newJob("job-2")); err != nil {
		t.Fatalf("Add job-2: %v", err)
	}

	// the upload is acknowledged after the snapshot was captured but before
	// it is applied
	var once sync.Once
	backend.OnGetAll(func() {
		once.Do(func() {
			release()
			s.Wait()
		})
	})
	if err := s.PullAll(ctx); err != nil {
		t.Fatalf("PullAll: %v", err)
	}

	if got := jobIDs(s.Jobs.All()); len(got) != 2 {
		t.Fatalf("jobs = %v, want job-2 kept over the older snapshot", got)
	}
	if st := s.Status(); len(st.Pending) != 0 {
		t.Errorf("pending = %v, want nothing after the ack", st.Pending)
	}

	// the next snapshot includes job-2 and applies normally
	backend.OnGetAll(nil)
	if err := s.PullAll(ctx); err != nil {
		t.Fatalf("third PullAll: %v", err)
	}
	if got := jobIDs(s.Jobs.All()); len(got) != 2 || got[1] != "job-2" {
		t.Errorf("jobs after a fresh pull = %v", got)
	}
}

func TestPull_AppliesSnapshotToIdleCollections(t *testing.T) {
	ctx := context.Background()
	backend := remote.NewMemoryBackend()
	jobs := []models.Job{newJob("job-9")}
	settings := models.DispatcherSettings{ID: models.DispatcherSettingsID, ReportEmail: "ops@example.com"}
	if err := backend.Seed(models.SyncRequest{Jobs: &jobs, DispatcherSettings: &settings}); err != nil {
		t.Fatal(err)
	}
	local := localstore.NewMemoryStore(nil)
	s := newTestStore(t, local, backend, Options{})

	if err := s.PullAll(ctx); err != nil {
		t.Fatalf("PullAll: %v", err)
	}

	if got := jobIDs(s.Jobs.All()); len(got) != 1 || got[0] != "job-9" {
		t.Errorf("jobs = %v, want [job-9]", got)
	}
	if s.Drivers.Len() != 0 {
		t.Errorf("snapshot without drivers should replace the seeded ones, got %d", s.Drivers.Len())
	}
	got, ok := s.Settings()
	if !ok || got.ReportEmail != "ops@example.com" {
		t.Errorf("settings = %+v, %v", got, ok)
	}
	if stored, _ := local.Get("jobs"); !strings.Contains(stored, "job-9") {
		t.Errorf("snapshot should be persisted locally, got %s", stored)
	}
}

func TestLoad_ReplaysOutbox(t *testing.T) {
	jobs, _ := json.Marshal([]models.Job{newJob("job-1")})
	local := localstore.NewMemoryStore(map[string]string{
		"jobs":               string(jobs),
		localstore.OutboxKey: `["jobs","residentialStops","bogus"]`,
	})
	backend := remote.NewMemoryBackend()

	s := newTestStore(t, local, backend, Options{})
	s.Wait()

	calls := backend.SyncCalls()
	if len(calls) != 1 {
		t.Fatalf("sync calls = %d, want 1", len(calls))
	}
	if calls[0].Jobs == nil || len(*calls[0].Jobs) != 1 {
		t.Errorf("replayed jobs = %v", calls[0].Jobs)
	}
	if outbox, _ := local.Get(localstore.OutboxKey); outbox != "[]" {
		t.Errorf("outbox = %s, want [] after replay", outbox)
	}
}

func TestLocalOnlyCollectionsNeverSync(t *testing.T) {
	local := localstore.NewMemoryStore(nil)
	backend := remote.NewMemoryBackend()
	s := newTestStore(t, local, backend, Options{})

	stop := models.ResidentialStop{Stop: models.Stop{
		ID:      "stop-1",
		Address: "12 Elm St",
		Status:  models.StopStatusPending,
		History: []models.StopHistoryEntry{},
	}}
	if err := s.ResidentialStops.Add(context.Background(), stop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Wait()

	if n := len(backend.SyncCalls()); n != 0 {
		t.Errorf("sync calls = %d, want 0", n)
	}
	if stored, _ := local.Get("residentialStops"); !strings.Contains(stored, "stop-1") {
		t.Errorf("residential stops not persisted locally: %s", stored)
	}
}

func TestTable_Mutations(t *testing.T) {
	s := newTestStore(t, localstore.NewMemoryStore(nil), nil, Options{})
	ctx := context.Background()

	if err := s.Jobs.Add(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"duplicate id", func() error { return s.Jobs.Add(ctx, newJob("job-1")) }, models.ErrValidation},
		{"empty id", func() error { return s.Jobs.Add(ctx, newJob("")) }, models.ErrValidation},
		{"invalid record", func() error {
			j := newJob("job-2")
			j.CustomerID = ""
			return s.Jobs.Add(ctx, j)
		}, models.ErrValidation},
		{"delete missing", func() error { return s.Jobs.Delete(ctx, "nope") }, models.ErrNotFound},
		{"update missing", func() error {
			return s.Jobs.Update(ctx, "nope", func(*models.Job) error { return nil })
		}, models.ErrNotFound},
		{"update rejected", func() error {
			return s.Jobs.Update(ctx, "job-1", func(j *models.Job) error {
				j.Notes = "changed"
				return errors.New("nope")
			})
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	j, _ := s.Jobs.Find("job-1")
	if j.Notes != "" || s.Jobs.Len() != 1 {
		t.Errorf("failed mutations changed state: %+v (len %d)", j, s.Jobs.Len())
	}

	if err := s.Jobs.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Jobs.Len() != 0 {
		t.Error("job-1 should be gone")
	}
}

func TestUpdateSettings_CreatesSingleton(t *testing.T) {
	backend := remote.NewMemoryBackend()
	s := newTestStore(t, localstore.NewMemoryStore(nil), backend, Options{})

	if _, ok := s.Settings(); ok {
		t.Fatal("settings should not exist before the first update")
	}
	email := "dispatch@example.com"
	got, err := s.UpdateSettings(context.Background(), models.DispatcherSettingsUpdate{ReportEmail: &email})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got.ID != models.DispatcherSettingsID || got.ReportEmail != email || got.CreatedAt == 0 {
		t.Errorf("settings = %+v", got)
	}
	s.Wait()

	doc, ok := backend.Raw(models.CollectionDispatcherSettings)
	if !ok || !strings.Contains(string(doc), email) {
		t.Errorf("backend settings = %s", doc)
	}
}

func TestStatus_OfflineAfterRepeatedFailures(t *testing.T) {
	backend := remote.NewMemoryBackend()
	backend.FailGetAll(remote.ErrUnavailable)
	s := newTestStore(t, localstore.NewMemoryStore(nil), backend, Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.PullAll(ctx); !errors.Is(err, remote.ErrUnavailable) {
			t.Fatalf("PullAll err = %v", err)
		}
	}
	if !s.Status().IsOffline() {
		t.Error("expected offline after two failures")
	}

	backend.FailGetAll(nil)
	if err := s.PullAll(ctx); err != nil {
		t.Fatalf("PullAll: %v", err)
	}
	if st := s.Status(); st.IsOffline() || st.LastError != nil {
		t.Errorf("status = %+v, want recovered", st)
	}
}

func TestPushAll(t *testing.T) {
	ctx := context.Background()
	if err := New(localstore.NewMemoryStore(nil), nil, Options{}).PushAll(ctx); !errors.Is(err, ErrNoRemote) {
		t.Errorf("PushAll without remote err = %v", err)
	}

	backend := remote.NewMemoryBackend()
	s := newTestStore(t, localstore.NewMemoryStore(nil), backend, Options{})
	if err := s.PushAll(ctx); err != nil {
		t.Fatalf("PushAll: %v", err)
	}

	calls := backend.SyncCalls()
	if len(calls) != 1 {
		t.Fatalf("sync calls = %d, want 1", len(calls))
	}
	got := calls[0].Collections()
	// settings are absent until created
	if len(got) != len(models.SyncedCollections)-1 {
		t.Errorf("pushed %d collections: %v", len(got), got)
	}
	if doc, _ := backend.Raw(models.CollectionDrivers); !strings.Contains(string(doc), "driver-1") {
		t.Errorf("backend drivers = %s", doc)
	}
}

func TestClose_StopsPolling(t *testing.T) {
	backend := remote.NewMemoryBackend()
	s := New(localstore.NewMemoryStore(nil), backend, Options{PollInterval: 10 * time.Millisecond})
	s.Load(context.Background())
	s.Start(context.Background())

	eventually(t, func() bool { return backend.GetAllCalls() >= 2 })
	s.Close()

	n := backend.GetAllCalls()
	time.Sleep(50 * time.Millisecond)
	if got := backend.GetAllCalls(); got != n {
		t.Errorf("poller kept running after Close: %d -> %d calls", n, got)
	}
	if err := s.Jobs.Add(context.Background(), newJob("job-1")); !errors.Is(err, ErrClosed) {
		t.Errorf("Add after Close err = %v, want ErrClosed", err)
	}
}

func TestEmptyDevice_SeedsMasterDataAndSyncsFirstJob(t *testing.T) {
	backend := remote.NewMemoryBackend()
	s := newTestStore(t, localstore.NewMemoryStore(nil), backend, Options{})

	counts := map[string][2]int{
		"drivers":   {s.Drivers.Len(), len(seed.Drivers())},
		"trucks":    {s.Trucks.Len(), len(seed.Trucks())},
		"dumpSites": {s.DumpSites.Len(), len(seed.DumpSites())},
		"customers": {s.Customers.Len(), len(seed.Customers())},
		"jobs":      {s.Jobs.Len(), 0},
		"routes":    {s.Routes.Len(), 0},
	}
	for name, c := range counts {
		if c[0] != c[1] {
			t.Errorf("%s = %d, want %d", name, c[0], c[1])
		}
	}

	job := newJob("job-1")
	job.CustomerID = "c1"
	if err := s.Jobs.Add(context.Background(), job); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := jobIDs(s.Jobs.All()); len(got) != 1 || got[0] != "job-1" {
		t.Fatalf("jobs = %v, want [job-1] before the sync settles", got)
	}
	s.Wait()

	calls := backend.SyncCalls()
	if len(calls) != 1 || calls[0].Jobs == nil || jobIDs(*calls[0].Jobs)[0] != "job-1" {
		t.Fatalf("sync calls = %+v, want one {jobs:[job-1]}", calls)
	}
}

func TestFallback_OnlyMasterDataIsSeeded(t *testing.T) {
	s := New(localstore.NewMemoryStore(nil), nil, Options{})
	t.Cleanup(s.Close)
	sample := func() []models.Job { return []models.Job{newJob("sample-1")} }

	tests := []struct {
		name models.Collection
		want int
	}{
		{models.CollectionCustomers, 1},
		{models.CollectionDumpSites, 1},
		{models.CollectionJobs, 0},
		{models.CollectionRoutes, 0},
	}
	for _, tt := range tests {
		tbl := register(s, tt.name, sample, nil, nil)
		if err := tbl.decode(""); err != nil {
			t.Fatalf("%s: decode: %v", tt.name, err)
		}
		if got := tbl.Len(); got != tt.want {
			t.Errorf("%s fallback has %d records, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDisjointCollectionsAreIndependent(t *testing.T) {
	route := models.Route{ID: "route-1", Name: "North", JobIDs: []string{}, RouteProgress: models.RouteProgress{Status: models.RouteStatusPlanned}}

	run := func(jobsFirst bool) (*Store, *remote.MemoryBackend) {
		backend := remote.NewMemoryBackend()
		release := backend.HoldSync()
		s := newTestStore(t, localstore.NewMemoryStore(nil), backend, Options{DisableRefetch: true})
		ctx := context.Background()

		addJob := func() {
			if err := s.Jobs.Add(ctx, newJob("job-1")); err != nil {
				t.Fatalf("add job: %v", err)
			}
		}
		addRoute := func() {
			if err := s.Routes.Add(ctx, route); err != nil {
				t.Fatalf("add route: %v", err)
			}
		}
		if jobsFirst {
			addJob()
			addRoute()
		} else {
			addRoute()
			addJob()
		}

		// both writes are visible while their syncs are still blocked
		if s.Jobs.Len() != 1 || s.Routes.Len() != 1 {
			t.Fatalf("jobs = %d, routes = %d before syncs settle", s.Jobs.Len(), s.Routes.Len())
		}
		release()
		s.Wait()
		return s, backend
	}

	a, backendA := run(true)
	b, _ := run(false)

	if !equalJSON(t, a.Jobs.All(), b.Jobs.All()) || !equalJSON(t, a.Routes.All(), b.Routes.All()) {
		t.Error("order of disjoint mutations changed the result")
	}
	for _, call := range backendA.SyncCalls() {
		if got := call.Collections(); len(got) != 1 {
			t.Errorf("sync carried %v, want one collection per call", got)
		}
	}
	if got := len(backendA.SyncCalls()); got != 2 {
		t.Errorf("sync calls = %d, want 2", got)
	}
}

func equalJSON(t *testing.T, a, b interface{}) bool {
	t.Helper()
	ja, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	jb, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	return string(ja) == string(jb)
}
