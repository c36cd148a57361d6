// Package reconcile keeps the device's in-memory collections, the local store
// and the remote backend in agreement. Reads are served from memory. Writes are
// applied optimistically, persisted locally and pushed per collection in the
// background. A poller refreshes every synced collection from the backend.
package reconcile

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"haulr-dispatch/internal/localstore"
	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/remote"
	"haulr-dispatch/internal/seed"
)

var (
	// ErrClosed is returned by mutations after Close
	ErrClosed = errors.New("reconcile store closed")

	// ErrNoRemote is returned by PullAll and PushAll when running without a backend
	ErrNoRemote = errors.New("no remote backend configured")
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultLoadTimeout  = 5 * time.Second
	DefaultSyncTimeout  = 15 * time.Second

	// offlineAfter is the number of consecutive failed remote calls after which
	// the store reports itself offline
	offlineAfter = 2
)

// Options tunes a Store. Zero values take the defaults above.
type Options struct {
	PollInterval time.Duration
	LoadTimeout  time.Duration
	SyncTimeout  time.Duration

	// DisableStaleGuard makes every poll overwrite every synced collection,
	// even ones with local changes still in flight.
	DisableStaleGuard bool

	// DisableRefetch skips the immediate refresh after an acknowledged sync
	DisableRefetch bool
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = DefaultLoadTimeout
	}
	if o.SyncTimeout <= 0 {
		o.SyncTimeout = DefaultSyncTimeout
	}
	return o
}

// Store is the reconciliation layer. Construct with New, call Load once, then
// Start to begin polling.
type Store struct {
	local  localstore.Store
	remote remote.Client
	opts   Options

	Drivers            *Table[models.Driver]
	Trucks             *Table[models.Truck]
	DumpSites          *Table[models.DumpSite]
	Yards              *Table[models.Yard]
	Customers          *Table[models.Customer]
	Jobs               *Table[models.Job]
	Routes             *Table[models.Route]
	TimeLogs           *Table[models.TimeLog]
	DVIRs              *Table[models.DVIR]
	FuelLogs           *Table[models.FuelLog]
	DumpTickets        *Table[models.DumpTicket]
	Messages           *Table[models.Message]
	GPSBreadcrumbs     *Table[models.GPSBreadcrumb]
	MileageLogs        *Table[models.MileageLog]
	DispatcherSettings *Table[models.DispatcherSettings]
	Reports            *Table[models.Report]
	RecurringJobs      *Table[models.RecurringJob]

	ContainerRoutes   *Table[models.ContainerRoute]
	ContainerJobs     *Table[models.ContainerJob]
	ResidentialRoutes *Table[models.ResidentialRoute]
	ResidentialStops  *Table[models.ResidentialStop]
	CommercialRoutes  *Table[models.CommercialRoute]
	CommercialStops   *Table[models.CommercialStop]

	handles []handle
	byName  map[models.Collection]handle

	seq      atomic.Uint64
	loading  atomic.Bool
	closed   atomic.Bool
	inflight atomic.Int32

	syncMu    sync.Mutex
	syncState map[models.Collection]*syncState
	outboxMu  sync.Mutex
	workers   sync.WaitGroup

	statusMu sync.RWMutex
	lastSync time.Time
	lastErr  error
	failures int

	refreshCh  chan struct{}
	startOnce  sync.Once
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New wires a store over local and remote. remote may be nil for a device that
// only works from its local copy.
func New(local localstore.Store, rc remote.Client, opts Options) *Store {
	s := &Store{
		local:     local,
		remote:    rc,
		opts:      opts.withDefaults(),
		byName:    make(map[models.Collection]handle),
		syncState: make(map[models.Collection]*syncState),
		refreshCh: make(chan struct{}, 1),
	}

	s.Drivers = register(s, models.CollectionDrivers, seed.Drivers,
		func(sn *models.Snapshot) []models.Driver { return sn.Drivers },
		func(r *models.SyncRequest, v []models.Driver) { r.Drivers = &v })
	s.Trucks = register(s, models.CollectionTrucks, seed.Trucks,
		func(sn *models.Snapshot) []models.Truck { return sn.Trucks },
		func(r *models.SyncRequest, v []models.Truck) { r.Trucks = &v })
	s.DumpSites = register(s, models.CollectionDumpSites, seed.DumpSites,
		func(sn *models.Snapshot) []models.DumpSite { return sn.DumpSites },
		func(r *models.SyncRequest, v []models.DumpSite) { r.DumpSites = &v })
	s.Yards = register(s, models.CollectionYards, nil,
		func(sn *models.Snapshot) []models.Yard { return sn.Yards },
		func(r *models.SyncRequest, v []models.Yard) { r.Yards = &v })
	s.Customers = register(s, models.CollectionCustomers, seed.Customers,
		func(sn *models.Snapshot) []models.Customer { return sn.Customers },
		func(r *models.SyncRequest, v []models.Customer) { r.Customers = &v })
	s.Jobs = register(s, models.CollectionJobs, nil,
		func(sn *models.Snapshot) []models.Job { return sn.Jobs },
		func(r *models.SyncRequest, v []models.Job) { r.Jobs = &v })
	s.Routes = register(s, models.CollectionRoutes, nil,
		func(sn *models.Snapshot) []models.Route { return sn.Routes },
		func(r *models.SyncRequest, v []models.Route) { r.Routes = &v })
	s.TimeLogs = register(s, models.CollectionTimeLogs, nil,
		func(sn *models.Snapshot) []models.TimeLog { return sn.TimeLogs },
		func(r *models.SyncRequest, v []models.TimeLog) { r.TimeLogs = &v })
	s.DVIRs = register(s, models.CollectionDVIRs, nil,
		func(sn *models.Snapshot) []models.DVIR { return sn.DVIRs },
		func(r *models.SyncRequest, v []models.DVIR) { r.DVIRs = &v })
	s.FuelLogs = register(s, models.CollectionFuelLogs, nil,
		func(sn *models.Snapshot) []models.FuelLog { return sn.FuelLogs },
		func(r *models.SyncRequest, v []models.FuelLog) { r.FuelLogs = &v })
	s.DumpTickets = register(s, models.CollectionDumpTickets, nil,
		func(sn *models.Snapshot) []models.DumpTicket { return sn.DumpTickets },
		func(r *models.SyncRequest, v []models.DumpTicket) { r.DumpTickets = &v })
	s.Messages = register(s, models.CollectionMessages, nil,
		func(sn *models.Snapshot) []models.Message { return sn.Messages },
		func(r *models.SyncRequest, v []models.Message) { r.Messages = &v })
	s.GPSBreadcrumbs = register(s, models.CollectionGPSBreadcrumbs, nil,
		func(sn *models.Snapshot) []models.GPSBreadcrumb { return sn.GPSBreadcrumbs },
		func(r *models.SyncRequest, v []models.GPSBreadcrumb) { r.GPSBreadcrumbs = &v })
	s.MileageLogs = register(s, models.CollectionMileageLogs, nil,
		func(sn *models.Snapshot) []models.MileageLog { return sn.MileageLogs },
		func(r *models.SyncRequest, v []models.MileageLog) { r.MileageLogs = &v })
	s.DispatcherSettings = register(s, models.CollectionDispatcherSettings, nil,
		func(sn *models.Snapshot) []models.DispatcherSettings {
			if sn.DispatcherSettings == nil {
				return []models.DispatcherSettings{}
			}
			return []models.DispatcherSettings{*sn.DispatcherSettings}
		},
		func(r *models.SyncRequest, v []models.DispatcherSettings) {
			if len(v) > 0 {
				settings := v[0]
				r.DispatcherSettings = &settings
			}
		})
	s.Reports = register(s, models.CollectionReports, nil,
		func(sn *models.Snapshot) []models.Report { return sn.Reports },
		func(r *models.SyncRequest, v []models.Report) { r.Reports = &v })
	s.RecurringJobs = register(s, models.CollectionRecurringJobs, nil,
		func(sn *models.Snapshot) []models.RecurringJob { return sn.RecurringJobs },
		func(r *models.SyncRequest, v []models.RecurringJob) { r.RecurringJobs = &v })

	s.ContainerRoutes = register[models.ContainerRoute](s, models.CollectionContainerRoutes, nil, nil, nil)
	s.ContainerJobs = register[models.ContainerJob](s, models.CollectionContainerJobs, nil, nil, nil)
	s.ResidentialRoutes = register[models.ResidentialRoute](s, models.CollectionResidentialRoutes, nil, nil, nil)
	s.ResidentialStops = register[models.ResidentialStop](s, models.CollectionResidentialStops, nil, nil, nil)
	s.CommercialRoutes = register[models.CommercialRoute](s, models.CollectionCommercialRoutes, nil, nil, nil)
	s.CommercialStops = register[models.CommercialStop](s, models.CollectionCommercialStops, nil, nil, nil)

	return s
}

type loadResult struct {
	raw map[string]string
	err error
}

// Load hydrates every collection from the local store. It never fails: a slow
// store is abandoned after LoadTimeout, and each key that is missing or corrupt
// falls back to sample data for master data or to empty otherwise. Collections
// left in the outbox by a previous run are pushed again.
func (s *Store) Load(ctx context.Context) {
	s.loading.Store(true)
	defer s.loading.Store(false)

	loadCtx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	results := make(chan loadResult, 1)
	go func() {
		raw, err := s.local.LoadAll(loadCtx)
		results <- loadResult{raw: raw, err: err}
	}()

	var raw map[string]string
	select {
	case res := <-results:
		if res.err != nil {
			log.Printf("⚠️  Failed to read local store, starting from defaults: %v", res.err)
		} else {
			raw = res.raw
		}
	case <-loadCtx.Done():
		log.Printf("⚠️  Local store did not answer within %s, starting from defaults", s.opts.LoadTimeout)
	}

	loaded := 0
	for _, h := range s.handles {
		value := raw[string(h.collection())]
		if err := h.decode(value); err != nil {
			log.Printf("❌ Corrupt local copy of %s, using defaults: %v", h.collection(), err)
			continue
		}
		if !localstore.IsAbsent(value) {
			loaded++
		}
	}

	if ts := raw[localstore.LastSyncKey]; ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			s.statusMu.Lock()
			s.lastSync = t
			s.statusMu.Unlock()
		}
	}

	log.Printf("✅ Loaded %d stored collections", loaded)
	s.replayOutbox(ctx, raw[localstore.OutboxKey])
}

// Start launches the poller. The first refresh runs immediately.
func (s *Store) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		if s.remote == nil {
			return
		}
		pollCtx, cancel := context.WithCancel(ctx)
		s.pollCancel = cancel
		s.pollDone = make(chan struct{})
		go s.poll(pollCtx)
	})
}

// Close stops the poller and waits for in-flight syncs to settle. Snapshots
// arriving afterwards are discarded and further mutations fail with ErrClosed.
func (s *Store) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.pollCancel != nil {
		s.pollCancel()
		<-s.pollDone
	}
	s.workers.Wait()
}

// Wait blocks until every sync started so far has finished
func (s *Store) Wait() {
	s.workers.Wait()
}

// Collection returns the table registered under name, for tooling that
// works with collection names.
func (s *Store) Collection(name models.Collection) (Collection, bool) {
	h, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return h.(Collection), true
}

// Collection is the name-addressable view of a Table
type Collection interface {
	Name() models.Collection
	Len() int
}

func (s *Store) nextSeq() uint64 {
	return s.seq.Add(1)
}

func (s *Store) guardStale() bool {
	return !s.opts.DisableStaleGuard
}
