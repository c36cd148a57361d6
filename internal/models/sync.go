package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot is the full getAll response. Every synced collection is present;
// dispatcher settings is nil when the backend has never stored it.
type Snapshot struct {
	Drivers            []Driver            `json:"drivers"`
	Trucks             []Truck             `json:"trucks"`
	DumpSites          []DumpSite          `json:"dumpSites"`
	Yards              []Yard              `json:"yards"`
	Customers          []Customer          `json:"customers"`
	Jobs               []Job               `json:"jobs"`
	Routes             []Route             `json:"routes"`
	TimeLogs           []TimeLog           `json:"timeLogs"`
	DVIRs              []DVIR              `json:"dvirs"`
	FuelLogs           []FuelLog           `json:"fuelLogs"`
	DumpTickets        []DumpTicket        `json:"dumpTickets"`
	Messages           []Message           `json:"messages"`
	GPSBreadcrumbs     []GPSBreadcrumb     `json:"gpsBreadcrumbs"`
	MileageLogs        []MileageLog        `json:"mileageLogs"`
	DispatcherSettings *DispatcherSettings `json:"dispatcherSettings"`
	Reports            []Report            `json:"reports"`
	RecurringJobs      []RecurringJob      `json:"recurringJobs"`
}

// SyncRequest carries any subset of the synced collections. A nil field is absent
// and left untouched by the backend; a pointer to an empty slice clears the collection.
type SyncRequest struct {
	Drivers            *[]Driver           `json:"drivers,omitempty"`
	Trucks             *[]Truck            `json:"trucks,omitempty"`
	DumpSites          *[]DumpSite         `json:"dumpSites,omitempty"`
	Yards              *[]Yard             `json:"yards,omitempty"`
	Customers          *[]Customer         `json:"customers,omitempty"`
	Jobs               *[]Job              `json:"jobs,omitempty"`
	Routes             *[]Route            `json:"routes,omitempty"`
	TimeLogs           *[]TimeLog          `json:"timeLogs,omitempty"`
	DVIRs              *[]DVIR             `json:"dvirs,omitempty"`
	FuelLogs           *[]FuelLog          `json:"fuelLogs,omitempty"`
	DumpTickets        *[]DumpTicket       `json:"dumpTickets,omitempty"`
	Messages           *[]Message          `json:"messages,omitempty"`
	GPSBreadcrumbs     *[]GPSBreadcrumb    `json:"gpsBreadcrumbs,omitempty"`
	MileageLogs        *[]MileageLog       `json:"mileageLogs,omitempty"`
	DispatcherSettings *DispatcherSettings `json:"dispatcherSettings,omitempty"`
	Reports            *[]Report           `json:"reports,omitempty"`
	RecurringJobs      *[]RecurringJob     `json:"recurringJobs,omitempty"`
}

// SyncAck is the backend acknowledgement of a sync call
type SyncAck struct {
	OK          bool         `json:"ok"`
	Collections []Collection `json:"collections"`
	SyncedAt    int64        `json:"syncedAt"`
}

// Collections lists the keys present in the request, in manifest order
func (r SyncRequest) Collections() []Collection {
	raw, err := r.Raw()
	if err != nil {
		return nil
	}
	var out []Collection
	for _, c := range SyncedCollections {
		if _, ok := raw[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Validate rejects empty requests and records without ids
func (r SyncRequest) Validate() error {
	checks := []error{
		checkIDs(CollectionDrivers, r.Drivers),
		checkIDs(CollectionTrucks, r.Trucks),
		checkIDs(CollectionDumpSites, r.DumpSites),
		checkIDs(CollectionYards, r.Yards),
		checkIDs(CollectionCustomers, r.Customers),
		checkIDs(CollectionJobs, r.Jobs),
		checkIDs(CollectionRoutes, r.Routes),
		checkIDs(CollectionTimeLogs, r.TimeLogs),
		checkIDs(CollectionDVIRs, r.DVIRs),
		checkIDs(CollectionFuelLogs, r.FuelLogs),
		checkIDs(CollectionDumpTickets, r.DumpTickets),
		checkIDs(CollectionMessages, r.Messages),
		checkIDs(CollectionGPSBreadcrumbs, r.GPSBreadcrumbs),
		checkIDs(CollectionMileageLogs, r.MileageLogs),
		checkIDs(CollectionReports, r.Reports),
		checkIDs(CollectionRecurringJobs, r.RecurringJobs),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if r.DispatcherSettings != nil && r.DispatcherSettings.ID != DispatcherSettingsID {
		return Invalid("dispatcherSettings id must be %q", DispatcherSettingsID)
	}
	if len(r.Collections()) == 0 {
		return Invalid("sync request has no collections")
	}
	return nil
}

func checkIDs[T Entity](name Collection, items *[]T) error {
	if items == nil {
		return nil
	}
	seen := make(map[string]bool, len(*items))
	for i, item := range *items {
		id := item.GetID()
		if id == "" {
			return Invalid("%s[%d] has no id", name, i)
		}
		if seen[id] {
			return Invalid("%s has duplicate id %q", name, id)
		}
		seen[id] = true
	}
	return nil
}

// Raw splits the request into one JSON document per present collection
func (r SyncRequest) Raw() (map[Collection]json.RawMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal sync request: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("split sync request: %w", err)
	}
	out := make(map[Collection]json.RawMessage, len(fields))
	for name, raw := range fields {
		out[Collection(name)] = raw
	}
	return out, nil
}

// DecodeSyncRequest parses a sync body, rejecting unknown collection names
func DecodeSyncRequest(data []byte) (SyncRequest, error) {
	var req SyncRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return SyncRequest{}, Invalid("decode sync request: %v", err)
	}
	return req, nil
}

// SnapshotFromRaw assembles a snapshot from stored per-collection documents.
// Missing collections decode as empty.
func SnapshotFromRaw(raw map[Collection]json.RawMessage) (*Snapshot, error) {
	fields := make(map[string]json.RawMessage, len(raw))
	for name, doc := range raw {
		if !name.IsSynced() {
			continue
		}
		fields[string(name)] = doc
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("assemble snapshot: %w", err)
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.normalize()
	return snap, nil
}

// normalize replaces nil slices with empty ones so a snapshot always encodes arrays
func (s *Snapshot) normalize() {
	s.Drivers = nonNil(s.Drivers)
	s.Trucks = nonNil(s.Trucks)
	s.DumpSites = nonNil(s.DumpSites)
	s.Yards = nonNil(s.Yards)
	s.Customers = nonNil(s.Customers)
	s.Jobs = nonNil(s.Jobs)
	s.Routes = nonNil(s.Routes)
	s.TimeLogs = nonNil(s.TimeLogs)
	s.DVIRs = nonNil(s.DVIRs)
	s.FuelLogs = nonNil(s.FuelLogs)
	s.DumpTickets = nonNil(s.DumpTickets)
	s.Messages = nonNil(s.Messages)
	s.GPSBreadcrumbs = nonNil(s.GPSBreadcrumbs)
	s.MileageLogs = nonNil(s.MileageLogs)
	s.Reports = nonNil(s.Reports)
	s.RecurringJobs = nonNil(s.RecurringJobs)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
