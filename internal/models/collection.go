package models

// Entity is any record stored in a collection
type Entity interface {
	GetID() string
}

// Validator is implemented by entities with field-level rules
type Validator interface {
	Validate() error
}

// Collection names one array of entities. The value is the key used both on the
// wire and in the local store.
type Collection string

const (
	CollectionDrivers            Collection = "drivers"
	CollectionTrucks             Collection = "trucks"
	CollectionDumpSites          Collection = "dumpSites"
	CollectionYards              Collection = "yards"
	CollectionCustomers          Collection = "customers"
	CollectionJobs               Collection = "jobs"
	CollectionRoutes             Collection = "routes"
	CollectionTimeLogs           Collection = "timeLogs"
	CollectionDVIRs              Collection = "dvirs"
	CollectionFuelLogs           Collection = "fuelLogs"
	CollectionDumpTickets        Collection = "dumpTickets"
	CollectionMessages           Collection = "messages"
	CollectionGPSBreadcrumbs     Collection = "gpsBreadcrumbs"
	CollectionMileageLogs        Collection = "mileageLogs"
	CollectionDispatcherSettings Collection = "dispatcherSettings"
	CollectionReports            Collection = "reports"
	CollectionRecurringJobs      Collection = "recurringJobs"

	// Stop-route collections live on the device only
	CollectionContainerRoutes   Collection = "containerRoutes"
	CollectionContainerJobs     Collection = "containerJobs"
	CollectionResidentialRoutes Collection = "residentialRoutes"
	CollectionResidentialStops  Collection = "residentialStops"
	CollectionCommercialRoutes  Collection = "commercialRoutes"
	CollectionCommercialStops   Collection = "commercialStops"
)

// SyncedCollections is the sync manifest. getAll returns exactly these and sync
// accepts any subset of them.
var SyncedCollections = []Collection{
	CollectionDrivers,
	CollectionTrucks,
	CollectionDumpSites,
	CollectionYards,
	CollectionCustomers,
	CollectionJobs,
	CollectionRoutes,
	CollectionTimeLogs,
	CollectionDVIRs,
	CollectionFuelLogs,
	CollectionDumpTickets,
	CollectionMessages,
	CollectionGPSBreadcrumbs,
	CollectionMileageLogs,
	CollectionDispatcherSettings,
	CollectionReports,
	CollectionRecurringJobs,
}

// LocalOnlyCollections are persisted on the device but never sent to sync
var LocalOnlyCollections = []Collection{
	CollectionContainerRoutes,
	CollectionContainerJobs,
	CollectionResidentialRoutes,
	CollectionResidentialStops,
	CollectionCommercialRoutes,
	CollectionCommercialStops,
}

// MasterDataCollections fall back to built-in sample data when nothing is stored
var MasterDataCollections = []Collection{
	CollectionDrivers,
	CollectionTrucks,
	CollectionDumpSites,
	CollectionCustomers,
}

// IsSynced reports whether c is part of the sync manifest
func (c Collection) IsSynced() bool {
	for _, s := range SyncedCollections {
		if s == c {
			return true
		}
	}
	return false
}

// IsMasterData reports whether c is seeded with sample data
func (c Collection) IsMasterData() bool {
	for _, s := range MasterDataCollections {
		if s == c {
			return true
		}
	}
	return false
}

// ParseCollection maps a wire name to a known collection
func ParseCollection(name string) (Collection, bool) {
	for _, c := range SyncedCollections {
		if string(c) == name {
			return c, true
		}
	}
	for _, c := range LocalOnlyCollections {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}
