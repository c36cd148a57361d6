package models

// JobStatus represents where a job is in its lifecycle
type JobStatus string

const (
	JobStatusPlanned    JobStatus = "PLANNED"
	JobStatusAssigned   JobStatus = "ASSIGNED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusAtDump     JobStatus = "AT_DUMP"
	JobStatusSuspended  JobStatus = "SUSPENDED"
	JobStatusCompleted  JobStatus = "COMPLETED"
)

// Valid reports whether s is a known job status
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPlanned, JobStatusAssigned, JobStatusInProgress,
		JobStatusAtDump, JobStatusSuspended, JobStatusCompleted:
		return true
	}
	return false
}

// RouteStatus is shared by every route-like entity
type RouteStatus string

const (
	RouteStatusPlanned    RouteStatus = "PLANNED"
	RouteStatusDispatched RouteStatus = "DISPATCHED"
	RouteStatusInProgress RouteStatus = "IN_PROGRESS"
	RouteStatusCompleted  RouteStatus = "COMPLETED"
)

func (s RouteStatus) Valid() bool {
	switch s {
	case RouteStatusPlanned, RouteStatusDispatched, RouteStatusInProgress, RouteStatusCompleted:
		return true
	}
	return false
}

// StopStatus is shared by residential stops, container jobs and commercial stops
type StopStatus string

const (
	StopStatusPending   StopStatus = "PENDING"
	StopStatusCompleted StopStatus = "COMPLETED"
	StopStatusNotOut    StopStatus = "NOT_OUT"
	StopStatusBlocked   StopStatus = "BLOCKED"
	StopStatusSkipped   StopStatus = "SKIPPED"
)

func (s StopStatus) Valid() bool {
	switch s {
	case StopStatusPending, StopStatusCompleted, StopStatusNotOut, StopStatusBlocked, StopStatusSkipped:
		return true
	}
	return false
}

// IsTerminal returns true once a stop has an outcome. There is no way back to PENDING.
func (s StopStatus) IsTerminal() bool {
	return s.Valid() && s != StopStatusPending
}

func (s JobStatus) String() string   { return string(s) }
func (s RouteStatus) String() string { return string(s) }
func (s StopStatus) String() string  { return string(s) }
