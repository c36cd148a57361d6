package models

// Job is a unit of hauling work for one customer. It may belong to a route via RouteID.
type Job struct {
	ID              string    `json:"id"`
	CustomerID      string    `json:"customerId"`
	RouteID         *string   `json:"routeId,omitempty"`
	DriverID        *string   `json:"driverId,omitempty"`
	TruckID         *string   `json:"truckId,omitempty"`
	Type            string    `json:"type,omitempty"` // delivery, swap, pickup, dump-and-return
	Status          JobStatus `json:"status"`
	ScheduledDate   string    `json:"scheduledDate,omitempty"` // YYYY-MM-DD
	Notes           string    `json:"notes,omitempty"`
	SuspendedReason string    `json:"suspendedReason,omitempty"`
	StartedAt       *int64    `json:"startedAt,omitempty"`
	CompletedAt     *int64    `json:"completedAt,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       int64     `json:"createdAt"`
}

func (j Job) GetID() string { return j.ID }

func (j Job) Validate() error {
	if j.CustomerID == "" {
		return Invalid("job %s: customerId is required", j.ID)
	}
	if !j.Status.Valid() {
		return Invalid("job %s: unknown status %q", j.ID, j.Status)
	}
	return nil
}

// IsDone returns true when the job counts as finished for route completion
func (j Job) IsDone() bool {
	return j.Status == JobStatusCompleted
}

// JobUpdate is the delta accepted by updateJob. Status changes that carry business
// rules go through the lifecycle package instead.
type JobUpdate struct {
	CustomerID    *string    `json:"customerId,omitempty"`
	RouteID       *string    `json:"routeId,omitempty"`
	DriverID      *string    `json:"driverId,omitempty"`
	TruckID       *string    `json:"truckId,omitempty"`
	Type          *string    `json:"type,omitempty"`
	Status        *JobStatus `json:"status,omitempty"`
	ScheduledDate *string    `json:"scheduledDate,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Active        *bool      `json:"active,omitempty"`
}

func (u JobUpdate) Apply(j *Job) error {
	setString(&j.CustomerID, u.CustomerID)
	if u.RouteID != nil {
		j.RouteID = u.RouteID
	}
	if u.DriverID != nil {
		j.DriverID = u.DriverID
	}
	if u.TruckID != nil {
		j.TruckID = u.TruckID
	}
	setString(&j.Type, u.Type)
	if u.Status != nil {
		j.Status = *u.Status
	}
	setString(&j.ScheduledDate, u.ScheduledDate)
	setString(&j.Notes, u.Notes)
	setBool(&j.Active, u.Active)
	return j.Validate()
}
