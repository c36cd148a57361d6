package models

// RouteProgress is the status block shared by every route-like entity
type RouteProgress struct {
	Status       RouteStatus `json:"status"`
	DispatchedAt *int64      `json:"dispatchedAt,omitempty"`
	StartedAt    *int64      `json:"startedAt,omitempty"`
	CompletedAt  *int64      `json:"completedAt,omitempty"`
}

// Route is a dispatcher-built ordered list of jobs for one driver and truck
type Route struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Date     string   `json:"date,omitempty"` // YYYY-MM-DD
	DriverID *string  `json:"driverId,omitempty"`
	TruckID  *string  `json:"truckId,omitempty"`
	JobIDs   []string `json:"jobIds"`
	RouteProgress
	Active    bool  `json:"active"`
	CreatedAt int64 `json:"createdAt"`
}

func (r Route) GetID() string { return r.ID }

func (r Route) Validate() error {
	if !r.Status.Valid() {
		return Invalid("route %s: unknown status %q", r.ID, r.Status)
	}
	return nil
}

// StopRoute is the common shape of container, residential and commercial routes.
// Members are referenced by StopIDs in visiting order.
type StopRoute struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Date     string   `json:"date,omitempty"`
	DriverID *string  `json:"driverId,omitempty"`
	TruckID  *string  `json:"truckId,omitempty"`
	StopIDs  []string `json:"stopIds"`
	RouteProgress
	Active    bool  `json:"active"`
	CreatedAt int64 `json:"createdAt"`
}

func (r StopRoute) GetID() string { return r.ID }

func (r StopRoute) Validate() error {
	if !r.Status.Valid() {
		return Invalid("route %s: unknown status %q", r.ID, r.Status)
	}
	return nil
}

// ContainerRoute visits roll-off container jobs
type ContainerRoute struct{ StopRoute }

// ResidentialRoute visits curbside residential stops
type ResidentialRoute struct{ StopRoute }

// CommercialRoute visits front-load commercial accounts
type CommercialRoute struct{ StopRoute }

// RouteUpdate is the delta accepted by updateRoute
type RouteUpdate struct {
	Name     *string  `json:"name,omitempty"`
	Date     *string  `json:"date,omitempty"`
	DriverID *string  `json:"driverId,omitempty"`
	TruckID  *string  `json:"truckId,omitempty"`
	JobIDs   []string `json:"jobIds,omitempty"`
	Active   *bool    `json:"active,omitempty"`
}

func (u RouteUpdate) Apply(r *Route) error {
	setString(&r.Name, u.Name)
	setString(&r.Date, u.Date)
	if u.DriverID != nil {
		r.DriverID = u.DriverID
	}
	if u.TruckID != nil {
		r.TruckID = u.TruckID
	}
	if u.JobIDs != nil {
		r.JobIDs = append([]string(nil), u.JobIDs...)
	}
	setBool(&r.Active, u.Active)
	return r.Validate()
}
