package models

// TimeLog is a driver clock-in/clock-out record
type TimeLog struct {
	ID        string `json:"id"`
	DriverID  string `json:"driverId"`
	ClockIn   int64  `json:"clockIn"`
	ClockOut  *int64 `json:"clockOut,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

func (t TimeLog) GetID() string { return t.ID }

// DVIRDefect is one item flagged on a vehicle inspection
type DVIRDefect struct {
	Item     string `json:"item"`
	Notes    string `json:"notes,omitempty"`
	Critical bool   `json:"critical"`
}

// DVIR is a driver vehicle inspection report
type DVIR struct {
	ID          string       `json:"id"`
	DriverID    string       `json:"driverId"`
	TruckID     string       `json:"truckId"`
	Type        string       `json:"type"` // pre-trip, post-trip
	Odometer    int          `json:"odometer,omitempty"`
	Defects     []DVIRDefect `json:"defects,omitempty"`
	SafeToDrive bool         `json:"safeToDrive"`
	Signature   string       `json:"signature,omitempty"`
	CreatedAt   int64        `json:"createdAt"`
}

func (d DVIR) GetID() string { return d.ID }

type FuelLog struct {
	ID        string  `json:"id"`
	DriverID  string  `json:"driverId"`
	TruckID   string  `json:"truckId"`
	Gallons   float64 `json:"gallons"`
	Cost      float64 `json:"cost"`
	Odometer  int     `json:"odometer,omitempty"`
	Location  string  `json:"location,omitempty"`
	CreatedAt int64   `json:"createdAt"`
}

func (f FuelLog) GetID() string { return f.ID }

type DumpTicket struct {
	ID           string  `json:"id"`
	JobID        *string `json:"jobId,omitempty"`
	DriverID     string  `json:"driverId"`
	TruckID      string  `json:"truckId,omitempty"`
	DumpSiteID   string  `json:"dumpSiteId"`
	TicketNumber string  `json:"ticketNumber"`
	NetTons      float64 `json:"netTons"`
	Cost         float64 `json:"cost,omitempty"`
	PhotoURL     string  `json:"photoUrl,omitempty"`
	CreatedAt    int64   `json:"createdAt"`
}

func (d DumpTicket) GetID() string { return d.ID }

// Message is a dispatcher/driver text message
type Message struct {
	ID        string `json:"id"`
	FromID    string `json:"fromId"`
	ToID      string `json:"toId"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"createdAt"`
}

func (m Message) GetID() string { return m.ID }

// GPSBreadcrumb is one sampled position of a driver
type GPSBreadcrumb struct {
	ID        string   `json:"id"`
	DriverID  string   `json:"driverId"`
	RouteID   *string  `json:"routeId,omitempty"`
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lng"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"` // meters
	Timestamp int64    `json:"timestamp"`
	CreatedAt int64    `json:"createdAt"`
}

func (g GPSBreadcrumb) GetID() string { return g.ID }

// MileageLog records miles driven per state for IFTA reporting
type MileageLog struct {
	ID            string  `json:"id"`
	DriverID      string  `json:"driverId"`
	TruckID       string  `json:"truckId"`
	Date          string  `json:"date"`
	State         string  `json:"state,omitempty"`
	StartOdometer int     `json:"startOdometer,omitempty"`
	EndOdometer   int     `json:"endOdometer,omitempty"`
	Miles         float64 `json:"miles"`
	CreatedAt     int64   `json:"createdAt"`
}

func (m MileageLog) GetID() string { return m.ID }

// Report is a generated end-of-day summary. Generation itself happens elsewhere.
type Report struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Date      string `json:"date"`
	DriverID  string `json:"driverId,omitempty"`
	Summary   string `json:"summary,omitempty"`
	SentTo    string `json:"sentTo,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

func (r Report) GetID() string { return r.ID }

// RecurringJob is a template that spawns jobs on a schedule
type RecurringJob struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Type       string `json:"type,omitempty"`
	Frequency  string `json:"frequency"` // weekly, biweekly, monthly
	DayOfWeek  *int   `json:"dayOfWeek,omitempty"`
	NextDate   string `json:"nextDate,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Active     bool   `json:"active"`
	CreatedAt  int64  `json:"createdAt"`
}

func (r RecurringJob) GetID() string { return r.ID }
