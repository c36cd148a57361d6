package models

// StopHistoryEntry records one status change of a stop. Entries are never edited
// after they are appended.
type StopHistoryEntry struct {
	ID      string     `json:"id"`
	Status  StopStatus `json:"status"`
	ActorID string     `json:"actorId"`
	At      int64      `json:"at"` // Unix millis
	Notes   string     `json:"notes,omitempty"`
	Photos  []string   `json:"photos,omitempty"`
}

// Stop is the common shape of container jobs, residential stops and commercial stops
type Stop struct {
	ID          string             `json:"id"`
	RouteID     *string            `json:"routeId,omitempty"`
	CustomerID  string             `json:"customerId,omitempty"`
	Address     string             `json:"address"`
	Sequence    int                `json:"sequence"`
	Status      StopStatus         `json:"status"`
	CompletedAt *int64             `json:"completedAt,omitempty"`
	History     []StopHistoryEntry `json:"history"`
	Active      bool               `json:"active"`
	CreatedAt   int64              `json:"createdAt"`
}

func (s Stop) GetID() string { return s.ID }

func (s Stop) Validate() error {
	if !s.Status.Valid() {
		return Invalid("stop %s: unknown status %q", s.ID, s.Status)
	}
	return nil
}

// ContainerJob is a roll-off container delivery, swap or pickup on a container route
type ContainerJob struct {
	Stop
	ContainerSize string `json:"containerSize,omitempty"`
	Action        string `json:"action,omitempty"` // deliver, swap, pickup
}

// ResidentialStop is one curbside address on a residential route
type ResidentialStop struct {
	Stop
	CartCount int `json:"cartCount,omitempty"`
}

// CommercialStop is one front-load account on a commercial route
type CommercialStop struct {
	Stop
	ContainerCount int    `json:"containerCount,omitempty"`
	Frequency      string `json:"frequency,omitempty"`
}
