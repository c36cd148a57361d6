package models

// Driver is a person who runs routes. Pin is compared flat unless it holds a bcrypt hash.
type Driver struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	Pin           string `json:"pin"`
	Phone         string `json:"phone,omitempty"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
	QRToken       string `json:"qrToken,omitempty"`
	Active        bool   `json:"active"`
	CreatedAt     int64  `json:"createdAt"` // Unix millis
}

func (d Driver) GetID() string { return d.ID }

func (d Driver) Validate() error {
	if d.Name == "" {
		return Invalid("driver name is required")
	}
	return nil
}

type Truck struct {
	ID            string  `json:"id"`
	Number        string  `json:"number"`
	Plate         string  `json:"plate,omitempty"`
	Type          string  `json:"type,omitempty"` // roll-off, front-load, rear-load
	CapacityYards float64 `json:"capacityYards,omitempty"`
	Active        bool    `json:"active"`
	CreatedAt     int64   `json:"createdAt"`
}

func (t Truck) GetID() string { return t.ID }

func (t Truck) Validate() error {
	if t.Number == "" {
		return Invalid("truck number is required")
	}
	return nil
}

// DumpSite is a landfill or transfer station where loads are tipped
type DumpSite struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
	Active    bool     `json:"active"`
	CreatedAt int64    `json:"createdAt"`
}

func (d DumpSite) GetID() string { return d.ID }

// Yard is where trucks and containers are parked overnight
type Yard struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
	Active    bool     `json:"active"`
	CreatedAt int64    `json:"createdAt"`
}

func (y Yard) GetID() string { return y.ID }

type Customer struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone,omitempty"`
	Email     string   `json:"email,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
	Active    bool     `json:"active"`
	CreatedAt int64    `json:"createdAt"`
}

func (c Customer) GetID() string { return c.ID }

func (c Customer) Validate() error {
	if c.Name == "" {
		return Invalid("customer name is required")
	}
	return nil
}

// DriverUpdate is the delta accepted by updateDriver
type DriverUpdate struct {
	Name          *string `json:"name,omitempty"`
	Username      *string `json:"username,omitempty"`
	Pin           *string `json:"pin,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	LicenseNumber *string `json:"licenseNumber,omitempty"`
	QRToken       *string `json:"qrToken,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}

func (u DriverUpdate) Apply(d *Driver) error {
	setString(&d.Name, u.Name)
	setString(&d.Username, u.Username)
	setString(&d.Pin, u.Pin)
	setString(&d.Phone, u.Phone)
	setString(&d.LicenseNumber, u.LicenseNumber)
	setString(&d.QRToken, u.QRToken)
	setBool(&d.Active, u.Active)
	return d.Validate()
}

type TruckUpdate struct {
	Number        *string  `json:"number,omitempty"`
	Plate         *string  `json:"plate,omitempty"`
	Type          *string  `json:"type,omitempty"`
	CapacityYards *float64 `json:"capacityYards,omitempty"`
	Active        *bool    `json:"active,omitempty"`
}

func (u TruckUpdate) Apply(t *Truck) error {
	setString(&t.Number, u.Number)
	setString(&t.Plate, u.Plate)
	setString(&t.Type, u.Type)
	if u.CapacityYards != nil {
		t.CapacityYards = *u.CapacityYards
	}
	setBool(&t.Active, u.Active)
	return t.Validate()
}

type CustomerUpdate struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Notes   *string `json:"notes,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

func (u CustomerUpdate) Apply(c *Customer) error {
	setString(&c.Name, u.Name)
	setString(&c.Address, u.Address)
	setString(&c.Phone, u.Phone)
	setString(&c.Email, u.Email)
	setString(&c.Notes, u.Notes)
	setBool(&c.Active, u.Active)
	return c.Validate()
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
