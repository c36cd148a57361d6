// Package seed holds the built-in sample master data used when a device has
// never stored drivers, trucks, dump sites or customers, and when the backend
// starts with an empty collections table.
package seed

import "haulr-dispatch/internal/models"

// seededAt is fixed so sample data is identical on every device
const seededAt int64 = 1704067200000 // 2024-01-01T00:00:00Z

func ptr(v float64) *float64 { return &v }

// Drivers returns the sample driver roster
func Drivers() []models.Driver {
	return []models.Driver{
		{ID: "driver-1", Name: "Mike Johnson", Username: "mike", Pin: "1234", Phone: "555-0101", LicenseNumber: "CDL-A-448812", QRToken: "drv-mike-7f3a", Active: true, CreatedAt: seededAt},
		{ID: "driver-2", Name: "Sarah Williams", Username: "sarah", Pin: "2345", Phone: "555-0102", LicenseNumber: "CDL-A-551203", QRToken: "drv-sarah-91bc", Active: true, CreatedAt: seededAt},
		{ID: "driver-3", Name: "Carlos Rodriguez", Username: "carlos", Pin: "3456", Phone: "555-0103", LicenseNumber: "CDL-B-220945", QRToken: "drv-carlos-0d2e", Active: true, CreatedAt: seededAt},
	}
}

// Trucks returns the sample fleet
func Trucks() []models.Truck {
	return []models.Truck{
		{ID: "truck-1", Number: "101", Plate: "HLR-4101", Type: "roll-off", CapacityYards: 40, Active: true, CreatedAt: seededAt},
		{ID: "truck-2", Number: "102", Plate: "HLR-4102", Type: "roll-off", CapacityYards: 30, Active: true, CreatedAt: seededAt},
		{ID: "truck-3", Number: "201", Plate: "HLR-4201", Type: "front-load", CapacityYards: 32, Active: true, CreatedAt: seededAt},
		{ID: "truck-4", Number: "301", Plate: "HLR-4301", Type: "rear-load", CapacityYards: 25, Active: true, CreatedAt: seededAt},
	}
}

// DumpSites returns the sample landfills and transfer stations
func DumpSites() []models.DumpSite {
	return []models.DumpSite{
		{ID: "dump-1", Name: "County Landfill", Address: "4500 Landfill Rd", Latitude: ptr(39.7817), Longitude: ptr(-89.6501), Active: true, CreatedAt: seededAt},
		{ID: "dump-2", Name: "North Transfer Station", Address: "1200 Industrial Pkwy", Latitude: ptr(39.8403), Longitude: ptr(-89.6440), Active: true, CreatedAt: seededAt},
		{ID: "dump-3", Name: "C&D Recycling Center", Address: "880 Quarry Ln", Latitude: ptr(39.7592), Longitude: ptr(-89.7104), Active: true, CreatedAt: seededAt},
	}
}

// Customers returns the sample customer accounts
func Customers() []models.Customer {
	return []models.Customer{
		{ID: "customer-1", Name: "ABC Construction", Address: "123 Main St", Phone: "555-0201", Email: "office@abcconstruction.example", Active: true, CreatedAt: seededAt},
		{ID: "customer-2", Name: "Riverside Apartments", Address: "456 River Rd", Phone: "555-0202", Email: "manager@riverside.example", Active: true, CreatedAt: seededAt},
		{ID: "customer-3", Name: "Downtown Diner", Address: "789 Center Ave", Phone: "555-0203", Notes: "Gate code 4412", Active: true, CreatedAt: seededAt},
		{ID: "customer-4", Name: "Smith Residence", Address: "22 Oak Ct", Phone: "555-0204", Notes: "Driveway placement only", Active: true, CreatedAt: seededAt},
	}
}
