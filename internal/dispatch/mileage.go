package dispatch

import (
	"context"
	"log"
	"sort"

	"github.com/paulmach/orb/geo"

	"haulr-dispatch/internal/models"
)

const metersPerMile = 1609.344

// MileageFromBreadcrumbs returns the miles covered by a trail of breadcrumbs,
// visited in timestamp order along great-circle segments. Jitter and
// inaccurate fixes are filtered out first.
func MileageFromBreadcrumbs(crumbs []models.GPSBreadcrumb) float64 {
	miles, _ := trailMiles(crumbs)
	return miles
}

func trailMiles(crumbs []models.GPSBreadcrumb) (float64, TrailStats) {
	sorted := append([]models.GPSBreadcrumb(nil), crumbs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	line, stats := filterTrail(sorted)
	if len(line) < 2 {
		return 0, stats
	}
	return geo.LengthHaversine(line) / metersPerMile, stats
}

// LogMileage totals a driver's breadcrumbs between from and to (Unix millis,
// inclusive) and stores the result as a mileage log for date.
func (s *Service) LogMileage(ctx context.Context, driverID, truckID, date string, from, to int64) (models.MileageLog, error) {
	if driverID == "" || truckID == "" {
		return models.MileageLog{}, models.Invalid("driver and truck are required")
	}
	crumbs := s.store.GPSBreadcrumbs.Filter(func(g models.GPSBreadcrumb) bool {
		return g.DriverID == driverID && g.Timestamp >= from && g.Timestamp <= to
	})

	miles, stats := trailMiles(crumbs)
	if skipped := stats.SkippedByAccuracy + stats.SkippedByDelta; skipped > 0 {
		log.Printf("📍 Mileage for %s on %s: kept %d of %d breadcrumbs (%d inaccurate, %d stationary)",
			driverID, date, stats.Kept, stats.Total, stats.SkippedByAccuracy, stats.SkippedByDelta)
	}

	entry := models.MileageLog{
		ID:        newID("mileage"),
		DriverID:  driverID,
		TruckID:   truckID,
		Date:      date,
		Miles:     miles,
		CreatedAt: s.now(),
	}
	if err := s.store.MileageLogs.Add(ctx, entry); err != nil {
		return models.MileageLog{}, err
	}
	return entry, nil
}
