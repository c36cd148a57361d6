package dispatch

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"haulr-dispatch/internal/models"
)

const (
	// MinCrumbDelta is the minimum distance (meters) from the last kept
	// breadcrumb. Closer points are parked-truck jitter and add no miles.
	MinCrumbDelta = 10.0

	// MaxCrumbAccuracy rejects fixes reported worse than this (meters)
	MaxCrumbAccuracy = 100.0
)

// TrailStats counts what the trail filter dropped
type TrailStats struct {
	Total             int
	SkippedByAccuracy int
	SkippedByDelta    int
	Kept              int
}

// filterTrail drops inaccurate fixes and points that have not moved at least
// MinCrumbDelta from the last kept one. crumbs must be in timestamp order.
func filterTrail(crumbs []models.GPSBreadcrumb) (orb.LineString, TrailStats) {
	stats := TrailStats{Total: len(crumbs)}
	line := make(orb.LineString, 0, len(crumbs))

	for _, c := range crumbs {
		if c.Accuracy != nil && *c.Accuracy > MaxCrumbAccuracy {
			stats.SkippedByAccuracy++
			continue
		}
		p := orb.Point{c.Longitude, c.Latitude}
		if n := len(line); n > 0 && geo.DistanceHaversine(line[n-1], p) < MinCrumbDelta {
			stats.SkippedByDelta++
			continue
		}
		line = append(line, p)
	}

	stats.Kept = len(line)
	return line, stats
}
