package lifecycle

import (
	"fmt"
	"slices"

	"haulr-dispatch/internal/models"
)

var routeTransitions = map[models.RouteStatus][]models.RouteStatus{
	models.RouteStatusPlanned:    {models.RouteStatusDispatched},
	models.RouteStatusDispatched: {models.RouteStatusInProgress},
	models.RouteStatusInProgress: {models.RouteStatusCompleted},
	// reopening is only reachable through AddMember
	models.RouteStatusCompleted: {},
}

func checkRoute(id string, from, to models.RouteStatus) error {
	if slices.Contains(routeTransitions[from], to) {
		return nil
	}
	return reject("route", id, from, to, "")
}

// Dispatch hands a planned route to its driver
func Dispatch(p *models.RouteProgress, id string, now int64) error {
	if err := checkRoute(id, p.Status, models.RouteStatusDispatched); err != nil {
		return err
	}
	p.Status = models.RouteStatusDispatched
	p.DispatchedAt = models.Int64Ptr(now)
	return nil
}

// Start is the driver's "start route" action
func Start(p *models.RouteProgress, id string, now int64) error {
	if err := checkRoute(id, p.Status, models.RouteStatusInProgress); err != nil {
		return err
	}
	p.Status = models.RouteStatusInProgress
	p.StartedAt = models.Int64Ptr(now)
	return nil
}

// Complete is the driver's explicit "complete route" action. It is refused
// while any member is still outstanding.
func Complete(kind Kind, p *models.RouteProgress, id string, members []Member, now int64) error {
	if err := checkRoute(id, p.Status, models.RouteStatusCompleted); err != nil {
		return err
	}
	if open := kind.outstanding(members); open > 0 {
		return reject("route", id, p.Status, models.RouteStatusCompleted,
			pluralize(open, kind.memberNoun())+" still open on this route.")
	}
	p.Status = models.RouteStatusCompleted
	p.CompletedAt = models.Int64Ptr(completionTime(members, now))
	return nil
}

// Reopen moves a COMPLETED route back to IN_PROGRESS and clears its completion
// time. Any other status is left alone.
func Reopen(p *models.RouteProgress) bool {
	if p.Status != models.RouteStatusCompleted {
		return false
	}
	p.Status = models.RouteStatusInProgress
	p.CompletedAt = nil
	return true
}

// AddMember appends id to a route's member list and reopens the route when it
// was already completed. The returned slice never shares storage with ids.
func AddMember(p *models.RouteProgress, routeID string, ids []string, id string) ([]string, bool, error) {
	if id == "" {
		return nil, false, models.Invalid("route %s: member id is required", routeID)
	}
	if slices.Contains(ids, id) {
		return nil, false, models.Invalid("route %s already contains %s", routeID, id)
	}
	next := append(slices.Clip(ids), id)
	return next, Reopen(p), nil
}

// EvaluateCompletion completes the route when every member is terminal. It is
// applied after every job or stop status change inside the route's scope. A
// route with no members, or one already completed, is left alone.
func EvaluateCompletion(kind Kind, p *models.RouteProgress, members []Member, now int64) bool {
	if p.Status == models.RouteStatusCompleted || len(members) == 0 {
		return false
	}
	if kind.outstanding(members) > 0 {
		return false
	}
	p.Status = models.RouteStatusCompleted
	p.CompletedAt = models.Int64Ptr(completionTime(members, now))
	return true
}

// completionTime never precedes the latest member completion
func completionTime(members []Member, now int64) int64 {
	at := now
	for _, m := range members {
		if m.CompletedAt != nil && *m.CompletedAt > at {
			at = *m.CompletedAt
		}
	}
	return at
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun + " is"
	}
	return fmt.Sprintf("%d %ss are", n, noun)
}
