package dispatch

import (
	"context"
	"errors"
	"log"

	"haulr-dispatch/internal/lifecycle"
	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/reconcile"
)

// stopTables binds one stop-route kind to its two collections
type stopTables[R, S models.Entity] struct {
	kind   lifecycle.Kind
	routes *reconcile.Table[R]
	stops  *reconcile.Table[S]
	route  func(*R) *models.StopRoute
	stop   func(*S) *models.Stop
	wrap   func(models.Stop) S
}

func (t stopTables[R, S]) allStops() []models.Stop {
	items := t.stops.All()
	out := make([]models.Stop, len(items))
	for i := range items {
		out[i] = *t.stop(&items[i])
	}
	return out
}

func (s *Service) containerTables() stopTables[models.ContainerRoute, models.ContainerJob] {
	return stopTables[models.ContainerRoute, models.ContainerJob]{
		kind:   lifecycle.KindContainer,
		routes: s.store.ContainerRoutes,
		stops:  s.store.ContainerJobs,
		route:  func(r *models.ContainerRoute) *models.StopRoute { return &r.StopRoute },
		stop:   func(c *models.ContainerJob) *models.Stop { return &c.Stop },
		wrap:   func(st models.Stop) models.ContainerJob { return models.ContainerJob{Stop: st} },
	}
}

func (s *Service) residentialTables() stopTables[models.ResidentialRoute, models.ResidentialStop] {
	return stopTables[models.ResidentialRoute, models.ResidentialStop]{
		kind:   lifecycle.KindResidential,
		routes: s.store.ResidentialRoutes,
		stops:  s.store.ResidentialStops,
		route:  func(r *models.ResidentialRoute) *models.StopRoute { return &r.StopRoute },
		stop:   func(c *models.ResidentialStop) *models.Stop { return &c.Stop },
		wrap:   func(st models.Stop) models.ResidentialStop { return models.ResidentialStop{Stop: st} },
	}
}

func (s *Service) commercialTables() stopTables[models.CommercialRoute, models.CommercialStop] {
	return stopTables[models.CommercialRoute, models.CommercialStop]{
		kind:   lifecycle.KindCommercial,
		routes: s.store.CommercialRoutes,
		stops:  s.store.CommercialStops,
		route:  func(r *models.CommercialRoute) *models.StopRoute { return &r.StopRoute },
		stop:   func(c *models.CommercialStop) *models.Stop { return &c.Stop },
		wrap:   func(st models.Stop) models.CommercialStop { return models.CommercialStop{Stop: st} },
	}
}

// CreateStopRoute adds a planned stop route of the given kind
func (s *Service) CreateStopRoute(ctx context.Context, kind lifecycle.Kind, name, date string) (models.StopRoute, error) {
	if name == "" {
		return models.StopRoute{}, models.Invalid("route name is required")
	}
	route := models.StopRoute{
		ID:            newID(string(kind)),
		Name:          name,
		Date:          date,
		StopIDs:       []string{},
		RouteProgress: models.RouteProgress{Status: models.RouteStatusPlanned},
		Active:        true,
		CreatedAt:     s.now(),
	}

	var err error
	switch kind {
	case lifecycle.KindContainer:
		err = s.store.ContainerRoutes.Add(ctx, models.ContainerRoute{StopRoute: route})
	case lifecycle.KindResidential:
		err = s.store.ResidentialRoutes.Add(ctx, models.ResidentialRoute{StopRoute: route})
	case lifecycle.KindCommercial:
		err = s.store.CommercialRoutes.Add(ctx, models.CommercialRoute{StopRoute: route})
	default:
		err = models.Invalid("%s is not a stop route kind", kind)
	}
	if err != nil {
		return models.StopRoute{}, err
	}
	return route, nil
}

// AddStopToRoute creates a pending stop at the end of a stop route. Adding to a
// completed route reopens it.
func (s *Service) AddStopToRoute(ctx context.Context, kind lifecycle.Kind, routeID string, stop models.Stop) (models.Stop, bool, error) {
	if stop.ID == "" {
		stop.ID = newID("stop")
	}
	stop.RouteID = &routeID
	stop.Status = models.StopStatusPending
	stop.History = []models.StopHistoryEntry{}
	stop.CompletedAt = nil
	stop.Active = true
	if stop.CreatedAt == 0 {
		stop.CreatedAt = s.now()
	}

	var reopened bool
	var err error
	switch kind {
	case lifecycle.KindContainer:
		reopened, err = addStop(ctx, s.containerTables(), routeID, stop)
	case lifecycle.KindResidential:
		reopened, err = addStop(ctx, s.residentialTables(), routeID, stop)
	case lifecycle.KindCommercial:
		reopened, err = addStop(ctx, s.commercialTables(), routeID, stop)
	default:
		err = models.Invalid("%s is not a stop route kind", kind)
	}
	if err != nil {
		return models.Stop{}, false, err
	}
	return stop, reopened, nil
}

func addStop[R, S models.Entity](ctx context.Context, t stopTables[R, S], routeID string, stop models.Stop) (bool, error) {
	before, ok := t.routes.Find(routeID)
	if !ok {
		return false, notFound(t.kind.RouteCollection(), routeID)
	}
	if _, ok := t.stops.Find(stop.ID); ok {
		return false, models.Invalid("%s: duplicate id %q", t.kind.MemberCollection(), stop.ID)
	}

	var reopened bool
	err := t.routes.Update(ctx, routeID, func(rv *R) error {
		r := t.route(rv)
		stop.Sequence = len(r.StopIDs) + 1
		next, wasReopened, err := lifecycle.AddMember(&r.RouteProgress, r.ID, r.StopIDs, stop.ID)
		if err != nil {
			return err
		}
		r.StopIDs = next
		reopened = wasReopened
		return nil
	})
	if err != nil {
		return false, err
	}
	if err := t.stops.Add(ctx, t.wrap(stop)); err != nil {
		// put the route back the way it was
		if rerr := t.routes.Update(ctx, routeID, func(rv *R) error {
			*rv = before
			return nil
		}); rerr != nil {
			log.Printf("⚠️ Failed to restore %s %s: %v", t.kind.RouteCollection(), routeID, rerr)
		}
		return false, err
	}
	return reopened, nil
}

// RecordStopOutcome closes a stop and completes its route when that was the
// last pending stop.
func (s *Service) RecordStopOutcome(ctx context.Context, kind lifecycle.Kind, stopID string, o lifecycle.Outcome) (routeCompleted bool, err error) {
	switch kind {
	case lifecycle.KindContainer:
		return recordOutcome(ctx, s.containerTables(), stopID, o, s.now)
	case lifecycle.KindResidential:
		return recordOutcome(ctx, s.residentialTables(), stopID, o, s.now)
	case lifecycle.KindCommercial:
		return recordOutcome(ctx, s.commercialTables(), stopID, o, s.now)
	}
	return false, models.Invalid("%s is not a stop route kind", kind)
}

func recordOutcome[R, S models.Entity](ctx context.Context, t stopTables[R, S], stopID string, o lifecycle.Outcome, now func() int64) (bool, error) {
	var routeID *string
	err := t.stops.Update(ctx, stopID, func(sv *S) error {
		st := t.stop(sv)
		if err := lifecycle.RecordOutcome(t.kind, st, o, now()); err != nil {
			return err
		}
		routeID = st.RouteID
		return nil
	})
	if err != nil || routeID == nil {
		return false, err
	}
	return evaluateStopRoute(ctx, t, *routeID, now)
}

func evaluateStopRoute[R, S models.Entity](ctx context.Context, t stopTables[R, S], routeID string, now func() int64) (bool, error) {
	completed := false
	err := t.routes.Update(ctx, routeID, func(rv *R) error {
		r := t.route(rv)
		members := lifecycle.StopMembers(r.StopIDs, t.allStops())
		if !lifecycle.EvaluateCompletion(t.kind, &r.RouteProgress, members, now()) {
			return errUnchanged
		}
		completed = true
		return nil
	})
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return completed, ignoreUnchanged(err)
}

// AdvanceStopRoute runs one of the route-level transitions on a stop route
func (s *Service) AdvanceStopRoute(ctx context.Context, kind lifecycle.Kind, routeID string, to models.RouteStatus) error {
	switch kind {
	case lifecycle.KindContainer:
		return advanceStopRoute(ctx, s.containerTables(), routeID, to, s.now)
	case lifecycle.KindResidential:
		return advanceStopRoute(ctx, s.residentialTables(), routeID, to, s.now)
	case lifecycle.KindCommercial:
		return advanceStopRoute(ctx, s.commercialTables(), routeID, to, s.now)
	}
	return models.Invalid("%s is not a stop route kind", kind)
}

func advanceStopRoute[R, S models.Entity](ctx context.Context, t stopTables[R, S], routeID string, to models.RouteStatus, now func() int64) error {
	return t.routes.Update(ctx, routeID, func(rv *R) error {
		r := t.route(rv)
		switch to {
		case models.RouteStatusDispatched:
			return lifecycle.Dispatch(&r.RouteProgress, r.ID, now())
		case models.RouteStatusInProgress:
			return lifecycle.Start(&r.RouteProgress, r.ID, now())
		case models.RouteStatusCompleted:
			members := lifecycle.StopMembers(r.StopIDs, t.allStops())
			return lifecycle.Complete(t.kind, &r.RouteProgress, r.ID, members, now())
		}
		return models.Invalid("cannot move a route to %s", to)
	})
}
