// Package dispatch applies the lifecycle rules to the reconciled collections.
// Every operation reads and writes through the reconcile store, so each change
// is optimistic, persisted locally and synced per collection.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/google/uuid"

	"haulr-dispatch/internal/lifecycle"
	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/reconcile"
)

// errUnchanged aborts an Update whose callback decided nothing needs saving
var errUnchanged = errors.New("unchanged")

// Service is the dispatcher and driver action surface
type Service struct {
	store *reconcile.Store
	now   func() int64
}

type Option func(*Service)

// WithClock replaces the millisecond clock used for timestamps
func WithClock(now func() int64) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store *reconcile.Store, opts ...Option) *Service {
	s := &Service{store: store, now: models.NowMillis}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newID(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

func notFound(c models.Collection, id string) error {
	return fmt.Errorf("%s %s: %w", c, id, models.ErrNotFound)
}

// ignoreUnchanged turns the errUnchanged sentinel back into success
func ignoreUnchanged(err error) error {
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

// CreateJob adds a job. Missing id, status and creation time are filled in.
func (s *Service) CreateJob(ctx context.Context, job models.Job) (models.Job, error) {
	if job.ID == "" {
		job.ID = newID("job")
	}
	if job.Status == "" {
		job.Status = models.JobStatusPlanned
	}
	if job.CreatedAt == 0 {
		job.CreatedAt = s.now()
	}
	if _, ok := s.store.Customers.Find(job.CustomerID); !ok && job.CustomerID != "" {
		return models.Job{}, notFound(models.CollectionCustomers, job.CustomerID)
	}
	job.Active = true
	if err := s.store.Jobs.Add(ctx, job); err != nil {
		return models.Job{}, err
	}
	return job, nil
}

// CreateRoute adds a planned route with no jobs
func (s *Service) CreateRoute(ctx context.Context, name, date string) (models.Route, error) {
	if strings.TrimSpace(name) == "" {
		return models.Route{}, models.Invalid("route name is required")
	}
	route := models.Route{
		ID:            newID("route"),
		Name:          name,
		Date:          date,
		JobIDs:        []string{},
		RouteProgress: models.RouteProgress{Status: models.RouteStatusPlanned},
		Active:        true,
		CreatedAt:     s.now(),
	}
	if err := s.store.Routes.Add(ctx, route); err != nil {
		return models.Route{}, err
	}
	return route, nil
}

// AddJobToRoute appends a job to a route. A completed route is reopened. A job
// already on another route is rejected; it has to be taken off that one first.
func (s *Service) AddJobToRoute(ctx context.Context, routeID, jobID string) (reopened bool, err error) {
	job, ok := s.store.Jobs.Find(jobID)
	if !ok {
		return false, notFound(models.CollectionJobs, jobID)
	}
	if job.RouteID != nil && *job.RouteID != routeID {
		return false, models.Invalid("job %s is already on route %s", jobID, *job.RouteID)
	}
	before, ok := s.store.Routes.Find(routeID)
	if !ok {
		return false, notFound(models.CollectionRoutes, routeID)
	}

	err = s.store.Routes.Update(ctx, routeID, func(r *models.Route) error {
		next, wasReopened, err := lifecycle.AddMember(&r.RouteProgress, r.ID, r.JobIDs, jobID)
		if err != nil {
			return err
		}
		r.JobIDs = next
		reopened = wasReopened
		return nil
	})
	if err != nil {
		return false, err
	}

	err = s.store.Jobs.Update(ctx, jobID, func(j *models.Job) error {
		j.RouteID = &routeID
		return nil
	})
	if err != nil {
		if rerr := s.store.Routes.Update(ctx, routeID, func(r *models.Route) error {
			*r = before
			return nil
		}); rerr != nil {
			log.Printf("⚠️ Failed to restore route %s: %v", routeID, rerr)
		}
		return false, err
	}
	return reopened, nil
}

// DispatchRoute assigns the driver and truck and hands the route over. Planned
// jobs on the route are assigned to the same driver and truck.
func (s *Service) DispatchRoute(ctx context.Context, routeID, driverID, truckID string) error {
	if d, ok := s.store.Drivers.Find(driverID); !ok || !d.Active {
		return notFound(models.CollectionDrivers, driverID)
	}
	if truckID != "" {
		if _, ok := s.store.Trucks.Find(truckID); !ok {
			return notFound(models.CollectionTrucks, truckID)
		}
	}

	var jobIDs []string
	err := s.store.Routes.Update(ctx, routeID, func(r *models.Route) error {
		if err := lifecycle.Dispatch(&r.RouteProgress, r.ID, s.now()); err != nil {
			return err
		}
		r.DriverID = &driverID
		if truckID != "" {
			r.TruckID = &truckID
		}
		jobIDs = r.JobIDs
		return nil
	})
	if err != nil || len(jobIDs) == 0 {
		return err
	}

	return s.store.Jobs.Mutate(ctx, func(jobs []models.Job) ([]models.Job, error) {
		for i := range jobs {
			if !slices.Contains(jobIDs, jobs[i].ID) || jobs[i].Status != models.JobStatusPlanned {
				continue
			}
			if err := lifecycle.AssignJob(&jobs[i], driverID, truckID); err != nil {
				return nil, err
			}
		}
		return jobs, nil
	})
}

func (s *Service) StartRoute(ctx context.Context, routeID string) error {
	return s.store.Routes.Update(ctx, routeID, func(r *models.Route) error {
		return lifecycle.Start(&r.RouteProgress, r.ID, s.now())
	})
}

// CompleteRoute is the explicit driver action. It is refused while any job on
// the route is not completed.
func (s *Service) CompleteRoute(ctx context.Context, routeID string) error {
	return s.store.Routes.Update(ctx, routeID, func(r *models.Route) error {
		members := lifecycle.JobMembers(r.JobIDs, s.store.Jobs.All())
		return lifecycle.Complete(lifecycle.KindRoute, &r.RouteProgress, r.ID, members, s.now())
	})
}

func (s *Service) StartJob(ctx context.Context, jobID string) error {
	return s.store.Jobs.Update(ctx, jobID, func(j *models.Job) error {
		return lifecycle.StartJob(j, s.now())
	})
}

func (s *Service) ArriveAtDump(ctx context.Context, jobID string) error {
	return s.store.Jobs.Update(ctx, jobID, lifecycle.ArriveAtDump)
}

func (s *Service) SuspendJob(ctx context.Context, jobID, reason string) error {
	return s.store.Jobs.Update(ctx, jobID, func(j *models.Job) error {
		return lifecycle.SuspendJob(j, reason)
	})
}

func (s *Service) ResumeJob(ctx context.Context, jobID string) error {
	return s.store.Jobs.Update(ctx, jobID, lifecycle.ResumeJob)
}

// CompleteJob completes a job and then completes its route when that was the
// last outstanding job.
func (s *Service) CompleteJob(ctx context.Context, jobID string) (routeCompleted bool, err error) {
	var routeID *string
	err = s.store.Jobs.Update(ctx, jobID, func(j *models.Job) error {
		if err := lifecycle.CompleteJob(j, s.now()); err != nil {
			return err
		}
		routeID = j.RouteID
		return nil
	})
	if err != nil || routeID == nil {
		return false, err
	}
	return s.evaluateRoute(ctx, *routeID)
}

func (s *Service) evaluateRoute(ctx context.Context, routeID string) (bool, error) {
	completed := false
	err := s.store.Routes.Update(ctx, routeID, func(r *models.Route) error {
		members := lifecycle.JobMembers(r.JobIDs, s.store.Jobs.All())
		if !lifecycle.EvaluateCompletion(lifecycle.KindRoute, &r.RouteProgress, members, s.now()) {
			return errUnchanged
		}
		completed = true
		return nil
	})
	if errors.Is(err, models.ErrNotFound) {
		// the job points at a route that was deleted
		return false, nil
	}
	return completed, ignoreUnchanged(err)
}

// SendMessage stores a message between a dispatcher and a driver
func (s *Service) SendMessage(ctx context.Context, fromID, toID, body string) (models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return models.Message{}, models.Invalid("message body is required")
	}
	msg := models.Message{
		ID:        newID("msg"),
		FromID:    fromID,
		ToID:      toID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.store.Messages.Add(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}
