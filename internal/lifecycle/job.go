package lifecycle

import (
	"slices"

	"haulr-dispatch/internal/models"
)

var jobTransitions = map[models.JobStatus][]models.JobStatus{
	models.JobStatusPlanned:    {models.JobStatusAssigned, models.JobStatusInProgress},
	models.JobStatusAssigned:   {models.JobStatusAssigned, models.JobStatusInProgress, models.JobStatusSuspended},
	models.JobStatusInProgress: {models.JobStatusAtDump, models.JobStatusSuspended, models.JobStatusCompleted},
	models.JobStatusAtDump:     {models.JobStatusInProgress, models.JobStatusSuspended, models.JobStatusCompleted},
	// resuming goes through ResumeJob so the reason is cleared
	models.JobStatusSuspended: {},
	models.JobStatusCompleted: {},
}

func moveJob(j *models.Job, to models.JobStatus, reason string) error {
	if !slices.Contains(jobTransitions[j.Status], to) {
		return reject("job", j.ID, j.Status, to, reason)
	}
	j.Status = to
	return nil
}

// AssignJob gives a planned job to a driver and truck
func AssignJob(j *models.Job, driverID, truckID string) error {
	if driverID == "" {
		return models.Invalid("job %s: driver is required", j.ID)
	}
	if err := moveJob(j, models.JobStatusAssigned, ""); err != nil {
		return err
	}
	j.DriverID = &driverID
	if truckID != "" {
		j.TruckID = &truckID
	}
	return nil
}

func StartJob(j *models.Job, now int64) error {
	if err := moveJob(j, models.JobStatusInProgress, ""); err != nil {
		return err
	}
	if j.StartedAt == nil {
		j.StartedAt = models.Int64Ptr(now)
	}
	return nil
}

// ArriveAtDump marks the truck as tipping the load
func ArriveAtDump(j *models.Job) error {
	return moveJob(j, models.JobStatusAtDump, "")
}

// SuspendJob parks a job with a reason the dispatcher can read
func SuspendJob(j *models.Job, reason string) error {
	if reason == "" {
		return models.Invalid("job %s: a suspend reason is required", j.ID)
	}
	if err := moveJob(j, models.JobStatusSuspended, ""); err != nil {
		return err
	}
	j.SuspendedReason = reason
	return nil
}

// ResumeJob continues a suspended job
func ResumeJob(j *models.Job) error {
	if j.Status != models.JobStatusSuspended {
		return reject("job", j.ID, j.Status, models.JobStatusInProgress, "Only suspended jobs can be resumed.")
	}
	j.Status = models.JobStatusInProgress
	j.SuspendedReason = ""
	return nil
}

func CompleteJob(j *models.Job, now int64) error {
	if err := moveJob(j, models.JobStatusCompleted, ""); err != nil {
		return err
	}
	j.CompletedAt = models.Int64Ptr(now)
	return nil
}
