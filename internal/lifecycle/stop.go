package lifecycle

import (
	"slices"

	"github.com/google/uuid"

	"haulr-dispatch/internal/models"
)

// Outcome is what a driver records when finishing a stop
type Outcome struct {
	Status  models.StopStatus `json:"status"`
	ActorID string            `json:"actorId"`
	Notes   string            `json:"notes,omitempty"`
	Photos  []string          `json:"photos,omitempty"`
}

// RecordOutcome closes a pending stop and appends exactly one history entry.
// Stops never return to PENDING, so a stop with an outcome rejects another.
func RecordOutcome(kind Kind, s *models.Stop, o Outcome, now int64) error {
	if o.ActorID == "" {
		return models.Invalid("stop %s: actor is required", s.ID)
	}
	if !o.Status.IsTerminal() {
		return reject("stop", s.ID, s.Status, o.Status, "A stop can only be closed with an outcome.")
	}
	if s.Status != models.StopStatusPending {
		return reject("stop", s.ID, s.Status, o.Status, "")
	}
	if !kind.Allows(o.Status) {
		return reject("stop", s.ID, s.Status, o.Status, "This outcome is not available on "+string(kind)+" routes.")
	}
	if kind.RequiresPhoto(o.Status) && len(o.Photos) == 0 {
		return reject("stop", s.ID, s.Status, o.Status, "Take a photo before marking this stop "+humanize(string(o.Status))+".")
	}

	entry := models.StopHistoryEntry{
		ID:      uuid.New().String(),
		Status:  o.Status,
		ActorID: o.ActorID,
		At:      now,
		Notes:   o.Notes,
		Photos:  slices.Clone(o.Photos),
	}
	s.History = append(slices.Clip(s.History), entry)
	s.Status = o.Status
	s.CompletedAt = models.Int64Ptr(now)
	return nil
}
