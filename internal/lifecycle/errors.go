// Package lifecycle holds the status machines for routes, jobs and stops and
// the single route-completion rule shared by every route kind. Functions here
// mutate the value they are given and never touch storage.
package lifecycle

import (
	"fmt"

	"haulr-dispatch/internal/models"
)

// TransitionError rejects a status change. The entity is left unchanged.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s %s: cannot go from %s to %s", e.Entity, e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is lets callers treat every rejected transition as a validation error
func (e *TransitionError) Is(target error) bool {
	return target == models.ErrValidation
}

// Message is the notice shown to the person who attempted the change
func (e *TransitionError) Message() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("This %s is %s and cannot be marked %s.", e.Entity, humanize(e.From), humanize(e.To))
}

func humanize(status string) string {
	out := []rune(status)
	for i, r := range out {
		switch {
		case r == '_':
			out[i] = ' '
		case r >= 'A' && r <= 'Z':
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}

func reject(entity, id string, from, to fmt.Stringer, reason string) error {
	return &TransitionError{Entity: entity, ID: id, From: from.String(), To: to.String(), Reason: reason}
}
