package lifecycle

import "haulr-dispatch/internal/models"

// Kind tags the four route-like entities. Each kind names the collection that
// holds its routes, the collection that holds its members and the rule that
// decides when a member is done.
type Kind string

const (
	KindRoute       Kind = "route"
	KindContainer   Kind = "container"
	KindResidential Kind = "residential"
	KindCommercial  Kind = "commercial"
)

var Kinds = []Kind{KindRoute, KindContainer, KindResidential, KindCommercial}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", models.Invalid("unknown route kind %q", s)
}

func (k Kind) String() string { return string(k) }

// RouteCollection is where routes of this kind are stored
func (k Kind) RouteCollection() models.Collection {
	switch k {
	case KindContainer:
		return models.CollectionContainerRoutes
	case KindResidential:
		return models.CollectionResidentialRoutes
	case KindCommercial:
		return models.CollectionCommercialRoutes
	}
	return models.CollectionRoutes
}

// MemberCollection is where the jobs or stops of this kind are stored
func (k Kind) MemberCollection() models.Collection {
	switch k {
	case KindContainer:
		return models.CollectionContainerJobs
	case KindResidential:
		return models.CollectionResidentialStops
	case KindCommercial:
		return models.CollectionCommercialStops
	}
	return models.CollectionJobs
}

// Terminal reports whether a member in status is done for route completion.
// Jobs finish only as COMPLETED; stops finish with any outcome.
func (k Kind) Terminal(status string) bool {
	if k == KindRoute {
		return models.JobStatus(status) == models.JobStatusCompleted
	}
	return models.StopStatus(status).IsTerminal()
}

// Allows reports whether a stop of this kind may be closed with status
func (k Kind) Allows(status models.StopStatus) bool {
	switch k {
	case KindResidential, KindCommercial:
		return status.IsTerminal()
	case KindContainer:
		// a roll-off box is never "not out"
		return status.IsTerminal() && status != models.StopStatusNotOut
	}
	return false
}

// RequiresPhoto is the per-flow photo rule
func (k Kind) RequiresPhoto(status models.StopStatus) bool {
	return k == KindResidential && status == models.StopStatusNotOut
}

func (k Kind) memberNoun() string {
	if k == KindRoute || k == KindContainer {
		return "job"
	}
	return "stop"
}

func (k Kind) outstanding(members []Member) int {
	open := 0
	for _, m := range members {
		if !k.Terminal(m.Status) {
			open++
		}
	}
	return open
}

// Member is a job or stop reduced to what route completion needs
type Member struct {
	ID          string
	Status      string
	CompletedAt *int64
}

// JobMembers resolves a route's job ids. Ids that no longer resolve are skipped.
func JobMembers(ids []string, jobs []models.Job) []Member {
	byID := make(map[string]models.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	out := make([]Member, 0, len(ids))
	for _, id := range ids {
		if j, ok := byID[id]; ok {
			out = append(out, Member{ID: id, Status: string(j.Status), CompletedAt: j.CompletedAt})
		}
	}
	return out
}

// StopMembers resolves a stop route's stop ids. Ids that no longer resolve are skipped.
func StopMembers(ids []string, stops []models.Stop) []Member {
	byID := make(map[string]models.Stop, len(stops))
	for _, s := range stops {
		byID[s.ID] = s
	}
	out := make([]Member, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, Member{ID: id, Status: string(s.Status), CompletedAt: s.CompletedAt})
		}
	}
	return out
}
