package reconcile

import (
	"context"

	"haulr-dispatch/internal/models"
)

// Settings returns the dispatcher settings singleton, if it has been created
func (s *Store) Settings() (models.DispatcherSettings, bool) {
	items := s.DispatcherSettings.All()
	if len(items) == 0 {
		return models.DispatcherSettings{}, false
	}
	return items[0], true
}

// UpdateSettings applies u to the settings singleton, creating it first when
// it does not exist yet.
func (s *Store) UpdateSettings(ctx context.Context, u models.DispatcherSettingsUpdate) (models.DispatcherSettings, error) {
	var out models.DispatcherSettings
	err := s.DispatcherSettings.Mutate(ctx, func(items []models.DispatcherSettings) ([]models.DispatcherSettings, error) {
		current := models.DispatcherSettings{
			ID:        models.DispatcherSettingsID,
			CreatedAt: models.NowMillis(),
		}
		if len(items) > 0 {
			current = items[0]
		}
		if err := u.Apply(&current); err != nil {
			return nil, err
		}
		out = current
		return []models.DispatcherSettings{current}, nil
	})
	return out, err
}
