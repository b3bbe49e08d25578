package ports

import "context"

// SessionStateRepository persists the part of the dashboard state that
// survives a restart: the current experiment id.
type SessionStateRepository interface {
	GetCurrentExperimentID(ctx context.Context) (string, error)
	SetCurrentExperimentID(ctx context.Context, experimentID string) error
}
