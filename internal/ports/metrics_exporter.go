package ports

import (
	"context"
	"time"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

// PollMetrics records polling activity to an external observability system.
type PollMetrics interface {
	// RecordPoll records one settled status fetch. status is empty on failure.
	RecordPoll(ctx context.Context, experimentID string, status domain.StatusValue, elapsed time.Duration, err error)
	// RecordTerminal records the transition of a session into a terminal state.
	RecordTerminal(ctx context.Context, experimentID string, status domain.StatusValue)
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}
