package otel

import (
	"context"
	"time"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) RecordPoll(context.Context, string, domain.StatusValue, time.Duration, error) {}

func (e *NoOpExporter) RecordTerminal(context.Context, string, domain.StatusValue) {}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}
