package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += int64(dp.Count)
				}
			}
		}
	}
	return sums
}

func TestExporter_RecordsPolls(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exp, err := newExporter(provider)
	if err != nil {
		t.Fatalf("newExporter failed: %v", err)
	}
	t.Cleanup(func() { _ = exp.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	exp.RecordPoll(ctx, "exp-1", domain.StatusRunning, 120*time.Millisecond, nil)
	exp.RecordPoll(ctx, "exp-1", "", time.Second, errors.New("timeout"))
	cancel()
	exp.RecordPoll(ctx, "exp-1", domain.StatusCompleted, 80*time.Millisecond, nil)
	exp.RecordTerminal(ctx, "exp-1", domain.StatusCompleted)

	got := collect(t, reader)
	want := map[string]int64{
		"mlab_polls_total":                3,
		"mlab_poll_failures_total":        1,
		"mlab_experiments_terminal_total": 1,
		"mlab_poll_duration_seconds":      3,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestNew_DisabledReturnsNoOp(t *testing.T) {
	m, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := m.(*NoOpExporter); !ok {
		t.Errorf("expected NoOpExporter, got %T", m)
	}
	if _, err := NewExporter(context.Background(), Config{Enabled: true}); err == nil {
		t.Error("expected error without endpoint")
	}
}
