package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue sums the data points of a counter whose attribute key equals val.
func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name, key, val string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, want Sum[int64]", name, met.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == val {
			total += dp.Value
		}
	}
	return total
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordStage(context.Background(), "transcribing", 1500*time.Millisecond)
	m.RecordStage(context.Background(), "transcribing", 500*time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "voxpaste.stage.duration")
	if met == nil {
		t.Fatal("voxpaste.stage.duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data is %T, want Histogram[float64]", met.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 2 {
		t.Errorf("count = %d, want 2", dp.Count)
	}
	if dp.Sum != 2.0 {
		t.Errorf("sum = %f, want 2.0", dp.Sum)
	}
}

func TestRecordSessionAndRefine(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordSession(ctx, "injected")
	m.RecordSession(ctx, "injected")
	m.RecordSession(ctx, "silent")
	m.RecordRefine(ctx, "skipped")

	rm := collect(t, reader)
	if got := counterValue(t, rm, "voxpaste.sessions", "outcome", "injected"); got != 2 {
		t.Errorf("injected sessions = %d, want 2", got)
	}
	if got := counterValue(t, rm, "voxpaste.sessions", "outcome", "silent"); got != 1 {
		t.Errorf("silent sessions = %d, want 1", got)
	}
	if got := counterValue(t, rm, "voxpaste.refine.outcomes", "outcome", "skipped"); got != 1 {
		t.Errorf("skipped refinements = %d, want 1", got)
	}
}

func TestRecordInjectAttempt(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordInjectAttempt(ctx, errors.New("busy"))
	m.RecordInjectAttempt(ctx, nil)

	rm := collect(t, reader)
	if got := counterValue(t, rm, "voxpaste.inject.attempts", "status", "error"); got != 1 {
		t.Errorf("failed attempts = %d, want 1", got)
	}
	if got := counterValue(t, rm, "voxpaste.inject.attempts", "status", "ok"); got != 1 {
		t.Errorf("ok attempts = %d, want 1", got)
	}
}

func TestDiscard(t *testing.T) {
	m := Discard()
	m.RecordStage(context.Background(), "idle", time.Second)
	m.RecordSession(context.Background(), "error")
}
