package obs

import (
	"context"
	"errors"
	"sales-route-service/internal/metrics"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTimeObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.OpDuration)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")

	_ = func() (err error) {
		defer Time(ctx, "timing_test.ok")(&err)
		return nil
	}()
	_ = func() (err error) {
		defer Time(ctx, "timing_test.fail")(&err)
		return errors.New("boom")
	}()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	got := map[string]uint64{}
	for _, f := range families {
		if f.GetName() != "op_duration_seconds" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			got[labels["op"]+"/"+labels["outcome"]] = m.GetHistogram().GetSampleCount()
		}
	}

	if got["timing_test.ok/ok"] != 1 || got["timing_test.fail/error"] != 1 {
		t.Fatalf("samples = %v, want one ok and one error", got)
	}
}

func TestRequestID(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
	ctx := context.WithValue(context.Background(), RequestIDKey, "abc")
	if got := RequestID(ctx); got != "abc" {
		t.Fatalf("got %q, want abc", got)
	}
}
