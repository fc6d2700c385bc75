package authgate

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	if m.Enabled() {
		t.Fatal("metrics reported enabled")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled counter = %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot has %d counters", len(snap.Counters))
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*perWorker {
		t.Fatalf("counter = %d, want %d", got, workers*perWorker)
	}
}

func TestMetricsOutOfRangeIDIgnored(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(metricIDCount)
	m.Inc(metricIDCount + 100)
	if got := m.Value(metricIDCount + 100); got != 0 {
		t.Fatalf("out-of-range value = %d", got)
	}
}

func TestMetricsNilSafety(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	if m.Enabled() {
		t.Fatal("nil metrics enabled")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("nil value = %d", got)
	}
}

func TestEngineCountersAcrossFlows(t *testing.T) {
	up := newMockUserProvider()
	engine, _, _ := newTestEngine(t, up)
	ctx := context.Background()

	if _, err := engine.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "long-enough-pass"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := engine.Login(ctx, "a@example.com", "long-enough-pass", ""); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "a@example.com", "wrong-password-1", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login err = %v", err)
	}

	snap := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricRegisterSuccess:    1,
		MetricVerificationIssued: 1,
		MetricLoginSuccess:       1,
		MetricLoginFailure:       1,
		MetricSessionCreated:     1,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("counter %d = %d, want %d", id, got, want)
		}
	}
}
