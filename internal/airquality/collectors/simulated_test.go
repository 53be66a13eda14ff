package collectors

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/i474232898/aqi-monitor/internal/airquality"
)

var beijing = airquality.Location{Name: "Beijing", Country: "China", Latitude: 39.9042, Longitude: 116.4074}

func clockAt(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestSimulatedDeterministicWithinBucket(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	first := NewSimulatedCollector(5*time.Minute, clockAt(base.Add(time.Minute)), nil)
	second := NewSimulatedCollector(5*time.Minute, clockAt(base.Add(4*time.Minute)), nil)

	a, err := first.Fetch(context.Background(), beijing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := second.Fetch(context.Background(), beijing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("readings differ inside one bucket (-first +second):\n%s", diff)
	}
	for _, r := range a {
		if !r.ObservedAt.Equal(base) {
			t.Errorf("%s observed at %v, expected bucket start %v", r.Pollutant, r.ObservedAt, base)
		}
	}

	next := NewSimulatedCollector(5*time.Minute, clockAt(base.Add(6*time.Minute)), nil)
	c, err := next.Fetch(context.Background(), beijing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.Equal(a, c) {
		t.Fatal("expected readings to change in the next bucket")
	}
}

func TestSimulatedReadingsAreComplete(t *testing.T) {
	sim := NewSimulatedCollector(0, nil, nil)

	readings, err := sim.Fetch(context.Background(), airquality.Location{Name: "Nowhere"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[airquality.Pollutant]bool{}
	for _, r := range readings {
		if r.Concentration < 0 {
			t.Errorf("%s: negative concentration %v", r.Pollutant, r.Concentration)
		}
		if r.Unit == "" {
			t.Errorf("%s: missing unit", r.Pollutant)
		}
		seen[r.Pollutant] = true
	}
	for _, p := range airquality.Pollutants {
		if !seen[p] {
			t.Errorf("missing %s reading", p)
		}
	}
}

func TestSimulatedProfilesShapeLevels(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mean := func(name string) float64 {
		var sum float64
		const n = 200
		for i := 0; i < n; i++ {
			sim := NewSimulatedCollector(5*time.Minute, clockAt(start.Add(time.Duration(i)*5*time.Minute)), nil)
			readings, err := sim.Fetch(context.Background(), airquality.Location{Name: name})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sum += readings[0].Concentration
		}
		return sum / n
	}

	if delhi, tokyo := mean("Delhi"), mean("Tokyo"); delhi <= tokyo {
		t.Fatalf("expected Delhi PM2.5 (%.1f) above Tokyo (%.1f)", delhi, tokyo)
	}
}

func TestSimulatedHonoursCancelledContext(t *testing.T) {
	sim := NewSimulatedCollector(0, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sim.Fetch(ctx, beijing); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
