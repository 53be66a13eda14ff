package airquality

import (
	"strings"
	"testing"
)

func TestEvaluateAlerts(t *testing.T) {
	calc := linearCalculator(t)
	result := func(name string, aqi float64) Report {
		res, err := calc.Compute(Location{Name: name}, []PollutantReading{reading(PM10, aqi)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return NewResultReport(res)
	}

	snap := Snapshot{Reports: map[string]Report{
		"Quiet":  result("Quiet", 40),
		"Edge":   result("Edge", 101),
		"Smoggy": result("Smoggy", 250),
		"Also":   result("Also", 101),
		"Broken": NewFailureReport(CollectionError{Location: Location{Name: "Broken"}, Kind: KindTimeout}),
	}}

	alerts := EvaluateAlerts(snap, 101)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}

	want := []string{"Smoggy", "Also", "Edge"}
	for i, a := range alerts {
		if a.Location.Name != want[i] {
			t.Errorf("alert %d: expected %s, got %s", i, want[i], a.Location.Name)
		}
		if !a.Active {
			t.Errorf("alert %d should be active", i)
		}
		if !strings.Contains(a.Message, a.Category.Name) || !strings.Contains(a.Message, "PM10") {
			t.Errorf("unexpected alert message %q", a.Message)
		}
	}

	if got := EvaluateAlerts(snap, 300); len(got) != 0 {
		t.Errorf("expected no alerts above 300, got %d", len(got))
	}
}
