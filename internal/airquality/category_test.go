package airquality

import (
	"errors"
	"testing"
)

func mustClassifier(t *testing.T, categories []Category) *Classifier {
	t.Helper()
	c, err := NewClassifier(categories)
	if err != nil {
		t.Fatalf("unexpected classifier error: %v", err)
	}
	return c
}

// TestClassifyPartition verifies that every index in [0, 500] lands in the one
// category whose range contains it.
func TestClassifyPartition(t *testing.T) {
	c := mustClassifier(t, DefaultCategories())

	for aqi := 0; aqi <= MaxIndex; aqi++ {
		got := c.Classify(aqi)
		if aqi < got.MinAQI || aqi > got.MaxAQI {
			t.Fatalf("aqi %d classified as %q [%d, %d]", aqi, got.Name, got.MinAQI, got.MaxAQI)
		}

		matches := 0
		for _, cat := range c.Categories() {
			if aqi >= cat.MinAQI && aqi <= cat.MaxAQI {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("aqi %d falls in %d categories", aqi, matches)
		}
	}
}

func TestClassifyOutOfRange(t *testing.T) {
	c := mustClassifier(t, DefaultCategories())

	if got := c.Classify(501); got.Name != "Hazardous" {
		t.Errorf("expected Hazardous above the table, got %q", got.Name)
	}
	if got := c.Classify(9999); got.Name != "Hazardous" {
		t.Errorf("expected Hazardous far above the table, got %q", got.Name)
	}
	if got := c.Classify(-1); got.Name != "Good" {
		t.Errorf("expected Good below zero, got %q", got.Name)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	c := mustClassifier(t, DefaultCategories())

	tests := map[int]string{
		0:   "Good",
		50:  "Good",
		51:  "Moderate",
		100: "Moderate",
		101: "Unhealthy for Sensitive Groups",
		151: "Unhealthy",
		201: "Very Unhealthy",
		300: "Very Unhealthy",
		301: "Hazardous",
		500: "Hazardous",
	}
	for aqi, want := range tests {
		if got := c.Classify(aqi).Name; got != want {
			t.Errorf("aqi %d: expected %q, got %q", aqi, want, got)
		}
	}
}

func TestNewClassifierValidation(t *testing.T) {
	tests := []struct {
		name       string
		categories []Category
	}{
		{"empty", nil},
		{"not starting at zero", []Category{{Name: "A", MinAQI: 1, MaxAQI: 500}}},
		{"gap", []Category{{Name: "A", MinAQI: 0, MaxAQI: 50}, {Name: "B", MinAQI: 52, MaxAQI: 500}}},
		{"overlap", []Category{{Name: "A", MinAQI: 0, MaxAQI: 50}, {Name: "B", MinAQI: 50, MaxAQI: 500}}},
		{"short", []Category{{Name: "A", MinAQI: 0, MaxAQI: 300}}},
		{"unnamed", []Category{{MinAQI: 0, MaxAQI: 500}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClassifier(tt.categories); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	c := mustClassifier(t, DefaultCategories())

	cats := c.Categories()
	cats[0].Name = "changed"

	if c.Classify(0).Name != "Good" {
		t.Fatal("classifier state was modified through Categories()")
	}
}
