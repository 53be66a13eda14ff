package airquality

import (
	"fmt"
	"sort"
)

// MaxIndex is the top of the range the categories must partition.
const MaxIndex = 500

// DefaultCategories returns the EPA categories.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Good", MinAQI: 0, MaxAQI: 50, Color: "#00E400"},
		{Name: "Moderate", MinAQI: 51, MaxAQI: 100, Color: "#FFFF00"},
		{Name: "Unhealthy for Sensitive Groups", MinAQI: 101, MaxAQI: 150, Color: "#FF7E00"},
		{Name: "Unhealthy", MinAQI: 151, MaxAQI: 200, Color: "#FF0000"},
		{Name: "Very Unhealthy", MinAQI: 201, MaxAQI: 300, Color: "#8F3F97"},
		{Name: "Hazardous", MinAQI: 301, MaxAQI: 500, Color: "#7E0023"},
	}
}

// Classifier maps an AQI value onto its category.
type Classifier struct {
	categories []Category
}

// NewClassifier checks that categories partition [0, MaxIndex] in order
// without gaps or overlaps.
func NewClassifier(categories []Category) (*Classifier, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrConfiguration)
	}

	next := 0
	for i, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", ErrConfiguration, i)
		}
		if c.MinAQI != next {
			return nil, fmt.Errorf("%w: category %q starts at %d, expected %d", ErrConfiguration, c.Name, c.MinAQI, next)
		}
		if c.MaxAQI < c.MinAQI {
			return nil, fmt.Errorf("%w: category %q has an inverted range", ErrConfiguration, c.Name)
		}
		next = c.MaxAQI + 1
	}
	if last := categories[len(categories)-1]; last.MaxAQI != MaxIndex {
		return nil, fmt.Errorf("%w: last category %q ends at %d, expected %d", ErrConfiguration, last.Name, last.MaxAQI, MaxIndex)
	}

	cs := make([]Category, len(categories))
	copy(cs, categories)
	return &Classifier{categories: cs}, nil
}

// Classify returns the category containing aqi. Values above the table
// resolve to the last (worst) category.
func (c *Classifier) Classify(aqi int) Category {
	i := sort.Search(len(c.categories), func(i int) bool {
		return c.categories[i].MaxAQI >= aqi
	})
	if i == len(c.categories) {
		i--
	}
	return c.categories[i]
}

// Categories returns the categories in ascending order.
func (c *Classifier) Categories() []Category {
	cs := make([]Category, len(c.categories))
	copy(cs, c.categories)
	return cs
}
