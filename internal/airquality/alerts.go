package airquality

import (
	"fmt"
	"sort"
)

// EvaluateAlerts returns an active alert for every successful report whose
// AQI is at least minAQI, worst first.
func EvaluateAlerts(snapshot Snapshot, minAQI int) []Alert {
	var alerts []Alert
	for _, r := range snapshot.Reports {
		res, ok := r.Result()
		if !ok || res.AQI < minAQI {
			continue
		}
		alerts = append(alerts, Alert{
			Location: res.Location,
			AQI:      res.AQI,
			Category: res.Category,
			Message: fmt.Sprintf("Air quality in %s is %s (AQI %d, dominant pollutant %s)",
				res.Location.Name, res.Category.Name, res.AQI, res.DominantPollutant),
			Timestamp: res.ComputedAt,
			Active:    true,
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].AQI != alerts[j].AQI {
			return alerts[i].AQI > alerts[j].AQI
		}
		return alerts[i].Location.Name < alerts[j].Location.Name
	})
	return alerts
}
