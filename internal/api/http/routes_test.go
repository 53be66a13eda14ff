package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/aqi-monitor/internal/airquality"
	"github.com/i474232898/aqi-monitor/internal/airquality/collectors"
	"github.com/i474232898/aqi-monitor/internal/store"
)

var now = time.Date(2024, 7, 4, 15, 2, 0, 0, time.UTC)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	table, err := airquality.NewBreakpointTable(airquality.DefaultBreakpoints()...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	classifier, err := airquality.NewClassifier(airquality.DefaultCategories())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock := func() time.Time { return now }

	svc, err := airquality.NewService(
		collectors.NewSimulatedCollector(5*time.Minute, clock, nil),
		airquality.NewCalculator(table, classifier, clock),
		store.NewMemoryStore(10, 0),
		[]airquality.Location{
			{Name: "New York", Country: "USA", Latitude: 40.7128, Longitude: -74.0060},
			{Name: "Delhi", Country: "India", Latitude: 28.7041, Longitude: 77.1025},
		},
		airquality.Options{Now: clock},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app, svc)
	return app
}

func do(t *testing.T, app *fiber.App, method, target string) (int, map[string]interface{}) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]interface{}
	if resp.StatusCode < 400 {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, target, err, raw)
		}
	}
	return resp.StatusCode, body
}

func TestAirQualityBeforeAndAfterRefresh(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodGet, "/api/v1/air-quality")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body["stale"] != true || len(body["locations"].(map[string]interface{})) != 0 {
		t.Fatalf("expected an empty stale snapshot, got %v", body)
	}

	status, body = do(t, app, http.MethodPost, "/api/v1/refresh")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	id := body["snapshot_id"]
	if id == "" || id == nil {
		t.Fatalf("expected a snapshot id, got %v", body)
	}

	status, body = do(t, app, http.MethodGet, "/api/v1/air-quality")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body["snapshot_id"] != id || body["stale"] != false || body["ttl_seconds"].(float64) != 300 {
		t.Fatalf("unexpected snapshot view: %v", body)
	}
	locations := body["locations"].(map[string]interface{})
	if len(locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(locations))
	}
	delhi := locations["Delhi"].(map[string]interface{})
	if _, ok := delhi["aqi"]; !ok {
		t.Fatalf("expected Delhi to have an aqi, got %v", delhi)
	}
}

func TestAirQualityForLocation(t *testing.T) {
	app := newTestApp(t)
	do(t, app, http.MethodPost, "/api/v1/refresh")

	status, body := do(t, app, http.MethodGet, "/api/v1/air-quality/New%20York")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body["source"] != "simulated" || body["dominant_pollutant"] == "" {
		t.Fatalf("unexpected report: %v", body)
	}

	status, _ = do(t, app, http.MethodGet, "/api/v1/air-quality/Atlantis")
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}
}

// TestHistoryValidation verifies that the history endpoint enforces a valid
// time range.
func TestHistoryValidation(t *testing.T) {
	app := newTestApp(t)

	// Missing range should return 400.
	status, _ := do(t, app, http.MethodGet, "/api/v1/air-quality/Delhi/history")
	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}

	// to before from should also return 400.
	target := fmt.Sprintf("/api/v1/air-quality/Delhi/history?from=%d&to=%d", now.Unix(), now.Add(-time.Hour).Unix())
	status, _ = do(t, app, http.MethodGet, target)
	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}

	status, _ = do(t, app, http.MethodGet, "/api/v1/air-quality/Delhi/history?from=yesterday&to=today")
	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}
}

func TestHistory(t *testing.T) {
	app := newTestApp(t)

	from := now.Add(-time.Hour).Format(time.RFC3339)
	to := now.Add(time.Hour).Format(time.RFC3339)
	target := "/api/v1/air-quality/Delhi/history?from=" + from + "&to=" + to

	// Nothing stored yet.
	status, _ := do(t, app, http.MethodGet, target)
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}

	do(t, app, http.MethodPost, "/api/v1/refresh")

	status, body := do(t, app, http.MethodGet, target)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body["location"] != "Delhi" || len(body["reports"].([]interface{})) != 1 {
		t.Fatalf("unexpected history: %v", body)
	}

	status, _ = do(t, app, http.MethodGet, "/api/v1/air-quality/Atlantis/history?from="+from+"&to="+to)
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodGet, "/api/v1/categories")
	if status != http.StatusOK || len(body["categories"].([]interface{})) != 6 {
		t.Fatalf("unexpected categories response %d: %v", status, body)
	}

	status, body = do(t, app, http.MethodGet, "/api/v1/locations")
	if status != http.StatusOK || len(body["locations"].([]interface{})) != 2 {
		t.Fatalf("unexpected locations response %d: %v", status, body)
	}

	do(t, app, http.MethodPost, "/api/v1/refresh")
	status, body = do(t, app, http.MethodGet, "/api/v1/alerts")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if int(body["count"].(float64)) != len(alertsOf(body)) {
		t.Fatalf("alert count does not match alerts: %v", body)
	}
}

func alertsOf(body map[string]interface{}) []interface{} {
	alerts, _ := body["alerts"].([]interface{})
	return alerts
}
