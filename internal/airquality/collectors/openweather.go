package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/aqi-monitor/internal/airquality"
)

// DefaultOpenWeatherURL is the OpenWeatherMap Air Pollution endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/air_pollution"

// molarVolume is the volume in litres of one mole of gas at 25 °C and 1 atm.
const molarVolume = 24.45

// Molar masses in g/mol of the gaseous pollutants reported in µg/m³.
const (
	molarMassO3  = 48.00
	molarMassNO2 = 46.01
	molarMassSO2 = 64.07
	molarMassCO  = 28.01
)

// OpenWeatherCollector implements airquality.Collector for the OpenWeatherMap
// Air Pollution API.
type OpenWeatherCollector struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewOpenWeatherCollector creates the remote collector. An empty baseURL
// selects DefaultOpenWeatherURL.
func NewOpenWeatherCollector(client *http.Client, apiKey, baseURL string) *OpenWeatherCollector {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}

	return &OpenWeatherCollector{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("openweathermap"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (c *OpenWeatherCollector) Name() string {
	return c.name
}

// owComponents mirrors list[].components; pointers tell absent from zero.
type owComponents struct {
	CO   *float64 `json:"co"`
	NO2  *float64 `json:"no2"`
	O3   *float64 `json:"o3"`
	SO2  *float64 `json:"so2"`
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
}

type owResponse struct {
	List []struct {
		Dt         int64         `json:"dt"`
		Components *owComponents `json:"components"`
	} `json:"list"`
}

func (c *OpenWeatherCollector) Fetch(ctx context.Context, loc airquality.Location) ([]airquality.PollutantReading, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: openweathermap api key is not configured", airquality.ErrCollectorUnavailable)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
		values.Set("appid", c.apiKey)

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload owResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if ctx.Err() != nil {
			return nil, classifyTransportError(err)
		}
		return nil, fmt.Errorf("%w: decode openweathermap response: %v", airquality.ErrCollectorResponse, err)
	}

	return c.mapReadings(payload)
}

func (c *OpenWeatherCollector) mapReadings(payload owResponse) ([]airquality.PollutantReading, error) {
	if len(payload.List) == 0 {
		return nil, fmt.Errorf("%w: empty list", airquality.ErrCollectorResponse)
	}
	entry := payload.List[0]
	if entry.Components == nil {
		return nil, fmt.Errorf("%w: missing components", airquality.ErrCollectorResponse)
	}

	ts := c.now()
	if entry.Dt > 0 {
		ts = time.Unix(entry.Dt, 0).UTC()
	}

	comp := entry.Components
	fields := []struct {
		pollutant airquality.Pollutant
		value     *float64
		unit      string
		convert   func(float64) float64
	}{
		{airquality.PM25, comp.PM25, airquality.UnitMicrogramsPerM3, nil},
		{airquality.PM10, comp.PM10, airquality.UnitMicrogramsPerM3, nil},
		{airquality.O3, comp.O3, airquality.UnitPPM, toPPM(molarMassO3)},
		{airquality.NO2, comp.NO2, airquality.UnitPPB, toPPB(molarMassNO2)},
		{airquality.SO2, comp.SO2, airquality.UnitPPB, toPPB(molarMassSO2)},
		{airquality.CO, comp.CO, airquality.UnitPPM, toPPM(molarMassCO)},
	}

	readings := make([]airquality.PollutantReading, 0, len(fields))
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		v := *f.value
		if v < 0 {
			return nil, fmt.Errorf("%w: negative %s concentration %v", airquality.ErrCollectorResponse, f.pollutant, v)
		}
		if f.convert != nil {
			v = f.convert(v)
		}
		if math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s concentration %v out of range", airquality.ErrCollectorResponse, f.pollutant, *f.value)
		}
		readings = append(readings, airquality.PollutantReading{
			Pollutant:     f.pollutant,
			Concentration: v,
			Unit:          f.unit,
			ObservedAt:    ts,
		})
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: no known pollutant in components", airquality.ErrCollectorResponse)
	}
	return readings, nil
}

// toPPB converts µg/m³ to ppb for a gas of the given molar mass.
func toPPB(molarMass float64) func(float64) float64 {
	return func(v float64) float64 {
		return v * molarVolume / molarMass
	}
}

// toPPM converts µg/m³ to ppm for a gas of the given molar mass.
func toPPM(molarMass float64) func(float64) float64 {
	return func(v float64) float64 {
		return v * molarVolume / molarMass / 1000
	}
}
