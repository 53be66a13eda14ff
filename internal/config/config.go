package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/i474232898/aqi-monitor/internal/airquality"
	"github.com/i474232898/aqi-monitor/internal/geocode"
)

var validate = validator.New()

// LocationConfig is a monitored location as written in the config file.
// Coordinates may be omitted when a geocoder key is configured.
type LocationConfig struct {
	Name      string   `mapstructure:"name" validate:"required"`
	Country   string   `mapstructure:"country"`
	City      string   `mapstructure:"city"`
	State     string   `mapstructure:"state"`
	Latitude  *float64 `mapstructure:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `mapstructure:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type AppConfig struct {
	// Collector selects the data source variant ("simulated", "openweathermap").
	Collector          string `mapstructure:"collector" validate:"required"`
	OpenWeatherAPIKey  string `mapstructure:"openweather_api_key"`
	OpenWeatherBaseURL string `mapstructure:"openweather_base_url" validate:"omitempty,url"`
	GeocoderAPIKey     string `mapstructure:"geocoder_api_key"`

	// RefreshInterval controls how often all locations are refreshed.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"` // per location, per refresh
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	WorkerPoolSize  int           `mapstructure:"worker_pool_size" validate:"min=1,max=256"`

	SimulationBucket time.Duration `mapstructure:"simulation_bucket"`

	// In-memory snapshot retention.
	StoreMaxHistory int           `mapstructure:"store_max_history" validate:"gte=0"` // 0 = unlimited
	StoreMaxAge     time.Duration `mapstructure:"store_max_age"`                      // 0 = unlimited

	AlertMinAQI int `mapstructure:"alert_min_aqi" validate:"gte=0,lte=500"`

	Port string `mapstructure:"port" validate:"required,numeric"`

	Locations  []LocationConfig      `mapstructure:"locations" validate:"required,min=1,dive"`
	Categories []airquality.Category `mapstructure:"categories" validate:"omitempty,dive"`
}

// Load reads configuration from the environment, an optional .env file and an
// optional config file (path, or $AQI_CONFIG when path is empty).
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("AQI_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file %s: %v", airquality.ErrConfiguration, path, err)
		}
		log.Printf("INFO: using config file %s", v.ConfigFileUsed())
	}

	cfg := &AppConfig{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", airquality.ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("collector", "simulated")
	v.SetDefault("openweather_api_key", "")
	v.SetDefault("openweather_base_url", "")
	v.SetDefault("geocoder_api_key", "")
	v.SetDefault("refresh_interval", "5m")
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("worker_pool_size", airquality.DefaultWorkers)
	v.SetDefault("simulation_bucket", "5m")
	v.SetDefault("store_max_history", 288) // 24h at 5-minute intervals
	v.SetDefault("store_max_age", "24h")
	v.SetDefault("alert_min_aqi", airquality.DefaultAlertMinAQI)
	v.SetDefault("port", "8080")
	v.SetDefault("locations", defaultLocations())
}

func defaultLocations() []map[string]interface{} {
	return []map[string]interface{}{
		{"name": "New York", "country": "USA", "city": "New York", "state": "NY", "latitude": 40.7128, "longitude": -74.0060},
		{"name": "Los Angeles", "country": "USA", "city": "Los Angeles", "state": "CA", "latitude": 34.0522, "longitude": -118.2437},
		{"name": "Beijing", "country": "China", "city": "Beijing", "state": "Beijing", "latitude": 39.9042, "longitude": 116.4074},
		{"name": "London", "country": "UK", "city": "London", "state": "England", "latitude": 51.5074, "longitude": -0.1278},
		{"name": "Delhi", "country": "India", "city": "Delhi", "state": "Delhi", "latitude": 28.7041, "longitude": 77.1025},
		{"name": "Tokyo", "country": "Japan", "city": "Tokyo", "state": "Tokyo", "latitude": 35.6762, "longitude": 139.6503},
	}
}

// Validate checks field constraints that struct tags cannot express.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", airquality.ErrConfiguration, err)
	}

	positive := map[string]time.Duration{
		"refresh_interval":  c.RefreshInterval,
		"fetch_timeout":     c.FetchTimeout,
		"http_timeout":      c.HTTPTimeout,
		"cache_ttl":         c.CacheTTL,
		"simulation_bucket": c.SimulationBucket,
	}
	for key, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", airquality.ErrConfiguration, key, d)
		}
	}
	if c.StoreMaxAge < 0 {
		return fmt.Errorf("%w: store_max_age must not be negative", airquality.ErrConfiguration)
	}
	return nil
}

// CategoryTable returns the configured categories, or the EPA defaults.
func (c *AppConfig) CategoryTable() []airquality.Category {
	if len(c.Categories) == 0 {
		return airquality.DefaultCategories()
	}
	return c.Categories
}

// ResolveLocations converts the configured locations, asking r for the
// coordinates of entries that lack them. r may be nil when every location
// has coordinates.
func (c *AppConfig) ResolveLocations(r geocode.Resolver) ([]airquality.Location, error) {
	locs := make([]airquality.Location, 0, len(c.Locations))
	for _, lc := range c.Locations {
		loc := airquality.Location{
			Name:    lc.Name,
			Country: lc.Country,
			City:    lc.City,
			State:   lc.State,
		}

		if lc.Latitude != nil && lc.Longitude != nil {
			loc.Latitude, loc.Longitude = *lc.Latitude, *lc.Longitude
		} else {
			if r == nil {
				return nil, fmt.Errorf("%w: location %q has no coordinates and no geocoder is configured",
					airquality.ErrConfiguration, lc.Name)
			}
			city := lc.City
			if city == "" {
				city = lc.Name
			}
			lat, lon, err := r.Resolve(geocode.Query{City: city, State: lc.State, Country: lc.Country})
			if err != nil {
				return nil, fmt.Errorf("%w: location %q: %v", airquality.ErrConfiguration, lc.Name, err)
			}
			loc.Latitude, loc.Longitude = lat, lon
		}

		if err := validate.Struct(loc); err != nil {
			return nil, fmt.Errorf("%w: location %q: %v", airquality.ErrConfiguration, lc.Name, err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}
