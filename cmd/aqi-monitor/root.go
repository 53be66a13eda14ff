package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/i474232898/aqi-monitor/internal/airquality"
	"github.com/i474232898/aqi-monitor/internal/airquality/collectors"
	"github.com/i474232898/aqi-monitor/internal/config"
	"github.com/i474232898/aqi-monitor/internal/geocode"
	"github.com/i474232898/aqi-monitor/internal/store"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "aqi-monitor",
	Short:         "Collects pollutant readings and serves the Air Quality Index",
	Long:          `aqi-monitor collects pollutant concentrations for a fixed set of locations, computes the EPA Air Quality Index for each of them and serves the results over a JSON HTTP API.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file with locations and categories (default $AQI_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// app holds the wired components shared by the commands.
type app struct {
	cfg     *config.AppConfig
	service *airquality.Service
}

func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var resolver geocode.Resolver
	if cfg.GeocoderAPIKey != "" {
		resolver = geocode.NewGoogleResolver(cfg.GeocoderAPIKey)
	}
	locations, err := cfg.ResolveLocations(resolver)
	if err != nil {
		return nil, err
	}

	table, err := airquality.NewBreakpointTable(airquality.DefaultBreakpoints()...)
	if err != nil {
		return nil, err
	}
	classifier, err := airquality.NewClassifier(cfg.CategoryTable())
	if err != nil {
		return nil, err
	}
	calculator := airquality.NewCalculator(table, classifier, nil)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	collector, err := collectors.New(cfg.Collector, collectors.Options{
		HTTPClient: httpClient,
		APIKey:     cfg.OpenWeatherAPIKey,
		BaseURL:    cfg.OpenWeatherBaseURL,
		Bucket:     cfg.SimulationBucket,
	})
	if err != nil {
		return nil, err
	}

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	service, err := airquality.NewService(collector, calculator, memStore, locations, airquality.Options{
		Workers:      cfg.WorkerPoolSize,
		FetchTimeout: cfg.FetchTimeout,
		TTL:          cfg.CacheTTL,
		AlertMinAQI:  cfg.AlertMinAQI,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, service: service}, nil
}
