package httpapi

import (
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/aqi-monitor/internal/airquality"
	"github.com/i474232898/aqi-monitor/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *airquality.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/air-quality", func(c *fiber.Ctx) error {
		return c.JSON(snapshotView(service.All(), service.Now()))
	})

	v1.Get("/air-quality/:name", func(c *fiber.Ctx) error {
		name, err := parseName(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.One(name)
		if err != nil {
			return mapError(err, "failed to fetch air quality")
		}
		return c.JSON(report)
	})

	v1.Get("/air-quality/:name/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reports, err := service.History(req.Name, req.From, req.To)
		if err != nil {
			return mapError(err, "failed to fetch air quality history")
		}
		if len(reports) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no air quality history for requested range")
		}

		return c.JSON(fiber.Map{
			"location": req.Name,
			"from":     req.From,
			"to":       req.To,
			"reports":  reports,
		})
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		snapshot, err := service.Refresh(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "refresh did not complete: "+err.Error())
		}
		return c.JSON(snapshotView(snapshot, service.Now()))
	})

	v1.Get("/categories", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"categories": service.Categories()})
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"locations": service.Locations()})
	})

	v1.Get("/alerts", func(c *fiber.Ctx) error {
		alerts := service.Alerts()
		return c.JSON(fiber.Map{
			"count":  len(alerts),
			"alerts": alerts,
		})
	})
}

func snapshotView(s airquality.Snapshot, now time.Time) fiber.Map {
	var refreshedAt *time.Time
	if !s.RefreshedAt.IsZero() {
		refreshedAt = &s.RefreshedAt
	}
	reports := s.Reports
	if reports == nil {
		reports = map[string]airquality.Report{}
	}

	return fiber.Map{
		"snapshot_id":  s.ID,
		"refreshed_at": refreshedAt,
		"ttl_seconds":  int(s.TTL.Seconds()),
		"stale":        s.Stale(now),
		"locations":    reports,
	}
}

func mapError(err error, fallback string) error {
	switch {
	case errors.Is(err, airquality.ErrNotMonitored):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

// nameParam holds the location path parameter.
type nameParam struct {
	Name string `validate:"required,max=128"`
}

func parseName(c *fiber.Ctx) (string, error) {
	// Params are not unescaped by fiber; "New%20York" must match "New York".
	raw := c.Params("name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}

	p := nameParam{Name: name}
	if err := validate.Struct(p); err != nil {
		return "", err
	}
	return p.Name, nil
}

// historyQuery holds parameters for the history endpoint.
type historyQuery struct {
	Name string    `validate:"required,max=128"`
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	name, err := parseName(c)
	if err != nil {
		return err
	}
	h.Name = name

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
