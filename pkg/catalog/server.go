package catalog

import (
	"strconv"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/metrics"
	"github.com/1F47E/ecoleta-points/pkg/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// NewServer builds the development catalog app serving categories verbatim
func NewServer(categories []models.Category) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		AppName:               "Ecoleta Catalog",
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,OPTIONS",
	}))
	app.Use(requestLogger())

	app.Get("/items", func(c *fiber.Ctx) error {
		return c.JSON(categories)
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "items": len(categories)})
	})
	app.Get("/metrics", metrics.Handler())

	return app
}

// requestLogger logs each request and counts it per route
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		if route == "" || route == "/" {
			route = c.Path()
		}
		metrics.CatalogRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Str("ip", c.IP()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")

		return err
	}
}
