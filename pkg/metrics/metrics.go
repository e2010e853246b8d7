package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// Points screen metrics
	LocationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoleta",
		Subsystem: "points",
		Name:      "location_results_total",
		Help:      "Location acquisition outcomes",
	}, []string{"result"})

	CatalogFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoleta",
		Subsystem: "points",
		Name:      "catalog_fetches_total",
		Help:      "Category list fetches by result",
	}, []string{"result"})

	PointSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoleta",
		Subsystem: "points",
		Name:      "point_searches_total",
		Help:      "Collection point searches by result",
	}, []string{"result"})

	SelectionToggles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ecoleta",
		Subsystem: "points",
		Name:      "selection_toggles_total",
		Help:      "Category filter toggles",
	})

	MarkerPresses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ecoleta",
		Subsystem: "points",
		Name:      "marker_presses_total",
		Help:      "Map marker presses that opened point details",
	})

	// Dev catalog server metrics
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoleta",
		Subsystem: "catalog",
		Name:      "requests_total",
		Help:      "Catalog HTTP requests by route and status",
	}, []string{"route", "status"})
)

// Result labels
const (
	ResultSuccess     = "success"
	ResultFailure     = "failure"
	ResultDenied      = "denied"
	ResultUnavailable = "unavailable"
)

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
