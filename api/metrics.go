package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	frames   prometheus.Counter
	rooms    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factorychat",
			Subsystem: "mock",
			Name:      "requests_total",
			Help:      "Requests handled by the mock backend.",
		}, []string{"route", "status"}),
		frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "factorychat",
			Subsystem: "mock",
			Name:      "stream_frames_total",
			Help:      "Server-sent event frames written.",
		}),
		rooms: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "factorychat",
			Subsystem: "mock",
			Name:      "rooms_created_total",
			Help:      "Rooms created.",
		}),
	}
}

// observe counts requests by route and final status.
func (s *Server) observe(c *fiber.Ctx) error {
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if asFiberError(err, &fe) {
		status = fe.Code
	}
	s.metrics.requests.WithLabelValues(c.Route().Path, strconv.Itoa(status)).Inc()
	return err
}
