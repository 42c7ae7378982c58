package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus collectors for the assistant's tools and catalog traffic.
var (
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_agent_tool_calls_total",
			Help: "Total number of tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_agent_catalog_requests_total",
			Help: "Total number of catalog HTTP requests by outcome",
		},
		[]string{"outcome"},
	)

	CatalogRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vehicle_agent_catalog_request_duration_seconds",
			Help:    "Duration of catalog HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
	)

	OrdersPlacedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vehicle_agent_orders_placed_total",
			Help: "Total number of orders committed to the store",
		},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		ToolCallsTotal,
		CatalogRequestsTotal,
		CatalogRequestDuration,
		OrdersPlacedTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the collectors registered in gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
