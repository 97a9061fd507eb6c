package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WSConnections tracks the number of live websocket connections.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courtportal",
		Name:      "ws_connections",
		Help:      "Number of open websocket connections.",
	})

	// MessagesStored counts messages persisted through the API.
	MessagesStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtportal",
		Name:      "messages_stored_total",
		Help:      "Total messages persisted.",
	})

	// EventsFannedOut counts push frames delivered through the hub.
	EventsFannedOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtportal",
		Name:      "ws_events_total",
		Help:      "Total events fanned out over websocket connections.",
	})

	// HTTPRequests counts handled API requests by route and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtportal",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled.",
	}, []string{"method", "status"})
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
