// Package metrics exposes Prometheus-compatible metrics on a dedicated
// listener, kept separate from the API listener so scrapes never compete
// with request traffic.
package metrics

import (
	"context"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

var (
	ordersProcessedTotal = metrics.NewCounter(`orders_processed_total`)
	signFailuresTotal    = metrics.NewCounter(`orders_sign_failures_total`)
	badRequestsTotal     = metrics.NewCounter(`orders_bad_requests_total`)
)

// IncOrdersProcessed counts a successfully signed order response.
func IncOrdersProcessed() { ordersProcessedTotal.Inc() }

// IncSignFailures counts a signing-pipeline failure (server error).
func IncSignFailures() { signFailuresTotal.Inc() }

// IncBadRequests counts a request rejected at the JSON boundary.
func IncBadRequests() { badRequestsTotal.Inc() }

// MetricsServer serves the /metrics endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr. The service name is
// exported as a constant gauge so dashboards can tell instances apart.
func New(serviceName, addr string) (*MetricsServer, error) {
	metrics.GetOrCreateGauge(`service_info{name="`+serviceName+`"}`, func() float64 { return 1 })

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
