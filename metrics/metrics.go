// Package metrics exposes operational counters for the attested channel
// components on a Prometheus-compatible endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// IncVerification counts an attestation verification attempt by outcome
// ("success" or a failure gate name).
func IncVerification(outcome string) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`attestation_verifications_total{outcome=%q}`, outcome)).Inc()
}

// IncFrame counts a handled channel frame by kind ("deliver", "compute",
// "unknown").
func IncFrame(kind string) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`channel_frames_total{kind=%q}`, kind)).Inc()
}

// IncDocumentServed counts attestation documents served over HTTP.
func IncDocumentServed() {
	vmetrics.GetOrCreateCounter(`attestation_documents_served_total`).Inc()
}

// MetricsServer serves the /metrics endpoint on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr.
func New(addr string) (*MetricsServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("metrics listen address cannot be empty")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{Addr: addr, Handler: mux},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
