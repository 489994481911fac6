package infra

import (
	"context"
	"fmt"

	"suspension-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStats conta decisões por outcome e método.
// Key e Path ficam de fora dos labels para não explodir a cardinalidade.
type PrometheusStats struct {
	requests *prometheus.CounterVec
}

func NewPrometheusStats(reg prometheus.Registerer) (*PrometheusStats, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "requests_total",
		Help:      "Requests seen by the gateway policy layer, by outcome.",
	}, []string{"outcome", "method"})

	if err := reg.Register(requests); err != nil {
		return nil, fmt.Errorf("register gateway_requests_total: %w", err)
	}
	return &PrometheusStats{requests: requests}, nil
}

func (p *PrometheusStats) Record(_ context.Context, ev domain.StatsEvent) error {
	p.requests.WithLabelValues(string(ev.Outcome), ev.Method).Inc()
	return nil
}
