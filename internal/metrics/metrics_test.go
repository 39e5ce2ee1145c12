package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-router/internal/metrics"
)

func TestPrometheusProvider_ExposesCounters(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	mp, err := metrics.NewMetricProvider(ctx,
		metrics.WithServiceName("swap-router-test"),
		metrics.WithRegisterer(reg),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	defer mp.Shutdown(ctx)

	counter, err := mp.Meter("test").Int64Counter("route_requests_total", metric.WithDescription("test"))
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(ctx, 3)

	srv := metrics.NewPrometheusServer(0, reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "route_requests_total") {
		t.Errorf("expected counter in scrape output:\n%s", body)
	}
}

func TestNewMetricProvider_RequiresReader(t *testing.T) {
	if _, err := metrics.NewMetricProvider(context.Background()); err == nil {
		t.Error("expected error with no providers")
	}
}
