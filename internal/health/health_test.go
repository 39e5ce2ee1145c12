package health_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/swap-router/internal/health"
	"github.com/fd1az/swap-router/internal/logger"
)

func newServer() *health.Server {
	return health.NewServer(0, "test", logger.New(io.Discard, logger.LevelError, "test", nil))
}

func TestHealth_AllHealthy(t *testing.T) {
	s := newServer()
	s.RegisterCheck("ledger", func(context.Context) (bool, string) { return true, "chain 143" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var st health.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != "ok" || st.Checks["ledger"].Message != "chain 143" {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestHealth_Degraded(t *testing.T) {
	s := newServer()
	s.RegisterCheck("ledger", func(context.Context) (bool, string) { return false, "timeout" })
	s.RegisterCheck("cache", func(context.Context) (bool, string) { return true, "" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected ready=503, got %d", rec.Code)
	}
}

func TestHealth_Live(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
