package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func newRouter(mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw...)
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	return r
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPrometheusCountsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newRouter(Prometheus(WithRegistry(reg), WithNamespace("test")))

	serve(h, "/status")
	serve(h, "/users/1")
	serve(h, "/users/2")
	serve(h, "/missing")

	expected := `
# HELP test_http_requests_total Total number of debug server requests
# TYPE test_http_requests_total counter
test_http_requests_total{method="GET",route="/status",status="2xx"} 1
test_http_requests_total{method="GET",route="/users/{id}",status="4xx"} 2
test_http_requests_total{method="GET",route="unmatched",status="4xx"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_http_requests_total"); err != nil {
		t.Fatal(err)
	}

	n, err := testutil.GatherAndCount(reg, "test_http_request_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("duration series = %d, want 3", n)
	}
}

func TestPrometheusConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newRouter(Prometheus(
		WithRegistry(reg),
		WithSubsystem("debug"),
		WithConstLabels(prometheus.Labels{"instance": "a"}),
		WithBuckets([]float64{0.1, 1}),
	))
	serve(h, "/status")

	expected := `
# HELP kiai_debug_requests_total Total number of debug server requests
# TYPE kiai_debug_requests_total counter
kiai_debug_requests_total{instance="a",method="GET",route="/status",status="2xx"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "kiai_debug_requests_total"); err != nil {
		t.Fatal(err)
	}
}

func TestOpenTelemetryPassesThrough(t *testing.T) {
	var sawSpan bool
	var extracted int
	mw := OpenTelemetry(
		WithTracerName("test"),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			extracted++
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	r := chi.NewRouter()
	r.Use(mw)
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		sawSpan = trace.SpanFromContext(req.Context()) != nil
		w.Write([]byte("ok"))
	})

	rec := serve(r, "/status")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
	if !sawSpan {
		t.Error("handler did not see a span")
	}
	if extracted != 1 {
		t.Errorf("extractor calls = %d, want 1", extracted)
	}

	if rec := serve(r, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unrouted status = %d", rec.Code)
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	var extracted int
	h := newRouter(OpenTelemetry(
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/status" }),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			extracted++
			return nil
		}),
	))

	serve(h, "/status")
	if extracted != 0 {
		t.Errorf("filtered request was traced")
	}
	if rec := serve(h, "/boom"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if extracted != 1 {
		t.Errorf("extractor calls = %d, want 1", extracted)
	}
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		if got := statusClass(tt.code); got != tt.want {
			t.Errorf("statusClass(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	if rec.code() != http.StatusOK {
		t.Errorf("code = %d", rec.code())
	}
	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusBadGateway)
	if rec.code() != http.StatusAccepted {
		t.Errorf("code = %d, want first written", rec.code())
	}
}
