package debugserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiai-dev/kiai/pkg/metrics"
	"github.com/kiai-dev/kiai/pkg/session"
	"github.com/kiai-dev/kiai/pkg/spectator"
)

type staticStatus session.Status

func (s staticStatus) Status() session.Status { return session.Status(s) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s := New(Options{Session: staticStatus{}, Logger: quietLogger()})
	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestStatus(t *testing.T) {
	playback := &spectator.Status{State: "Watching", Host: 7, MapHash: "abc", PlaybackMS: 1200, GoodUntilMS: 2000}
	s := New(Options{
		Session: staticStatus{
			Connected:      true,
			Authenticated:  true,
			UserID:         42,
			Username:       "alice",
			SpectatingHost: 7,
		},
		Playback: func() *spectator.Status { return playback },
		Logger:   quietLogger(),
	})

	rec := get(t, s.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.Session.Authenticated)
	assert.Equal(t, int32(42), snap.Session.UserID)
	assert.Equal(t, int32(7), snap.Session.SpectatingHost)
	require.NotNil(t, snap.Playback)
	assert.Equal(t, *playback, *snap.Playback)
	assert.False(t, snap.Time.IsZero())
}

func TestStatusWithoutPlayback(t *testing.T) {
	s := New(Options{
		Session:  staticStatus{},
		Playback: func() *spectator.Status { return nil },
		Logger:   quietLogger(),
	})
	rec := get(t, s.Handler(), "/status")
	assert.NotContains(t, rec.Body.String(), "playback")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	m.PacketReceived("Ping")

	s := New(Options{
		Session:    staticStatus{},
		Gatherer:   reg,
		Registerer: reg,
		Logger:     quietLogger(),
	})

	get(t, s.Handler(), "/healthz")
	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `kiai_packets_received_total{kind="Ping"} 1`)
	assert.Contains(t, body, `kiai_http_requests_total{method="GET",route="/healthz",status="2xx"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	s := New(Options{Session: staticStatus{}, Logger: quietLogger()})
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/nope").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serveMethod(s.Handler(), http.MethodPost, "/status").Code)
}

func serveMethod(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Options{Session: staticStatus{Username: "alice"}, Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/status")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), `"username": "alice"`))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
