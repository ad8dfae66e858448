package session

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
)

type readResult struct {
	data []byte
	err  error
}

// fakeConn records writes and feeds scripted reads to the read loop.
type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	controls []int
	writeErr error
	closed   bool
	ping     func(string) error

	incoming chan readResult
	done     chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan readResult, 16),
		done:     make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.incoming:
		if r.err != nil {
			return 0, nil, r.err
		}
		return websocket.BinaryMessage, r.data, nil
	case <-c.done:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, messageType)
	return nil
}

func (c *fakeConn) SetPingHandler(h func(string) error) {
	c.mu.Lock()
	c.ping = h
	c.mu.Unlock()
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// sent decodes every packet written so far.
func (c *fakeConn) sent(t *testing.T) []protocol.Packet {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []protocol.Packet
	for _, msg := range c.written {
		packets, err := protocol.DecodeAll(msg)
		require.NoError(t, err)
		out = append(out, packets...)
	}
	return out
}

func (c *fakeConn) sentKinds(t *testing.T) []protocol.Kind {
	t.Helper()
	var kinds []protocol.Kind
	for _, p := range c.sent(t) {
		kinds = append(kinds, p.Kind())
	}
	return kinds
}

func countStops(t *testing.T, c *fakeConn, host int32) int {
	t.Helper()
	n := 0
	for _, p := range c.sent(t) {
		if stop, ok := p.(*protocol.StopSpectating); ok && stop.HostID == host {
			n++
		}
	}
	return n
}

type recorder struct {
	notices []notify.Notice
}

func (r *recorder) Notify(n notify.Notice) { r.notices = append(r.notices, n) }

func (r *recorder) texts() []string {
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Text)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	s     *Session
	conn  *fakeConn
	rec   *recorder
	clock *fakeClock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// connect returns a session connected to a fake server. The keep-alive is
// slow enough never to fire during a test.
func connect(t *testing.T) *harness {
	t.Helper()
	h := &harness{conn: newFakeConn(), rec: &recorder{}, clock: newFakeClock()}
	h.s = New(Options{
		Dialer:    DialerFunc(func(context.Context, string) (Conn, error) { return h.conn, nil }),
		Logger:    quietLogger(),
		Notifier:  h.rec,
		ClientID:  "client-1",
		KeepAlive: time.Hour,
		Now:       h.clock.Now,
	})
	require.NoError(t, h.s.Connect(context.Background(), "ws://kiai.test/ws", Credentials{Username: "rin", Password: "hunter2"}))
	t.Cleanup(h.s.Disconnect)
	return h
}

// login connects and completes the login as user 42.
func login(t *testing.T) *harness {
	t.Helper()
	h := connect(t)
	h.receive(&protocol.LoginResponse{Status: protocol.LoginOk, UserID: 42})
	require.True(t, h.s.Authenticated())
	return h
}

// receive applies packets as one inbound message.
func (h *harness) receive(packets ...protocol.Packet) {
	h.s.handleMessage(protocol.SerializeAll(packets...))
}

// spectate drives a spectate request for host through to acceptance.
func (h *harness) spectate(t *testing.T, host int32) {
	t.Helper()
	require.True(t, h.s.RequestSpectate(host))
	h.receive(&protocol.SpectateResult{HostID: host, Status: protocol.SpectateOk})
	got, ok := h.s.Spectating()
	require.True(t, ok)
	require.Equal(t, host, got)
}

// notices delivers queued notices and returns their texts.
func (h *harness) notices() []string {
	h.s.Update()
	return h.rec.texts()
}

// waitForNotice pumps Update until text has been delivered.
func (h *harness) waitForNotice(t *testing.T, text string) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.s.Update()
		for _, got := range h.rec.texts() {
			if got == text {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}
