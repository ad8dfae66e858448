package session

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kiai-dev/kiai/internal/errors"
	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
)

const tracerName = "github.com/kiai-dev/kiai/pkg/session"

// Disconnect reasons, used for logs and metrics.
const (
	reasonLocal     = "local"
	reasonClosed    = "closed"
	reasonTransport = "transport"
	reasonWrite     = "write"
	reasonRejected  = "rejected"
)

type loginResult struct {
	userID int32
	err    error
}

// Connect dials url, sends the login and starts the read loop. It returns
// once the login is written; use WaitForLogin for the server's answer.
//
// A failed dial is reported once, as the returned error and an error notice.
// There is no retry.
func (s *Session) Connect(ctx context.Context, url string, creds Credentials) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "session.Connect",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("kiai.server_url", url),
			attribute.String("kiai.username", creds.Username),
		),
	)
	defer span.End()

	if s.Connected() {
		return errors.New(errors.CodeAlreadyConnected)
	}

	conn, err := s.dialer.Dial(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.Connect("dial_error")
		s.logger.Error("dial failed", "url", url, "error", err)
		notify.Error(&s.notices, "Could not connect to the server")
		return errors.New(errors.CodeDialFailed).Wrap(err)
	}

	conn.SetPingHandler(func(data string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(data), s.now().Add(s.writeTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		conn.Close()
		return errors.New(errors.CodeAlreadyConnected)
	}
	s.gen++
	gen := s.gen
	s.conn = conn
	s.username = creds.Username
	s.loginCh = make(chan loginResult, 1)
	s.mu.Unlock()

	s.logger.Info("connected", "url", url, "username", creds.Username)

	if !s.Send(&protocol.Login{
		ProtocolVersion: s.protocolVersion,
		ClientID:        s.clientID,
		Username:        creds.Username,
		Password:        creds.Password,
	}) {
		span.SetStatus(codes.Error, "login write failed")
		return errors.New(errors.CodeWriteFailed)
	}

	go s.readLoop(conn, gen)

	span.SetStatus(codes.Ok, "")
	return nil
}

// WaitForLogin blocks until the server answers the most recent login, the
// connection drops or ctx is done. It returns the local user id on success.
func (s *Session) WaitForLogin(ctx context.Context) (int32, error) {
	s.mu.RLock()
	ch := s.loginCh
	s.mu.RUnlock()
	if ch == nil {
		return 0, errors.New(errors.CodeNotConnected)
	}

	select {
	case r := <-ch:
		// Put it back so later callers see the same answer.
		select {
		case ch <- r:
		default:
		}
		return r.userID, r.err
	case <-ctx.Done():
		return 0, errors.New(errors.CodeLoginTimeout).Wrap(ctx.Err())
	}
}

// Disconnect closes the connection and resets the session. Chat history is
// kept. It is a no-op when not connected.
func (s *Session) Disconnect() {
	s.mu.RLock()
	conn, gen := s.conn, s.gen
	s.mu.RUnlock()
	if conn == nil {
		return
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, s.now().Add(time.Second))
	s.teardown(gen, reasonLocal, nil)
}

// Logout tells the server the user is leaving and disconnects.
func (s *Session) Logout() {
	if s.Authenticated() {
		s.Send(&protocol.Logout{})
	}
	s.Disconnect()
}

// readLoop reads messages until the connection fails. It is the only
// goroutine that reads from conn.
func (s *Session) readLoop(conn Conn, gen uint64) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if stderrors.As(err, &closeErr) {
				s.teardown(gen, reasonClosed, err)
			} else {
				s.teardown(gen, reasonTransport, err)
			}
			return
		}

		if msgType != websocket.BinaryMessage {
			s.logger.Warn("ignoring non-binary message", "type", msgType)
			continue
		}
		s.handleMessage(data)
	}
}

// keepAliveLoop pings the server until connection gen is gone.
func (s *Session) keepAliveLoop(gen uint64) {
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		alive := s.conn != nil && s.gen == gen
		s.mu.RUnlock()
		if !alive {
			return
		}
		s.Send(&protocol.Ping{Timestamp: uint64(s.now().UnixMilli())})
	}
}

// teardown closes connection gen and resets everything the server told us.
// Later calls for the same generation do nothing.
func (s *Session) teardown(gen uint64, reason string, cause error) {
	s.mu.Lock()
	if s.conn == nil || s.gen != gen {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	loginCh := s.loginCh
	stop := s.endSpectateLocked(reason)

	s.conn = nil
	s.authenticated = false
	s.userID = 0
	s.presences = make(map[int32]*Presence)
	s.friends = make(map[int32]struct{})
	s.lobby = nil
	s.watchers = make(map[int32]struct{})
	s.playingReqs = nil
	s.mu.Unlock()

	stop()
	conn.Close()

	s.bufMu.Lock()
	s.outgoing = nil
	s.bufMu.Unlock()

	closed := errors.New(errors.CodeConnectionClosed)
	if cause != nil {
		closed = closed.Wrap(cause)
	}
	deliverLogin(loginCh, loginResult{err: closed})

	s.metrics.Disconnect(reason)
	switch reason {
	case reasonLocal, reasonRejected:
		s.logger.Info("disconnected", "reason", reason)
	default:
		s.logger.Error("connection lost", "reason", reason, "error", cause)
		notify.Error(&s.notices, disconnectText(cause))
	}
}

func disconnectText(cause error) string {
	var closeErr *websocket.CloseError
	if stderrors.As(cause, &closeErr) && closeErr.Text != "" {
		return "Disconnected by server: " + closeErr.Text
	}
	if stderrors.As(cause, &closeErr) {
		return "Disconnected by server"
	}
	return "Connection to the server was lost"
}
