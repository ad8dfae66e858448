package session

import (
	"github.com/gorilla/websocket"

	"github.com/kiai-dev/kiai/pkg/protocol"
)

// Send serializes p and writes it as one binary message. On a write failure
// the connection is closed and Send returns false.
func (s *Session) Send(p protocol.Packet) bool {
	gen, err := s.trySend(p)
	if err != nil {
		s.teardown(gen, reasonWrite, err)
		return false
	}
	return gen != 0
}

// trySend writes p without tearing down on failure. A zero generation means
// there was no connection.
func (s *Session) trySend(p protocol.Packet) (uint64, error) {
	s.mu.RLock()
	conn, gen := s.conn, s.gen
	s.mu.RUnlock()
	if conn == nil {
		return 0, nil
	}

	if err := s.write(conn, protocol.Serialize(p)); err != nil {
		s.logger.Error("write failed", "kind", p.Kind().String(), "error", err)
		s.metrics.SendFailure()
		return gen, err
	}
	s.metrics.PacketSent(p.Kind().String())
	return gen, nil
}

func (s *Session) write(conn Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := conn.SetWriteDeadline(s.now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// emitStop tells the server we stopped watching host. It is best effort:
// the connection may already be gone, and a failure here never triggers
// another teardown.
func (s *Session) emitStop(conn Conn, host int32) {
	p := &protocol.StopSpectating{HostID: host}
	if err := s.write(conn, protocol.Serialize(p)); err != nil {
		s.logger.Debug("stop spectating not delivered", "host_id", host, "error", err)
		return
	}
	s.metrics.PacketSent(p.Kind().String())
}

// QueueSpectatorFrame buffers a local frame for the users watching us.
// The buffer is flushed when it reaches FlushFrameCount frames, when more
// than FlushInterval has passed since the last flush, or when force is set.
// It returns false if a flush was attempted and the write failed.
func (s *Session) QueueSpectatorFrame(frame protocol.SpectatorFrame, force bool) bool {
	s.bufMu.Lock()
	s.outgoing = append(s.outgoing, frame)

	var trigger string
	switch {
	case force:
		trigger = "force"
	case len(s.outgoing) >= FlushFrameCount:
		trigger = "size"
	case s.now().Sub(s.lastFlush) > FlushInterval:
		trigger = "time"
	}

	var gen uint64
	var err error
	if trigger != "" {
		gen, err = s.flushLocked(trigger)
	}
	s.bufMu.Unlock()

	if err != nil {
		s.teardown(gen, reasonWrite, err)
		return false
	}
	return true
}

// FlushSpectatorFrames sends every buffered frame now.
func (s *Session) FlushSpectatorFrames() bool {
	s.bufMu.Lock()
	gen, err := s.flushLocked("force")
	s.bufMu.Unlock()

	if err != nil {
		s.teardown(gen, reasonWrite, err)
		return false
	}
	return true
}

// BufferedFrames returns the number of local frames waiting to be sent.
func (s *Session) BufferedFrames() int {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	return len(s.outgoing)
}

// flushLocked sends and clears the buffer in one step. Caller holds bufMu
// and must tear down gen if an error is returned.
func (s *Session) flushLocked(trigger string) (uint64, error) {
	frames := s.outgoing
	s.outgoing = nil
	s.lastFlush = s.now()
	if len(frames) == 0 {
		return 0, nil
	}

	gen, err := s.trySend(&protocol.SpectatorFrames{HostID: s.UserID(), Frames: frames})
	if err == nil && gen != 0 {
		s.metrics.Flush(trigger, len(frames))
	}
	return gen, err
}
