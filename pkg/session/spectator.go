package session

import (
	"fmt"

	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
)

// spectateRecord is the session side of an accepted spectate request.
type spectateRecord struct {
	host       int32
	generation uint64
	frames     []protocol.SpectatorFrame
	observers  []int32
}

func (r *spectateRecord) addObserver(id int32) bool {
	for _, o := range r.observers {
		if o == id {
			return false
		}
	}
	r.observers = append(r.observers, id)
	return true
}

func (r *spectateRecord) removeObserver(id int32) bool {
	for i, o := range r.observers {
		if o == id {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Batch is everything received for one spectate session since the last
// drain. Generation changes whenever a new spectate session starts, so a
// consumer can tell a fresh session from a continuing one.
type Batch struct {
	Host       int32
	Generation uint64
	Frames     []protocol.SpectatorFrame
}

// RequestSpectate asks the server to let us watch host. Any active spectate
// session is stopped first. The answer arrives as a spectate result.
func (s *Session) RequestSpectate(host int32) bool {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return false
	}
	if host == s.userID {
		s.mu.Unlock()
		notify.Error(&s.notices, "You cannot spectate yourself")
		return false
	}
	stop := s.endSpectateLocked("switch host")
	s.pendingHost = host
	s.mu.Unlock()

	stop()
	s.logger.Info("requesting spectate", "host_id", host)
	return s.Send(&protocol.SpectateRequest{HostID: host})
}

// StopSpectating ends the active spectate session, or cancels a pending
// request. It reports whether there was anything to stop.
func (s *Session) StopSpectating() bool {
	s.mu.Lock()
	active := s.spectate != nil
	pending := s.pendingHost != 0
	stop := s.endSpectateLocked("stopped")
	s.mu.Unlock()

	stop()
	return active || pending
}

// endSpectateLocked detaches the active spectate session and returns the
// stop-spectating write to run once mu is released. Every exit path goes
// through here, so the server hears exactly one stop per session. Caller
// holds mu.
// An unanswered request is withdrawn with the same stop packet.
func (s *Session) endSpectateLocked(reason string) func() {
	pending := s.pendingHost
	s.pendingHost = 0
	conn := s.conn

	rec := s.spectate
	if rec == nil {
		if pending == 0 || conn == nil {
			return func() {}
		}
		s.logger.Info("spectate request withdrawn", "host_id", pending, "reason", reason)
		return func() { s.emitStop(conn, pending) }
	}
	s.spectate = nil

	s.logger.Info("spectating stopped", "host_id", rec.host, "reason", reason, "dropped_frames", len(rec.frames))
	return func() {
		if conn != nil {
			s.emitStop(conn, rec.host)
		}
	}
}

// Spectating returns the host being watched.
func (s *Session) Spectating() (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.spectate == nil {
		return 0, false
	}
	return s.spectate.host, true
}

// PendingSpectate returns the host of an unanswered spectate request.
func (s *Session) PendingSpectate() (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingHost, s.pendingHost != 0
}

// Observers returns the other users watching the same host, in join order.
func (s *Session) Observers() []int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.spectate == nil {
		return nil
	}
	return append([]int32(nil), s.spectate.observers...)
}

// Watchers returns the users spectating the local player.
func (s *Session) Watchers() []int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.watchers)
}

// DrainSpectatorFrames takes every queued frame for the active host. The
// take is atomic: frames arriving concurrently land in the next batch.
func (s *Session) DrainSpectatorFrames() (Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.spectate
	if rec == nil {
		return Batch{}, false
	}
	b := Batch{Host: rec.host, Generation: rec.generation, Frames: rec.frames}
	rec.frames = nil
	return b, true
}

// DrainPlayingRequests returns the spectators that asked what we are
// playing since the last call.
func (s *Session) DrainPlayingRequests() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.playingReqs
	s.playingReqs = nil
	return out
}

// RespondPlaying answers a playing request from spectator to with the map
// being played and the current position in milliseconds.
func (s *Session) RespondPlaying(to int32, m protocol.MapIdentity, offset float64) bool {
	return s.QueueSpectatorFrame(protocol.SpectatorFrame{
		Timestamp: offset,
		Payload:   protocol.PlayingResponse{To: to, MapIdentity: m, Offset: offset},
	}, true)
}

func (s *Session) applySpectateResult(p *protocol.SpectateResult, after *effects) {
	if p.HostID != s.pendingHost {
		s.logger.Warn("spectate result for unexpected host", "host_id", p.HostID, "pending", s.pendingHost)
		return
	}
	s.pendingHost = 0

	if p.Status != protocol.SpectateOk {
		s.logger.Info("spectate refused", "host_id", p.HostID, "status", p.Status.String())
		notify.Error(&s.notices, spectateFailureText(p.Status))
		return
	}

	s.spectateGen++
	s.spectate = &spectateRecord{host: p.HostID, generation: s.spectateGen}
	s.logger.Info("spectating", "host_id", p.HostID, "generation", s.spectateGen)
	notify.Info(&s.notices, "Now spectating "+s.displayName(p.HostID))

	// Ask the host where it is so we can join mid-map.
	req := &protocol.SpectatorFrames{
		HostID: p.HostID,
		Frames: []protocol.SpectatorFrame{{Payload: protocol.PlayingRequest{From: s.userID}}},
	}
	after.add(func() { s.Send(req) })
}

func spectateFailureText(status protocol.SpectateStatus) string {
	switch status {
	case protocol.SpectateBot:
		return "You cannot spectate a bot"
	case protocol.SpectateHostOffline:
		return "That user is not online"
	case protocol.SpectateSelf:
		return "You cannot spectate yourself"
	default:
		return fmt.Sprintf("Spectating failed (%s)", status)
	}
}

func (s *Session) applySpectatorJoined(p *protocol.SpectatorJoined) {
	if p.HostID == s.userID {
		if _, ok := s.watchers[p.UserID]; !ok {
			s.watchers[p.UserID] = struct{}{}
			notify.Info(&s.notices, s.displayName(p.UserID)+" is now watching you")
		}
		return
	}
	if s.spectate == nil || s.spectate.host != p.HostID || p.UserID == s.userID {
		return
	}
	if s.spectate.addObserver(p.UserID) {
		notify.Info(&s.notices, s.displayName(p.UserID)+" joined the spectators")
	}
}

func (s *Session) applySpectatorLeft(p *protocol.SpectatorLeft) {
	if p.HostID == s.userID {
		if _, ok := s.watchers[p.UserID]; ok {
			delete(s.watchers, p.UserID)
			notify.Info(&s.notices, s.displayName(p.UserID)+" stopped watching you")
		}
		return
	}
	if s.spectate == nil || s.spectate.host != p.HostID {
		return
	}
	if s.spectate.removeObserver(p.UserID) {
		notify.Info(&s.notices, s.displayName(p.UserID)+" left the spectators")
	}
}

func (s *Session) applySpectatorFrames(p *protocol.SpectatorFrames) {
	if rec := s.spectate; rec != nil && rec.host == p.HostID {
		rec.frames = append(rec.frames, p.Frames...)
		s.metrics.FramesReceived(len(p.Frames))
		return
	}

	// Frames relayed from our own spectators.
	for _, f := range p.Frames {
		if req, ok := f.Payload.(protocol.PlayingRequest); ok {
			s.playingReqs = append(s.playingReqs, req.From)
		}
	}
}
