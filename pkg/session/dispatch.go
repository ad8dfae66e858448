package session

import (
	"io"

	"github.com/kiai-dev/kiai/internal/errors"
	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
)

// effects collects work that must run after the state lock is released,
// such as replies that write to the socket.
type effects []func()

func (e *effects) add(fn func()) { *e = append(*e, fn) }

// handleMessage decodes and applies the packets of one message in order.
// A decode error or an unhandled packet drops the rest of the message.
func (s *Session) handleMessage(msg []byte) {
	r := protocol.NewReader(msg)
	for {
		p, err := r.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.metrics.DecodeError()
			s.logger.Warn("dropping rest of message", "error", err)
			return
		}

		s.metrics.PacketReceived(p.Kind().String())
		if !s.dispatch(p) {
			s.logger.Warn("unhandled packet, dropping rest of message", "kind", p.Kind().String())
			return
		}
	}
}

// dispatch applies p in a single write section and then runs its effects.
func (s *Session) dispatch(p protocol.Packet) bool {
	var after effects

	s.mu.Lock()
	handled := s.apply(p, &after)
	s.mu.Unlock()

	for _, fn := range after {
		fn()
	}
	return handled
}

// apply mutates state for one packet. Caller holds mu.
func (s *Session) apply(p protocol.Packet, after *effects) bool {
	switch p := p.(type) {
	case *protocol.LoginResponse:
		s.applyLoginResponse(p, after)
	case *protocol.Ping:
		after.add(func() { s.Send(&protocol.Pong{Timestamp: p.Timestamp}) })
	case *protocol.Pong:
		s.logger.Debug("pong", "rtt_ms", s.now().UnixMilli()-int64(p.Timestamp))

	case *protocol.UserJoined:
		s.applyUserJoined(p)
	case *protocol.UserLeft:
		s.applyUserLeft(p, after)
	case *protocol.StatusUpdate:
		if pr, ok := s.presences[p.UserID]; ok {
			pr.Action = p.Status.Action
			pr.StatusText = p.Status.Text
			pr.Mode = p.Status.Mode
		}

	case *protocol.ChatMessage:
		s.applyChat(p)
	case *protocol.FriendsList:
		s.friends = make(map[int32]struct{}, len(p.UserIDs))
		for _, id := range p.UserIDs {
			s.friends[id] = struct{}{}
		}
		for id, pr := range s.presences {
			_, pr.Friend = s.friends[id]
		}
	case *protocol.FriendAdded:
		s.friends[p.UserID] = struct{}{}
		if pr, ok := s.presences[p.UserID]; ok {
			pr.Friend = true
		}
	case *protocol.FriendRemoved:
		delete(s.friends, p.UserID)
		if pr, ok := s.presences[p.UserID]; ok {
			pr.Friend = false
		}
	case *protocol.ServerNotice:
		notify.Info(&s.notices, p.Text)

	case *protocol.SpectateResult:
		s.applySpectateResult(p, after)
	case *protocol.SpectatorJoined:
		s.applySpectatorJoined(p)
	case *protocol.SpectatorLeft:
		s.applySpectatorLeft(p)
	case *protocol.SpectatorFrames:
		s.applySpectatorFrames(p)

	case *protocol.Lobby:
		s.lobby = append(s.lobby, p)

	default:
		// Client-to-server kinds have no meaning inbound.
		return false
	}
	return true
}

func (s *Session) applyLoginResponse(p *protocol.LoginResponse, after *effects) {
	gen, loginCh := s.gen, s.loginCh

	if p.Status != protocol.LoginOk {
		s.logger.Warn("login rejected", "status", p.Status.String())
		s.metrics.Connect("rejected")
		notify.Error(&s.notices, p.Status.Message())
		deliverLogin(loginCh, loginResult{err: errors.New(errors.CodeLoginRejected).WithDetail(p.Status.Message())})
		after.add(func() { s.teardown(gen, reasonRejected, nil) })
		return
	}

	s.authenticated = true
	s.userID = p.UserID
	s.logger.Info("logged in", "user_id", p.UserID, "username", s.username)
	s.metrics.Connect("ok")
	notify.Success(&s.notices, "Logged in as "+s.username)
	deliverLogin(loginCh, loginResult{userID: p.UserID})

	after.add(func() {
		s.bufMu.Lock()
		s.lastFlush = s.now()
		s.bufMu.Unlock()

		go s.keepAliveLoop(gen)
		s.Send(&protocol.RequestFriends{})
	})
}

func (s *Session) applyUserJoined(p *protocol.UserJoined) {
	_, friend := s.friends[p.UserID]
	_, known := s.presences[p.UserID]
	s.presences[p.UserID] = &Presence{
		ID:         p.UserID,
		Name:       p.Username,
		Action:     p.Status.Action,
		StatusText: p.Status.Text,
		Mode:       p.Status.Mode,
		Friend:     friend,
	}
	if friend && !known {
		notify.Info(&s.notices, p.Username+" is online")
	}
}

func (s *Session) applyUserLeft(p *protocol.UserLeft, after *effects) {
	delete(s.presences, p.UserID)
	delete(s.watchers, p.UserID)
	if s.pendingHost == p.UserID {
		s.pendingHost = 0
	}

	rec := s.spectate
	if rec == nil {
		return
	}
	rec.removeObserver(p.UserID)

	if rec.host == p.UserID {
		notify.Warning(&s.notices, "The host went offline")
		after.add(s.endSpectateLocked("host offline"))
	}
}

// deliverLogin hands r to a WaitForLogin caller. Only the first answer for
// a connection is kept.
func deliverLogin(ch chan loginResult, r loginResult) {
	if ch == nil {
		return
	}
	select {
	case ch <- r:
	default:
	}
}
