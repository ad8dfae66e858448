package session

import (
	"sort"
	"time"

	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
)

// Message is one chat line.
type Message struct {
	SenderID int32
	Sender   string
	Text     string
	Time     time.Time
	Outgoing bool
}

// Channel is the history of a room ("#name") or a direct conversation,
// keyed by the other party's name.
type Channel struct {
	Name     string
	Messages []Message
}

// IsRoom reports whether the channel is a room.
func (c *Channel) IsRoom() bool {
	return len(c.Name) > 0 && c.Name[0] == '#'
}

// channelLocked returns the history for name, creating it on first use.
// Caller holds mu.
func (s *Session) channelLocked(name string) *Channel {
	ch, ok := s.chat[name]
	if !ok {
		ch = &Channel{Name: name}
		s.chat[name] = ch
	}
	return ch
}

func (ch *Channel) append(m Message) {
	ch.Messages = append(ch.Messages, m)
	if over := len(ch.Messages) - MaxChatHistory; over > 0 {
		ch.Messages = append(ch.Messages[:0:0], ch.Messages[over:]...)
	}
}

func (s *Session) applyChat(p *protocol.ChatMessage) {
	name := p.Target
	if !p.IsRoom() && p.SenderID != s.userID {
		name = p.Sender
	}
	outgoing := p.SenderID == s.userID

	s.channelLocked(name).append(Message{
		SenderID: p.SenderID,
		Sender:   p.Sender,
		Text:     p.Text,
		Time:     s.now(),
		Outgoing: outgoing,
	})

	if !p.IsRoom() && !outgoing {
		notify.Info(&s.notices, "New message from "+p.Sender)
	}
}

// SendChat sends text to a room ("#name") or a user and records it in the
// matching history.
func (s *Session) SendChat(target, text string) bool {
	s.mu.RLock()
	ok := s.authenticated
	p := &protocol.ChatMessage{SenderID: s.userID, Sender: s.username, Target: target, Text: text}
	s.mu.RUnlock()
	if !ok || target == "" || text == "" {
		return false
	}

	if !s.Send(p) {
		return false
	}

	s.mu.Lock()
	s.channelLocked(target).append(Message{
		SenderID: p.SenderID,
		Sender:   p.Sender,
		Text:     text,
		Time:     s.now(),
		Outgoing: true,
	})
	s.mu.Unlock()
	return true
}

// ChatHistory returns a copy of the messages in channel name.
func (s *Session) ChatHistory(name string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chat[name]
	if !ok {
		return nil
	}
	return append([]Message(nil), ch.Messages...)
}

// Channels returns the names of every channel with history, sorted.
func (s *Session) Channels() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.chat))
	for name := range s.chat {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}
