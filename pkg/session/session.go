package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiai-dev/kiai/pkg/metrics"
	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
)

// Default session parameters.
const (
	DefaultKeepAlive    = time.Second
	DefaultWriteTimeout = 10 * time.Second

	// FlushFrameCount is the buffered frame count that forces a flush.
	FlushFrameCount = 20

	// FlushInterval is the longest local frames wait before being sent.
	FlushInterval = 1000 * time.Millisecond

	// MaxChatHistory is the number of messages kept per channel.
	MaxChatHistory = 200
)

// Options configures a Session.
type Options struct {
	// Dialer opens the connection. Default: WebsocketDialer{}.
	Dialer Dialer

	// Logger receives session logs. Default: slog.Default().
	Logger *slog.Logger

	// Metrics is optional; a nil value records nothing.
	Metrics *metrics.Metrics

	// Notifier receives user-facing notices from Update. Default: notify.Discard.
	Notifier notify.Notifier

	// ClientID identifies this client install. Default: a random UUID.
	ClientID string

	// ProtocolVersion is sent with the login. Default: protocol.CurrentVersion.
	ProtocolVersion uint32

	// KeepAlive is the interval between keep-alive pings. Default: 1s.
	KeepAlive time.Duration

	// WriteTimeout bounds every socket write. Default: 10s.
	WriteTimeout time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Credentials are the account details sent with the login.
type Credentials struct {
	Username string
	Password string
}

// Presence is what the session knows about one online user.
type Presence struct {
	ID         int32
	Name       string
	Action     protocol.Action
	StatusText string
	Mode       string
	Friend     bool
}

// Session is the client's single connection to the game server together
// with everything the server has told it.
//
// All mutable state is guarded by mu and each inbound packet is applied in
// one write section. Socket writes go through writeMu, never while mu is
// held. The outgoing spectator buffer has its own bufMu; lock order is
// bufMu, then mu, then writeMu.
type Session struct {
	dialer          Dialer
	logger          *slog.Logger
	metrics         *metrics.Metrics
	notifier        notify.Notifier
	notices         notify.Queue
	clientID        string
	protocolVersion uint32
	keepAlive       time.Duration
	writeTimeout    time.Duration
	now             func() time.Time

	mu            sync.RWMutex
	conn          Conn // non-nil iff connected
	gen           uint64
	loginCh       chan loginResult
	authenticated bool
	userID        int32
	username      string
	presences     map[int32]*Presence
	friends       map[int32]struct{}
	chat          map[string]*Channel
	lobby         []*protocol.Lobby
	spectate      *spectateRecord
	pendingHost   int32
	spectateGen   uint64
	watchers      map[int32]struct{}
	playingReqs   []int32

	writeMu sync.Mutex

	bufMu     sync.Mutex
	outgoing  []protocol.SpectatorFrame
	lastFlush time.Time
}

// New creates a disconnected session.
func New(opts Options) *Session {
	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	if opts.ProtocolVersion == 0 {
		opts.ProtocolVersion = protocol.CurrentVersion
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		dialer:          opts.Dialer,
		logger:          opts.Logger.With("component", "session"),
		metrics:         opts.Metrics,
		notifier:        opts.Notifier,
		clientID:        opts.ClientID,
		protocolVersion: opts.ProtocolVersion,
		keepAlive:       opts.KeepAlive,
		writeTimeout:    opts.WriteTimeout,
		now:             opts.Now,
		presences:       make(map[int32]*Presence),
		friends:         make(map[int32]struct{}),
		chat:            make(map[string]*Channel),
		watchers:        make(map[int32]struct{}),
		lastFlush:       opts.Now(),
	}
}

// ClientID returns the id sent with every login.
func (s *Session) ClientID() string {
	return s.clientID
}

// Connected reports whether a connection is open.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// Authenticated reports whether the server accepted the login.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// UserID returns the local user's id, or 0 before login.
func (s *Session) UserID() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// LocalUserID is UserID; it lets the session serve as a spectator source.
func (s *Session) LocalUserID() int32 {
	return s.UserID()
}

// Username returns the name used for the current login.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Presence returns a copy of the presence for id.
func (s *Session) Presence(id int32) (Presence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presences[id]
	if !ok {
		return Presence{}, false
	}
	return *p, true
}

// Presences returns all known presences ordered by user id.
func (s *Session) Presences() []Presence {
	s.mu.RLock()
	out := make([]Presence, 0, len(s.presences))
	for _, p := range s.presences {
		out = append(out, *p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsFriend reports whether id is in the friend set.
func (s *Session) IsFriend(id int32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.friends[id]
	return ok
}

// Friends returns the friend ids in ascending order.
func (s *Session) Friends() []int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.friends)
}

// DrainLobby removes and returns every queued lobby packet in arrival order.
func (s *Session) DrainLobby() []*protocol.Lobby {
	s.mu.Lock()
	out := s.lobby
	s.lobby = nil
	s.mu.Unlock()
	return out
}

// Update runs on the presentation loop: it delivers queued notices and
// flushes local spectator frames that have waited longer than FlushInterval.
func (s *Session) Update() {
	s.notices.DeliverTo(s.notifier)

	s.bufMu.Lock()
	var gen uint64
	var err error
	if len(s.outgoing) > 0 && s.now().Sub(s.lastFlush) > FlushInterval {
		gen, err = s.flushLocked("time")
	}
	s.bufMu.Unlock()

	if err != nil {
		s.teardown(gen, reasonWrite, err)
	}
}

// Status is a point-in-time summary of the session.
type Status struct {
	Connected      bool   `json:"connected"`
	Authenticated  bool   `json:"authenticated"`
	UserID         int32  `json:"user_id"`
	Username       string `json:"username"`
	OnlineUsers    int    `json:"online_users"`
	Friends        int    `json:"friends"`
	Channels       int    `json:"channels"`
	LobbyQueued    int    `json:"lobby_queued"`
	SpectatingHost int32  `json:"spectating_host,omitempty"`
	Observers      int    `json:"observers"`
	Watchers       int    `json:"watchers"`
	OutgoingFrames int    `json:"outgoing_frames"`
}

// Status returns a snapshot for diagnostics.
func (s *Session) Status() Status {
	s.bufMu.Lock()
	outgoing := len(s.outgoing)
	s.bufMu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Connected:      s.conn != nil,
		Authenticated:  s.authenticated,
		UserID:         s.userID,
		Username:       s.username,
		OnlineUsers:    len(s.presences),
		Friends:        len(s.friends),
		Channels:       len(s.chat),
		LobbyQueued:    len(s.lobby),
		Watchers:       len(s.watchers),
		OutgoingFrames: outgoing,
	}
	if s.spectate != nil {
		st.SpectatingHost = s.spectate.host
		st.Observers = len(s.spectate.observers)
	}
	return st
}

// displayName returns the best known name for id. Caller holds mu.
func (s *Session) displayName(id int32) string {
	if p, ok := s.presences[id]; ok && p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("User #%d", id)
}

func sortedIDs(set map[int32]struct{}) []int32 {
	out := make([]int32, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
