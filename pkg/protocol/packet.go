package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Packet constants.
const (
	// PacketHeaderSize is the size of the packet header in bytes.
	PacketHeaderSize = 6

	// MaxPacketSize is the maximum body size of a single packet (4MB).
	MaxPacketSize = 4 << 20
)

// Kind is the stable numeric tag that identifies a packet on the wire.
type Kind uint16

const (
	KindLogin         Kind = 0x0001 // Client → Server credentials
	KindLoginResponse Kind = 0x0002 // Server → Client login outcome
	KindPing          Kind = 0x0003 // Keep-alive
	KindPong          Kind = 0x0004 // Keep-alive reply
	KindLogout        Kind = 0x0005 // Client → Server graceful logout

	KindUserJoined   Kind = 0x0010 // Presence created
	KindUserLeft     Kind = 0x0011 // Presence removed
	KindStatusUpdate Kind = 0x0012 // Presence patched

	KindChatMessage    Kind = 0x0020 // Chat in either direction
	KindFriendsList    Kind = 0x0021 // Full friend list
	KindFriendAdded    Kind = 0x0022 // Friend delta
	KindFriendRemoved  Kind = 0x0023 // Friend delta
	KindRequestFriends Kind = 0x0024 // Client asks for the friend list
	KindServerNotice   Kind = 0x0025 // Server announcement

	KindSpectateRequest Kind = 0x0030 // Client asks to spectate a host
	KindSpectateResult  Kind = 0x0031 // Server answers a spectate request
	KindStopSpectating  Kind = 0x0032 // Client leaves a host
	KindSpectatorJoined Kind = 0x0033 // Another user started watching
	KindSpectatorLeft   Kind = 0x0034 // Another user stopped watching
	KindSpectatorFrames Kind = 0x0035 // Batched timestamped frames

	// Lobby kinds occupy [KindLobbyFirst, KindLobbyLast]. They are relayed
	// opaquely to the lobby layer.
	KindLobbyList       Kind = 0x0040
	KindLobbyUpdate     Kind = 0x0041
	KindLobbyRemoved    Kind = 0x0042
	KindLobbyJoinResult Kind = 0x0043
	KindLobbyChat       Kind = 0x0044
	KindLobbyMatchStart Kind = 0x0045

	KindLobbyFirst = KindLobbyList
	KindLobbyLast  Kind = 0x004F
)

var kindNames = map[Kind]string{
	KindLogin:           "Login",
	KindLoginResponse:   "LoginResponse",
	KindPing:            "Ping",
	KindPong:            "Pong",
	KindLogout:          "Logout",
	KindUserJoined:      "UserJoined",
	KindUserLeft:        "UserLeft",
	KindStatusUpdate:    "StatusUpdate",
	KindChatMessage:     "ChatMessage",
	KindFriendsList:     "FriendsList",
	KindFriendAdded:     "FriendAdded",
	KindFriendRemoved:   "FriendRemoved",
	KindRequestFriends:  "RequestFriends",
	KindServerNotice:    "ServerNotice",
	KindSpectateRequest: "SpectateRequest",
	KindSpectateResult:  "SpectateResult",
	KindStopSpectating:  "StopSpectating",
	KindSpectatorJoined: "SpectatorJoined",
	KindSpectatorLeft:   "SpectatorLeft",
	KindSpectatorFrames: "SpectatorFrames",
	KindLobbyList:       "LobbyList",
	KindLobbyUpdate:     "LobbyUpdate",
	KindLobbyRemoved:    "LobbyRemoved",
	KindLobbyJoinResult: "LobbyJoinResult",
	KindLobbyChat:       "LobbyChat",
	KindLobbyMatchStart: "LobbyMatchStart",
}

// String returns the string representation of the packet kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	if k.IsLobby() {
		return fmt.Sprintf("Lobby(0x%04x)", uint16(k))
	}
	return fmt.Sprintf("Unknown(0x%04x)", uint16(k))
}

// IsLobby reports whether k belongs to the opaque lobby range.
func (k Kind) IsLobby() bool {
	return k >= KindLobbyFirst && k <= KindLobbyLast
}

// Packet errors.
var (
	ErrPacketTooLarge = errors.New("protocol: packet body too large")
	ErrUnknownKind    = errors.New("protocol: unknown packet kind")
)

// UnknownKindError reports a packet whose tag has no decoder. It matches
// ErrUnknownKind with errors.Is.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("protocol: unknown packet kind 0x%04x", uint16(e.Kind))
}

func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// Packet is one tagged, self-delimiting unit of the stream.
// The set of implementations is closed: only types in this package
// satisfy it.
type Packet interface {
	Kind() Kind
	encodeBody(e *Encoder)
}

// Serialize encodes a packet including its header.
//
// Wire format (6 bytes header + variable body):
//
//	┌──────────────────┬──────────────────────────────┐
//	│ Kind (2 bytes)   │ Body length (4 bytes)        │
//	└──────────────────┴──────────────────────────────┘
//	│ Body (variable length)                          │
//	└─────────────────────────────────────────────────┘
func Serialize(p Packet) []byte {
	e := NewEncoder()
	SerializeTo(e, p)
	return e.Bytes()
}

// SerializeTo appends a packet to the encoder. Several packets appended to
// one encoder form a single message.
func SerializeTo(e *Encoder, p Packet) {
	e.WriteUint16(uint16(p.Kind()))
	off := e.reserveUint32()
	start := e.Len()
	p.encodeBody(e)
	e.patchUint32(off, uint32(e.Len()-start))
}

// SerializeAll encodes several packets into one message.
func SerializeAll(packets ...Packet) []byte {
	e := NewEncoder()
	for _, p := range packets {
		SerializeTo(e, p)
	}
	return e.Bytes()
}

// Reader walks the packets of one message in order.
type Reader struct {
	d *Decoder
}

// NewReader creates a reader over a complete message.
func NewReader(msg []byte) *Reader {
	return &Reader{d: NewDecoder(msg)}
}

// Next decodes the next packet. It returns io.EOF once the message is
// exhausted. Any other error leaves the reader positioned mid-stream; the
// remainder of the message cannot be trusted and should be discarded.
func (r *Reader) Next() (Packet, error) {
	if r.d.EOF() {
		return nil, io.EOF
	}

	kind, err := r.d.ReadUint16()
	if err != nil {
		return nil, err
	}
	length, err := r.d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	body, err := r.d.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}

	return decodeBody(Kind(kind), NewDecoder(body))
}

// DecodeAll decodes every packet in msg. On error it returns the packets
// decoded so far together with the error.
func DecodeAll(msg []byte) ([]Packet, error) {
	r := NewReader(msg)
	var out []Packet
	for {
		p, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}

func decodeBody(k Kind, d *Decoder) (Packet, error) {
	if k.IsLobby() {
		return decodeLobby(k, d)
	}

	switch k {
	case KindLogin:
		return decodeLogin(d)
	case KindLoginResponse:
		return decodeLoginResponse(d)
	case KindPing:
		return decodePing(d)
	case KindPong:
		return decodePong(d)
	case KindLogout:
		return &Logout{}, nil
	case KindUserJoined:
		return decodeUserJoined(d)
	case KindUserLeft:
		return decodeUserLeft(d)
	case KindStatusUpdate:
		return decodeStatusUpdate(d)
	case KindChatMessage:
		return decodeChatMessage(d)
	case KindFriendsList:
		return decodeFriendsList(d)
	case KindFriendAdded:
		id, err := d.ReadInt32()
		if err != nil {
			return nil, err
		}
		return &FriendAdded{UserID: id}, nil
	case KindFriendRemoved:
		id, err := d.ReadInt32()
		if err != nil {
			return nil, err
		}
		return &FriendRemoved{UserID: id}, nil
	case KindRequestFriends:
		return &RequestFriends{}, nil
	case KindServerNotice:
		text, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return &ServerNotice{Text: text}, nil
	case KindSpectateRequest:
		id, err := d.ReadInt32()
		if err != nil {
			return nil, err
		}
		return &SpectateRequest{HostID: id}, nil
	case KindSpectateResult:
		return decodeSpectateResult(d)
	case KindStopSpectating:
		id, err := d.ReadInt32()
		if err != nil {
			return nil, err
		}
		return &StopSpectating{HostID: id}, nil
	case KindSpectatorJoined:
		host, user, err := decodeHostUser(d)
		if err != nil {
			return nil, err
		}
		return &SpectatorJoined{HostID: host, UserID: user}, nil
	case KindSpectatorLeft:
		host, user, err := decodeHostUser(d)
		if err != nil {
			return nil, err
		}
		return &SpectatorLeft{HostID: host, UserID: user}, nil
	case KindSpectatorFrames:
		return decodeSpectatorFrames(d)
	default:
		return nil, &UnknownKindError{Kind: k}
	}
}
