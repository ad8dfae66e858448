package protocol

import "fmt"

// Lobby is any packet in the lobby kind range. Its body is kept verbatim
// for the lobby layer, which owns the semantics.
type Lobby struct {
	LobbyKind Kind
	Body      []byte
}

func (p *Lobby) Kind() Kind { return p.LobbyKind }

func (p *Lobby) encodeBody(e *Encoder) { e.WriteBytes(p.Body) }

// NewLobby creates a lobby packet. It panics if kind is outside the lobby
// range, which is always a programming error.
func NewLobby(kind Kind, body []byte) *Lobby {
	if !kind.IsLobby() {
		panic(fmt.Sprintf("protocol: %v is not a lobby kind", kind))
	}
	return &Lobby{LobbyKind: kind, Body: body}
}

func decodeLobby(k Kind, d *Decoder) (*Lobby, error) {
	body, err := d.ReadBytes(d.Remaining())
	if err != nil {
		return nil, err
	}
	owned := make([]byte, len(body))
	copy(owned, body)
	return &Lobby{LobbyKind: k, Body: owned}, nil
}
