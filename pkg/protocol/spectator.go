package protocol

import (
	"errors"
	"fmt"
)

// SpectateStatus is the server's verdict on a spectate request.
type SpectateStatus uint8

const (
	SpectateOk          SpectateStatus = 0x00
	SpectateBot         SpectateStatus = 0x01
	SpectateHostOffline SpectateStatus = 0x02
	SpectateSelf        SpectateStatus = 0x03
	SpectateUnknown     SpectateStatus = 0x04
)

// String returns the string representation of the spectate status.
func (s SpectateStatus) String() string {
	switch s {
	case SpectateOk:
		return "Ok"
	case SpectateBot:
		return "Bot"
	case SpectateHostOffline:
		return "HostOffline"
	case SpectateSelf:
		return "Self"
	default:
		return "Unknown"
	}
}

// SpectateRequest asks to watch HostID.
type SpectateRequest struct {
	HostID int32
}

func (*SpectateRequest) Kind() Kind { return KindSpectateRequest }

func (p *SpectateRequest) encodeBody(e *Encoder) { e.WriteInt32(p.HostID) }

// SpectateResult answers a SpectateRequest.
type SpectateResult struct {
	HostID int32
	Status SpectateStatus
}

func (*SpectateResult) Kind() Kind { return KindSpectateResult }

func (p *SpectateResult) encodeBody(e *Encoder) {
	e.WriteInt32(p.HostID)
	e.WriteByte(byte(p.Status))
}

func decodeSpectateResult(d *Decoder) (*SpectateResult, error) {
	host, err := d.ReadInt32()
	if err != nil {
		return nil, err
	}
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	return &SpectateResult{HostID: host, Status: SpectateStatus(status)}, nil
}

// StopSpectating tells the server the client no longer watches HostID.
type StopSpectating struct {
	HostID int32
}

func (*StopSpectating) Kind() Kind { return KindStopSpectating }

func (p *StopSpectating) encodeBody(e *Encoder) { e.WriteInt32(p.HostID) }

// SpectatorJoined reports that UserID started watching HostID.
type SpectatorJoined struct {
	HostID int32
	UserID int32
}

func (*SpectatorJoined) Kind() Kind { return KindSpectatorJoined }

func (p *SpectatorJoined) encodeBody(e *Encoder) {
	e.WriteInt32(p.HostID)
	e.WriteInt32(p.UserID)
}

// SpectatorLeft reports that UserID stopped watching HostID.
type SpectatorLeft struct {
	HostID int32
	UserID int32
}

func (*SpectatorLeft) Kind() Kind { return KindSpectatorLeft }

func (p *SpectatorLeft) encodeBody(e *Encoder) {
	e.WriteInt32(p.HostID)
	e.WriteInt32(p.UserID)
}

func decodeHostUser(d *Decoder) (host, user int32, err error) {
	if host, err = d.ReadInt32(); err != nil {
		return 0, 0, err
	}
	if user, err = d.ReadInt32(); err != nil {
		return 0, 0, err
	}
	return host, user, nil
}

// SpectatorFrames carries a batch of frames from HostID. Outgoing batches
// from the local player use the local user id.
type SpectatorFrames struct {
	HostID int32
	Frames []SpectatorFrame
}

func (*SpectatorFrames) Kind() Kind { return KindSpectatorFrames }

func (p *SpectatorFrames) encodeBody(e *Encoder) {
	e.WriteInt32(p.HostID)
	e.WriteUvarint(uint64(len(p.Frames)))
	for i := range p.Frames {
		p.Frames[i].encode(e)
	}
}

func decodeSpectatorFrames(d *Decoder) (*SpectatorFrames, error) {
	host, err := d.ReadInt32()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	frames := make([]SpectatorFrame, 0, count)
	for i := 0; i < count; i++ {
		f, err := decodeFrame(d)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return &SpectatorFrames{HostID: host, Frames: frames}, nil
}

// SpectatorFrame is one timestamped unit of spectator data. Timestamp is in
// milliseconds of map time.
type SpectatorFrame struct {
	Timestamp float64
	Payload   FramePayload
}

func (f *SpectatorFrame) encode(e *Encoder) {
	e.WriteFloat64(f.Timestamp)
	e.WriteByte(byte(f.Payload.FrameKind()))
	f.Payload.encodePayload(e)
}

// FrameKind tags a frame payload on the wire.
type FrameKind uint8

const (
	FrameInput           FrameKind = 0x01
	FramePause           FrameKind = 0x02
	FrameUnpause         FrameKind = 0x03
	FrameBuffering       FrameKind = 0x04
	FrameScoreSync       FrameKind = 0x05
	FramePlay            FrameKind = 0x06
	FrameMapInfo         FrameKind = 0x07
	FrameChangingMap     FrameKind = 0x08
	FramePlayingRequest  FrameKind = 0x09
	FramePlayingResponse FrameKind = 0x0A
)

// String returns the string representation of the frame kind.
func (k FrameKind) String() string {
	switch k {
	case FrameInput:
		return "Input"
	case FramePause:
		return "Pause"
	case FrameUnpause:
		return "Unpause"
	case FrameBuffering:
		return "Buffering"
	case FrameScoreSync:
		return "ScoreSync"
	case FramePlay:
		return "Play"
	case FrameMapInfo:
		return "MapInfo"
	case FrameChangingMap:
		return "ChangingMap"
	case FramePlayingRequest:
		return "PlayingRequest"
	case FramePlayingResponse:
		return "PlayingResponse"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(k))
	}
}

// ErrUnknownFrame is returned when a frame payload tag has no decoder.
var ErrUnknownFrame = errors.New("protocol: unknown spectator frame kind")

// FramePayload is the closed set of spectator frame contents.
type FramePayload interface {
	FrameKind() FrameKind
	encodePayload(e *Encoder)
}

// Input is one sample of the host's replay input.
type Input struct {
	Keys uint32 // pressed key bitmask
	X, Y float32
}

// Pause marks the host pausing.
type Pause struct{}

// Unpause marks the host resuming.
type Unpause struct{}

// Buffering marks the host's own client stalling.
type Buffering struct{}

// ScoreSync carries the host's authoritative score at the frame timestamp.
type ScoreSync struct {
	Score Score
}

// MapIdentity names a map together with the settings it is played with.
type MapIdentity struct {
	Hash  string
	Mode  string
	Mods  string
	Speed float32
}

func (m *MapIdentity) encode(e *Encoder) {
	e.WriteString(m.Hash)
	e.WriteString(m.Mode)
	e.WriteString(m.Mods)
	e.WriteFloat32(m.Speed)
}

func decodeMapIdentity(d *Decoder) (MapIdentity, error) {
	var m MapIdentity
	var err error
	if m.Hash, err = d.ReadString(); err != nil {
		return m, err
	}
	if m.Mode, err = d.ReadString(); err != nil {
		return m, err
	}
	if m.Mods, err = d.ReadString(); err != nil {
		return m, err
	}
	if m.Speed, err = d.ReadFloat32(); err != nil {
		return m, err
	}
	return m, nil
}

// Play announces the host starting a map from the beginning.
type Play struct {
	MapIdentity
}

// MapInfo tells spectators where a map can be fetched from.
type MapInfo struct {
	Hash   string
	Mode   string
	Source string
	Hint   string
}

// ChangingMap marks the host leaving the current map.
type ChangingMap struct{}

// PlayingRequest asks the host what it is currently playing. From is the
// requesting spectator.
type PlayingRequest struct {
	From int32
}

// PlayingResponse answers a PlayingRequest for spectator To, with the map
// and the host's current position in milliseconds.
type PlayingResponse struct {
	To int32
	MapIdentity
	Offset float64
}

func (Input) FrameKind() FrameKind           { return FrameInput }
func (Pause) FrameKind() FrameKind           { return FramePause }
func (Unpause) FrameKind() FrameKind         { return FrameUnpause }
func (Buffering) FrameKind() FrameKind       { return FrameBuffering }
func (ScoreSync) FrameKind() FrameKind       { return FrameScoreSync }
func (Play) FrameKind() FrameKind            { return FramePlay }
func (MapInfo) FrameKind() FrameKind         { return FrameMapInfo }
func (ChangingMap) FrameKind() FrameKind     { return FrameChangingMap }
func (PlayingRequest) FrameKind() FrameKind  { return FramePlayingRequest }
func (PlayingResponse) FrameKind() FrameKind { return FramePlayingResponse }

func (p Input) encodePayload(e *Encoder) {
	e.WriteUint32(p.Keys)
	e.WriteFloat32(p.X)
	e.WriteFloat32(p.Y)
}

func (Pause) encodePayload(*Encoder)       {}
func (Unpause) encodePayload(*Encoder)     {}
func (Buffering) encodePayload(*Encoder)   {}
func (ChangingMap) encodePayload(*Encoder) {}

func (p ScoreSync) encodePayload(e *Encoder) { p.Score.encode(e) }

func (p Play) encodePayload(e *Encoder) { p.MapIdentity.encode(e) }

func (p MapInfo) encodePayload(e *Encoder) {
	e.WriteString(p.Hash)
	e.WriteString(p.Mode)
	e.WriteString(p.Source)
	e.WriteString(p.Hint)
}

func (p PlayingRequest) encodePayload(e *Encoder) { e.WriteInt32(p.From) }

func (p PlayingResponse) encodePayload(e *Encoder) {
	e.WriteInt32(p.To)
	p.MapIdentity.encode(e)
	e.WriteFloat64(p.Offset)
}

func decodeFrame(d *Decoder) (SpectatorFrame, error) {
	var f SpectatorFrame
	ts, err := d.ReadFloat64()
	if err != nil {
		return f, err
	}
	f.Timestamp = ts
	tag, err := d.ReadByte()
	if err != nil {
		return f, err
	}
	f.Payload, err = decodePayload(FrameKind(tag), d)
	return f, err
}

func decodePayload(k FrameKind, d *Decoder) (FramePayload, error) {
	switch k {
	case FrameInput:
		var p Input
		var err error
		if p.Keys, err = d.ReadUint32(); err != nil {
			return nil, err
		}
		if p.X, err = d.ReadFloat32(); err != nil {
			return nil, err
		}
		if p.Y, err = d.ReadFloat32(); err != nil {
			return nil, err
		}
		return p, nil
	case FramePause:
		return Pause{}, nil
	case FrameUnpause:
		return Unpause{}, nil
	case FrameBuffering:
		return Buffering{}, nil
	case FrameChangingMap:
		return ChangingMap{}, nil
	case FrameScoreSync:
		s, err := decodeScore(d)
		if err != nil {
			return nil, err
		}
		return ScoreSync{Score: s}, nil
	case FramePlay:
		m, err := decodeMapIdentity(d)
		if err != nil {
			return nil, err
		}
		return Play{MapIdentity: m}, nil
	case FrameMapInfo:
		var p MapInfo
		var err error
		for _, s := range []*string{&p.Hash, &p.Mode, &p.Source, &p.Hint} {
			if *s, err = d.ReadString(); err != nil {
				return nil, err
			}
		}
		return p, nil
	case FramePlayingRequest:
		from, err := d.ReadInt32()
		if err != nil {
			return nil, err
		}
		return PlayingRequest{From: from}, nil
	case FramePlayingResponse:
		var p PlayingResponse
		var err error
		if p.To, err = d.ReadInt32(); err != nil {
			return nil, err
		}
		if p.MapIdentity, err = decodeMapIdentity(d); err != nil {
			return nil, err
		}
		if p.Offset, err = d.ReadFloat64(); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownFrame, uint8(k))
	}
}
