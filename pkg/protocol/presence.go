package protocol

// Action is what a user is currently doing.
type Action uint8

const (
	ActionIdle Action = iota
	ActionAfk
	ActionPlaying
	ActionEditing
	ActionSpectating
	ActionMultiplayer
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "Idle"
	case ActionAfk:
		return "Afk"
	case ActionPlaying:
		return "Playing"
	case ActionEditing:
		return "Editing"
	case ActionSpectating:
		return "Spectating"
	case ActionMultiplayer:
		return "Multiplayer"
	default:
		return "Unknown"
	}
}

// Status is the mutable part of a presence.
type Status struct {
	Action Action
	Text   string
	Mode   string
}

func (s *Status) encode(e *Encoder) {
	e.WriteByte(byte(s.Action))
	e.WriteString(s.Text)
	e.WriteString(s.Mode)
}

func decodeStatus(d *Decoder) (Status, error) {
	var s Status
	action, err := d.ReadByte()
	if err != nil {
		return s, err
	}
	s.Action = Action(action)
	if s.Text, err = d.ReadString(); err != nil {
		return s, err
	}
	if s.Mode, err = d.ReadString(); err != nil {
		return s, err
	}
	return s, nil
}

// UserJoined announces a user coming online.
type UserJoined struct {
	UserID   int32
	Username string
	Status   Status
}

func (*UserJoined) Kind() Kind { return KindUserJoined }

func (p *UserJoined) encodeBody(e *Encoder) {
	e.WriteInt32(p.UserID)
	e.WriteString(p.Username)
	p.Status.encode(e)
}

func decodeUserJoined(d *Decoder) (*UserJoined, error) {
	p := &UserJoined{}
	var err error
	if p.UserID, err = d.ReadInt32(); err != nil {
		return nil, err
	}
	if p.Username, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.Status, err = decodeStatus(d); err != nil {
		return nil, err
	}
	return p, nil
}

// UserLeft announces a user going offline.
type UserLeft struct {
	UserID int32
}

func (*UserLeft) Kind() Kind { return KindUserLeft }

func (p *UserLeft) encodeBody(e *Encoder) { e.WriteInt32(p.UserID) }

func decodeUserLeft(d *Decoder) (*UserLeft, error) {
	id, err := d.ReadInt32()
	if err != nil {
		return nil, err
	}
	return &UserLeft{UserID: id}, nil
}

// StatusUpdate patches an existing presence.
type StatusUpdate struct {
	UserID int32
	Status Status
}

func (*StatusUpdate) Kind() Kind { return KindStatusUpdate }

func (p *StatusUpdate) encodeBody(e *Encoder) {
	e.WriteInt32(p.UserID)
	p.Status.encode(e)
}

func decodeStatusUpdate(d *Decoder) (*StatusUpdate, error) {
	p := &StatusUpdate{}
	var err error
	if p.UserID, err = d.ReadInt32(); err != nil {
		return nil, err
	}
	if p.Status, err = decodeStatus(d); err != nil {
		return nil, err
	}
	return p, nil
}
