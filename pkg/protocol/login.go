package protocol

// CurrentVersion is the protocol version sent in Login.
const CurrentVersion uint32 = 20

// LoginStatus represents the result of a login attempt.
type LoginStatus uint8

const (
	LoginOk           LoginStatus = 0x00
	LoginBadPassword  LoginStatus = 0x01
	LoginNoUser       LoginStatus = 0x02
	LoginNotActivated LoginStatus = 0x03
	LoginUnknownError LoginStatus = 0x04
)

// String returns the string representation of the login status.
func (s LoginStatus) String() string {
	switch s {
	case LoginOk:
		return "Ok"
	case LoginBadPassword:
		return "BadPassword"
	case LoginNoUser:
		return "NoUser"
	case LoginNotActivated:
		return "NotActivated"
	default:
		return "UnknownError"
	}
}

// Message returns the user-facing text for a failed login.
func (s LoginStatus) Message() string {
	switch s {
	case LoginOk:
		return "Logged in"
	case LoginBadPassword:
		return "Incorrect password"
	case LoginNoUser:
		return "No account with that username exists"
	case LoginNotActivated:
		return "Your account has not been activated yet"
	default:
		return "Login failed for an unknown reason"
	}
}

// Login is sent by the client right after the socket opens.
type Login struct {
	ProtocolVersion uint32
	ClientID        string
	Username        string
	Password        string
}

func (*Login) Kind() Kind { return KindLogin }

func (p *Login) encodeBody(e *Encoder) {
	e.WriteUint32(p.ProtocolVersion)
	e.WriteString(p.ClientID)
	e.WriteString(p.Username)
	e.WriteString(p.Password)
}

func decodeLogin(d *Decoder) (*Login, error) {
	p := &Login{}
	var err error
	if p.ProtocolVersion, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if p.ClientID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.Username, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.Password, err = d.ReadString(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoginResponse is the server's answer to Login. UserID is only
// meaningful when Status is LoginOk.
type LoginResponse struct {
	Status LoginStatus
	UserID int32
}

func (*LoginResponse) Kind() Kind { return KindLoginResponse }

func (p *LoginResponse) encodeBody(e *Encoder) {
	e.WriteByte(byte(p.Status))
	e.WriteInt32(p.UserID)
}

func decodeLoginResponse(d *Decoder) (*LoginResponse, error) {
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	id, err := d.ReadInt32()
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Status: LoginStatus(status), UserID: id}, nil
}

// Ping is the application keep-alive.
type Ping struct {
	Timestamp uint64 // Unix milliseconds
}

func (*Ping) Kind() Kind { return KindPing }

func (p *Ping) encodeBody(e *Encoder) { e.WriteUint64(p.Timestamp) }

func decodePing(d *Decoder) (*Ping, error) {
	ts, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	return &Ping{Timestamp: ts}, nil
}

// Pong answers a Ping and echoes its timestamp.
type Pong struct {
	Timestamp uint64
}

func (*Pong) Kind() Kind { return KindPong }

func (p *Pong) encodeBody(e *Encoder) { e.WriteUint64(p.Timestamp) }

func decodePong(d *Decoder) (*Pong, error) {
	ts, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	return &Pong{Timestamp: ts}, nil
}

// Logout tells the server the client is leaving.
type Logout struct{}

func (*Logout) Kind() Kind { return KindLogout }

func (*Logout) encodeBody(*Encoder) {}
