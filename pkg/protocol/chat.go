package protocol

import "strings"

// ChatMessage carries one line of chat. Targets starting with '#' are
// rooms; anything else is a username for a direct message.
type ChatMessage struct {
	SenderID int32
	Sender   string
	Target   string
	Text     string
}

func (*ChatMessage) Kind() Kind { return KindChatMessage }

// IsRoom reports whether the message is addressed to a room.
func (p *ChatMessage) IsRoom() bool {
	return strings.HasPrefix(p.Target, "#")
}

func (p *ChatMessage) encodeBody(e *Encoder) {
	e.WriteInt32(p.SenderID)
	e.WriteString(p.Sender)
	e.WriteString(p.Target)
	e.WriteString(p.Text)
}

func decodeChatMessage(d *Decoder) (*ChatMessage, error) {
	p := &ChatMessage{}
	var err error
	if p.SenderID, err = d.ReadInt32(); err != nil {
		return nil, err
	}
	if p.Sender, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.Target, err = d.ReadString(); err != nil {
		return nil, err
	}
	if p.Text, err = d.ReadString(); err != nil {
		return nil, err
	}
	return p, nil
}

// FriendsList replaces the client's friend set.
type FriendsList struct {
	UserIDs []int32
}

func (*FriendsList) Kind() Kind { return KindFriendsList }

func (p *FriendsList) encodeBody(e *Encoder) {
	e.WriteUvarint(uint64(len(p.UserIDs)))
	for _, id := range p.UserIDs {
		e.WriteInt32(id)
	}
}

func decodeFriendsList(d *Decoder) (*FriendsList, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	ids := make([]int32, count)
	for i := range ids {
		if ids[i], err = d.ReadInt32(); err != nil {
			return nil, err
		}
	}
	return &FriendsList{UserIDs: ids}, nil
}

// FriendAdded adds one id to the friend set.
type FriendAdded struct {
	UserID int32
}

func (*FriendAdded) Kind() Kind { return KindFriendAdded }

func (p *FriendAdded) encodeBody(e *Encoder) { e.WriteInt32(p.UserID) }

// FriendRemoved removes one id from the friend set.
type FriendRemoved struct {
	UserID int32
}

func (*FriendRemoved) Kind() Kind { return KindFriendRemoved }

func (p *FriendRemoved) encodeBody(e *Encoder) { e.WriteInt32(p.UserID) }

// RequestFriends asks the server for a FriendsList.
type RequestFriends struct{}

func (*RequestFriends) Kind() Kind { return KindRequestFriends }

func (*RequestFriends) encodeBody(*Encoder) {}

// ServerNotice is a free-text announcement from the server.
type ServerNotice struct {
	Text string
}

func (*ServerNotice) Kind() Kind { return KindServerNotice }

func (p *ServerNotice) encodeBody(e *Encoder) { e.WriteString(p.Text) }
