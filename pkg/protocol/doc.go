// Package protocol implements the kiai binary wire protocol.
//
// A websocket binary message carries one or more packets back to back.
// Every packet is self-delimiting:
//
//	┌──────────────────┬──────────────────────────────┐
//	│ Kind (uint16 BE) │ Body length (uint32 BE)      │
//	└──────────────────┴──────────────────────────────┘
//	│ Body (kind-specific)                            │
//	└─────────────────────────────────────────────────┘
//
// # Packet Families
//
//   - Login: Login, LoginResponse, Ping, Pong, Logout
//   - Presence: UserJoined, UserLeft, StatusUpdate
//   - Chat: ChatMessage, FriendsList, FriendAdded, FriendRemoved,
//     RequestFriends, ServerNotice
//   - Spectator: SpectateRequest, SpectateResult, StopSpectating,
//     SpectatorJoined, SpectatorLeft, SpectatorFrames
//   - Lobby: kinds 0x40-0x4F, relayed as opaque Lobby packets
//
// Packet is a sealed interface; only the types in this package implement it,
// so callers dispatch with an exhaustive type switch.
//
// # Spectator Frames
//
// SpectatorFrames batches timestamped frames. Each frame is
//
//	[Timestamp: float64][FrameKind: byte][payload]
//
// and its payload is one of Input, Pause, Unpause, Buffering, ScoreSync,
// Play, MapInfo, ChangingMap, PlayingRequest or PlayingResponse.
//
// # Encoding
//
//   - Varint: protobuf-style unsigned varints for lengths and counters
//   - ZigZag: signed varints for score totals
//   - Length-prefixed: strings prefixed with a varint length
//   - Big-endian: fixed-width integers and IEEE 754 floats
//
// # Decoding
//
// Reader.Next returns io.EOF at the end of a message. Any other error means
// the rest of the message is unusable; an unknown kind yields an
// *UnknownKindError that matches ErrUnknownKind.
package protocol
