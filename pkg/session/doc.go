// Package session manages the client's connection to the game server.
//
// A Session owns one websocket. Connect dials, sends the login and starts a
// read loop that decodes each binary message into packets and applies them
// to the session state in order:
//
//	sess := session.New(session.Options{Logger: logger, Notifier: presenter})
//	if err := sess.Connect(ctx, "wss://play.example.com/ws", creds); err != nil {
//	    return err
//	}
//	id, err := sess.WaitForLogin(ctx)
//
// After a successful login the session pings the server every second and
// fetches the friend list. It tracks online users, friends, chat histories,
// lobby packets (DrainLobby) and spectating.
//
// # Spectating
//
// RequestSpectate asks to watch a host. Once the server accepts, frames for
// that host are queued until the spectator synchronizer takes them with
// DrainSpectatorFrames. However spectating ends (StopSpectating, the host
// leaving, a new request, a disconnect) the server is sent exactly one stop
// packet.
//
// Local frames for our own spectators go through QueueSpectatorFrame, which
// batches them: a flush happens at 20 frames, after one second, or when
// forced.
//
// # Threading
//
// The read loop and the keep-alive run on their own goroutines. They never
// call the Notifier directly; notices are queued and delivered by Update,
// which the presentation loop calls every frame.
package session
