// Package notify provides transient user-facing notices for kiai.
//
// The session read loop runs on its own goroutine and must never call back
// into presentation code. It pushes notices onto a Queue instead, and the
// presentation loop delivers them to its Notifier on its own schedule:
//
//	q := &notify.Queue{}
//	notify.Warning(q, "Connection lost")
//
//	// later, on the UI goroutine
//	q.DeliverTo(terminal)
//
// Helpers pick a default duration per severity; errors linger longer.
package notify
