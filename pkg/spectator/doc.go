// Package spectator turns a spectated host's frame stream into smooth local
// playback.
//
// A Synchronizer pulls frames from a Source (normally a *session.Session)
// once per presentation frame, loads an Engine for the host's map and keeps
// playback at least Lookahead behind the newest frame received:
//
//	sync := spectator.New(spectator.Options{
//	    Source:    sess,
//	    Library:   library,
//	    Engines:   headless.Factory{},
//	    Presenter: presenter,
//	})
//	for range ticker.C {
//	    sess.Update()
//	    sync.Update(frameTime)
//	}
//
// Host scores are buffered and applied once local playback reaches them, so
// the displayed score matches the host's while the hit-error display keeps
// using local timings.
package spectator
