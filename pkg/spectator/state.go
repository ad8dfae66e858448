package spectator

// State is the playback state of the synchronizer.
type State int

const (
	// StateIdle means nothing is being played back.
	StateIdle State = iota

	// StateBuffering means an engine is loaded but paused until enough
	// frames have arrived.
	StateBuffering

	// StateWatching means the engine is advancing.
	StateWatching

	// StatePaused means the host paused.
	StatePaused

	// StateMapChanging means the host left the map and a new one has not
	// started yet.
	StateMapChanging
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBuffering:
		return "Buffering"
	case StateWatching:
		return "Watching"
	case StatePaused:
		return "Paused"
	case StateMapChanging:
		return "MapChanging"
	default:
		return "Unknown"
	}
}

// HasEngine reports whether an engine is loaded in this state.
func (s State) HasEngine() bool {
	return s != StateIdle
}
