package spectator

import (
	"github.com/kiai-dev/kiai/pkg/maps"
	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
	"github.com/kiai-dev/kiai/pkg/session"
)

// EngineConfig describes the playback an Engine is built for. Offset is the
// map position, in milliseconds, playback starts from.
type EngineConfig struct {
	Map    maps.Map
	Mode   string
	Mods   string
	Speed  float32
	Offset float64
}

// Engine replays a host's inputs against a map. All times are milliseconds
// of map time.
//
// Engines are driven from the synchronizer's goroutine only.
type Engine interface {
	// Start loads the map and positions playback at the configured offset.
	// The engine stays paused until Resume.
	Start() error
	Pause()
	Resume()

	// Advance moves playback forward by ms.
	Advance(ms float64)

	PushInput(ts float64, in protocol.Input)
	CurrentTime() float64
	IsComplete() bool

	Score() protocol.Score
	ReplaceScore(s protocol.Score)
}

// EngineFactory builds engines for maps.
type EngineFactory interface {
	NewEngine(cfg EngineConfig) (Engine, error)
}

// EngineFactoryFunc adapts a function to the EngineFactory interface.
type EngineFactoryFunc func(cfg EngineConfig) (Engine, error)

// NewEngine calls f(cfg).
func (f EngineFactoryFunc) NewEngine(cfg EngineConfig) (Engine, error) { return f(cfg) }

// Presenter shows spectator playback to the user.
type Presenter interface {
	notify.Notifier
	RenderBanner(state State)
	RenderScoreSummary(score protocol.Score)
	ClearScoreSummary()
}

// Source supplies frames for the spectated host. *session.Session
// implements it.
type Source interface {
	LocalUserID() int32
	DrainSpectatorFrames() (session.Batch, bool)
	StopSpectating() bool
}

var _ Source = (*session.Session)(nil)
