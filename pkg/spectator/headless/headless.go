// Package headless provides a spectator engine that keeps time and a rough
// score without rendering or audio. The CLI uses it to follow a host from a
// terminal.
package headless

import (
	"fmt"
	"os"
	"sort"

	"github.com/kiai-dev/kiai/pkg/protocol"
	"github.com/kiai-dev/kiai/pkg/spectator"
)

// Points awarded per key press, multiplied by the combo.
const basePoints = 300

type timedInput struct {
	ts float64
	in protocol.Input
}

// Engine counts key presses as hits. It has no notion of the chart's
// objects, so every press is a Great.
type Engine struct {
	cfg      spectator.EngineConfig
	now      float64
	duration float64
	started  bool
	paused   bool

	pending  []timedInput
	prevKeys uint32
	score    protocol.Score
}

// New creates an engine positioned at cfg.Offset.
func New(cfg spectator.EngineConfig) *Engine {
	return &Engine{
		cfg:      cfg,
		now:      cfg.Offset,
		duration: cfg.Map.DurationMS,
		paused:   true,
		score:    protocol.Score{Accuracy: 1, Health: 1},
	}
}

// Factory builds headless engines.
type Factory struct{}

// NewEngine implements spectator.EngineFactory.
func (Factory) NewEngine(cfg spectator.EngineConfig) (spectator.Engine, error) {
	if cfg.Speed < 0 {
		return nil, fmt.Errorf("headless: invalid speed %v", cfg.Speed)
	}
	return New(cfg), nil
}

// Start checks that the map file is readable.
func (e *Engine) Start() error {
	if e.cfg.Map.Path != "" {
		if _, err := os.Stat(e.cfg.Map.Path); err != nil {
			return fmt.Errorf("headless: %w", err)
		}
	}
	e.started = true
	return nil
}

func (e *Engine) Pause()  { e.paused = true }
func (e *Engine) Resume() { e.paused = false }

// Advance moves the clock forward and judges inputs that are now due.
func (e *Engine) Advance(ms float64) {
	if !e.started || e.paused || ms <= 0 {
		return
	}
	e.now += ms
	e.judge()
}

// PushInput queues an input sample; samples may arrive out of order.
func (e *Engine) PushInput(ts float64, in protocol.Input) {
	i := sort.Search(len(e.pending), func(i int) bool { return e.pending[i].ts > ts })
	e.pending = append(e.pending, timedInput{})
	copy(e.pending[i+1:], e.pending[i:])
	e.pending[i] = timedInput{ts: ts, in: in}
}

func (e *Engine) judge() {
	n := 0
	for n < len(e.pending) && e.pending[n].ts <= e.now {
		in := e.pending[n]
		pressed := in.in.Keys &^ e.prevKeys
		e.prevKeys = in.in.Keys
		if pressed != 0 {
			e.score.Great++
			e.score.Combo++
			if e.score.Combo > e.score.MaxCombo {
				e.score.MaxCombo = e.score.Combo
			}
			e.score.Total += int64(basePoints) * int64(e.score.Combo)
			e.score.HitTimings = append(e.score.HitTimings, float32(e.now-in.ts))
		}
		n++
	}
	e.pending = e.pending[n:]
}

func (e *Engine) CurrentTime() float64 { return e.now }

// IsComplete reports whether the clock reached the end of the map.
func (e *Engine) IsComplete() bool {
	return e.duration > 0 && e.now >= e.duration
}

// Score returns a copy of the current score.
func (e *Engine) Score() protocol.Score {
	s := e.score
	s.HitTimings = append([]float32(nil), e.score.HitTimings...)
	return s
}

func (e *Engine) ReplaceScore(s protocol.Score) { e.score = s }

// Paused reports whether the clock is stopped.
func (e *Engine) Paused() bool { return e.paused }
