package headless

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiai-dev/kiai/pkg/maps"
	"github.com/kiai-dev/kiai/pkg/protocol"
	"github.com/kiai-dev/kiai/pkg/spectator"
)

func started(t *testing.T, cfg spectator.EngineConfig) *Engine {
	t.Helper()
	e := New(cfg)
	require.NoError(t, e.Start())
	e.Resume()
	return e
}

func TestEngineJudgesPressEdges(t *testing.T) {
	e := started(t, spectator.EngineConfig{Map: maps.Map{DurationMS: 10000}})

	// Out of order on purpose.
	e.PushInput(200, protocol.Input{Keys: 1})
	e.PushInput(100, protocol.Input{Keys: 1})
	e.PushInput(150, protocol.Input{Keys: 0})
	e.PushInput(400, protocol.Input{Keys: 1})

	e.Advance(250)

	s := e.Score()
	assert.Equal(t, uint32(2), s.Great)
	assert.Equal(t, uint32(2), s.Combo)
	assert.Equal(t, int64(300+600), s.Total)
	assert.Equal(t, []float32{150, 50}, s.HitTimings)
	assert.Equal(t, 250.0, e.CurrentTime())

	// Held key is not a new press.
	e.Advance(200)
	assert.Equal(t, uint32(2), e.Score().Great)
}

func TestEnginePaused(t *testing.T) {
	e := New(spectator.EngineConfig{Offset: 1000})
	require.NoError(t, e.Start())
	assert.True(t, e.Paused())

	e.Advance(500)
	assert.Equal(t, 1000.0, e.CurrentTime())

	e.Resume()
	e.Advance(500)
	assert.Equal(t, 1500.0, e.CurrentTime())

	e.Pause()
	e.Advance(500)
	assert.Equal(t, 1500.0, e.CurrentTime())
}

func TestEngineNotStarted(t *testing.T) {
	e := New(spectator.EngineConfig{})
	e.Resume()
	e.Advance(100)
	assert.Equal(t, 0.0, e.CurrentTime())
}

func TestEngineComplete(t *testing.T) {
	e := started(t, spectator.EngineConfig{Map: maps.Map{DurationMS: 300}})
	e.Advance(299)
	assert.False(t, e.IsComplete())
	e.Advance(1)
	assert.True(t, e.IsComplete())

	unknown := started(t, spectator.EngineConfig{})
	unknown.Advance(1e6)
	assert.False(t, unknown.IsComplete(), "no duration, never complete")
}

func TestEngineScoreCopy(t *testing.T) {
	e := started(t, spectator.EngineConfig{})
	e.PushInput(10, protocol.Input{Keys: 1})
	e.Advance(20)

	s := e.Score()
	s.HitTimings[0] = -99
	assert.Equal(t, float32(10), e.Score().HitTimings[0])

	e.ReplaceScore(protocol.Score{Total: 5}.WithHitTimings(e.Score()))
	assert.Equal(t, int64(5), e.Score().Total)
	assert.Len(t, e.Score().HitTimings, 1)
}

func TestStartChecksMapFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.osu")
	require.NoError(t, os.WriteFile(path, []byte("osu file format v14"), 0o644))

	require.NoError(t, New(spectator.EngineConfig{Map: maps.Map{Path: path}}).Start())
	assert.Error(t, New(spectator.EngineConfig{Map: maps.Map{Path: filepath.Join(dir, "missing.osu")}}).Start())
}

func TestFactory(t *testing.T) {
	var f spectator.EngineFactory = Factory{}

	e, err := f.NewEngine(spectator.EngineConfig{Speed: 1.5, Offset: 42})
	require.NoError(t, err)
	assert.Equal(t, 42.0, e.CurrentTime())

	_, err = f.NewEngine(spectator.EngineConfig{Speed: -1})
	assert.Error(t, err)
}
