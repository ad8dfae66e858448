package spectator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/kiai-dev/kiai/pkg/maps"
	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
	"github.com/kiai-dev/kiai/pkg/session"
)

const localUser = 42

type fakeSource struct {
	active bool
	host   int32
	gen    uint64
	frames []protocol.SpectatorFrame
	stops  int
}

func (f *fakeSource) begin(host int32) {
	f.active = true
	f.host = host
	f.gen++
	f.frames = nil
}

func (f *fakeSource) push(frames ...protocol.SpectatorFrame) {
	f.frames = append(f.frames, frames...)
}

func (f *fakeSource) LocalUserID() int32 { return localUser }

func (f *fakeSource) DrainSpectatorFrames() (session.Batch, bool) {
	if !f.active {
		return session.Batch{}, false
	}
	b := session.Batch{Host: f.host, Generation: f.gen, Frames: f.frames}
	f.frames = nil
	return b, true
}

func (f *fakeSource) StopSpectating() bool {
	if !f.active {
		return false
	}
	f.active = false
	f.stops++
	return true
}

type fakeEngine struct {
	cfg      EngineConfig
	t        float64
	paused   bool
	complete bool
	inputs   []float64
	score    protocol.Score
}

func (e *fakeEngine) Start() error { return nil }
func (e *fakeEngine) Pause()       { e.paused = true }
func (e *fakeEngine) Resume()      { e.paused = false }

func (e *fakeEngine) Advance(ms float64) {
	if !e.paused {
		e.t += ms
	}
}

func (e *fakeEngine) PushInput(ts float64, _ protocol.Input) { e.inputs = append(e.inputs, ts) }
func (e *fakeEngine) CurrentTime() float64                   { return e.t }
func (e *fakeEngine) IsComplete() bool                       { return e.complete }
func (e *fakeEngine) Score() protocol.Score                  { return e.score }
func (e *fakeEngine) ReplaceScore(s protocol.Score)          { e.score = s }

type fakePresenter struct {
	notices   []notify.Notice
	banners   []State
	summaries []protocol.Score
	clears    int
}

func (p *fakePresenter) Notify(n notify.Notice)              { p.notices = append(p.notices, n) }
func (p *fakePresenter) RenderBanner(s State)                { p.banners = append(p.banners, s) }
func (p *fakePresenter) RenderScoreSummary(s protocol.Score) { p.summaries = append(p.summaries, s) }
func (p *fakePresenter) ClearScoreSummary()                  { p.clears++ }

func (p *fakePresenter) texts() []string {
	var out []string
	for _, n := range p.notices {
		out = append(out, n.Text)
	}
	return out
}

type fixture struct {
	sync      *Synchronizer
	src       *fakeSource
	presenter *fakePresenter
	engines   []*fakeEngine
	engineErr error
	downloads *maps.Registry
}

var testMaps = []maps.Map{
	{Hash: "abc", Mode: "std", Title: "Freedom Dive", DurationMS: 1e9},
	{Hash: "short", Mode: "std", Title: "Short", DurationMS: 1000},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		src:       &fakeSource{},
		presenter: &fakePresenter{},
		downloads: &maps.Registry{},
	}
	f.sync = New(Options{
		Source:  f.src,
		Library: maps.NewMemoryLibrary(testMaps...),
		Engines: EngineFactoryFunc(func(cfg EngineConfig) (Engine, error) {
			if f.engineErr != nil {
				return nil, f.engineErr
			}
			e := &fakeEngine{cfg: cfg, t: cfg.Offset, paused: true}
			f.engines = append(f.engines, e)
			return e, nil
		}),
		Presenter: f.presenter,
		Downloads: f.downloads,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) engine(t *testing.T) *fakeEngine {
	t.Helper()
	if len(f.engines) == 0 {
		t.Fatal("no engine was created")
	}
	return f.engines[len(f.engines)-1]
}

func frame(ts float64, p protocol.FramePayload) protocol.SpectatorFrame {
	return protocol.SpectatorFrame{Timestamp: ts, Payload: p}
}

func play(hash string) protocol.FramePayload {
	return protocol.Play{MapIdentity: protocol.MapIdentity{Hash: hash, Mode: "std", Speed: 1}}
}

func input(keys uint32) protocol.FramePayload {
	return protocol.Input{Keys: keys}
}

type blockingDownloader struct {
	calls   []maps.Source
	release chan struct{}
	err     error
}

func (d *blockingDownloader) Download(ctx context.Context, src maps.Source) (maps.Map, error) {
	d.calls = append(d.calls, src)
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return maps.Map{}, ctx.Err()
		}
	}
	return maps.Map{Hash: src.Hash}, d.err
}

var errEngine = errors.New("chart is corrupt")
