package spectator

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kiai-dev/kiai/pkg/maps"
	"github.com/kiai-dev/kiai/pkg/metrics"
	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
)

// Lookahead is the playback margin kept behind the newest frame. Playback
// resumes once twice this much is buffered and never runs closer than this
// to the newest frame.
const Lookahead = 500 * time.Millisecond

const lookaheadMS = float64(Lookahead / time.Millisecond)

const tracerName = "github.com/kiai-dev/kiai/pkg/spectator"

// Options configures a Synchronizer.
type Options struct {
	Source    Source
	Library   maps.Library
	Engines   EngineFactory
	Presenter Presenter

	// Downloads fetches maps announced by the host. Nil disables downloads.
	Downloads *maps.Registry

	// Context bounds map lookups and downloads. Default: context.Background().
	Context context.Context

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type scoreEntry struct {
	ts    float64
	score protocol.Score
}

// Synchronizer plays a spectated host's frames back through an Engine.
//
// It is single-threaded: Update, Cancel and the accessors must be called
// from the presentation loop. Only map downloads run in the background.
type Synchronizer struct {
	src       Source
	library   maps.Library
	engines   EngineFactory
	presenter Presenter
	downloads *maps.Registry
	ctx       context.Context
	base      *slog.Logger
	logger    *slog.Logger
	metrics   *metrics.Metrics

	state      State
	host       int32
	generation uint64
	goodUntil  float64
	current    protocol.MapIdentity
	duration   float64
	engine     Engine
	scores     []scoreEntry

	// Background download bookkeeping.
	notices  notify.Queue
	dlMu     sync.Mutex
	inflight map[string]struct{}
	dlWG     sync.WaitGroup
}

// New creates an idle synchronizer.
func New(opts Options) *Synchronizer {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Presenter == nil {
		opts.Presenter = nopPresenter{}
	}
	base := opts.Logger.With("component", "spectator")
	return &Synchronizer{
		src:       opts.Source,
		library:   opts.Library,
		engines:   opts.Engines,
		presenter: opts.Presenter,
		downloads: opts.Downloads,
		ctx:       opts.Context,
		base:      base,
		logger:    base,
		metrics:   opts.Metrics,
		inflight:  make(map[string]struct{}),
	}
}

// State returns the playback state.
func (s *Synchronizer) State() State { return s.state }

// Host returns the host of the current spectate session.
func (s *Synchronizer) Host() int32 { return s.host }

// GoodUntil returns the newest frame timestamp seen for the current map.
func (s *Synchronizer) GoodUntil() float64 { return s.goodUntil }

// Map returns the map being played back.
func (s *Synchronizer) Map() (protocol.MapIdentity, bool) {
	return s.current, s.engine != nil
}

// PlaybackTime returns the engine's position, or 0 without an engine.
func (s *Synchronizer) PlaybackTime() float64 {
	if s.engine == nil {
		return 0
	}
	return s.engine.CurrentTime()
}

// Status is a point-in-time view of playback for diagnostics.
type Status struct {
	State       string  `json:"state"`
	Host        int32   `json:"host,omitempty"`
	MapHash     string  `json:"map_hash,omitempty"`
	PlaybackMS  float64 `json:"playback_ms"`
	GoodUntilMS float64 `json:"good_until_ms"`
	Buffered    int     `json:"buffered_scores"`
}

// Status returns a snapshot of playback. Like every other method it must be
// called from the presentation loop; publish the result to share it.
func (s *Synchronizer) Status() Status {
	st := Status{
		State:       s.state.String(),
		Host:        s.host,
		PlaybackMS:  s.PlaybackTime(),
		GoodUntilMS: s.goodUntil,
		Buffered:    len(s.scores),
	}
	if s.engine != nil {
		st.MapHash = s.current.Hash
	}
	return st
}

// Update drains new frames from the source and advances playback by dt.
// Call it once per presentation frame.
func (s *Synchronizer) Update(dt time.Duration) {
	s.notices.DeliverTo(s.presenter)

	batch, ok := s.src.DrainSpectatorFrames()
	if !ok {
		if s.host != 0 {
			s.logger.Info("spectate session ended", "host_id", s.host)
			s.reset()
		}
		return
	}

	if batch.Generation != s.generation {
		s.reset()
		s.host = batch.Host
		s.generation = batch.Generation
		s.logger = s.base.With("host_id", batch.Host)
		s.logger.Info("spectate session started", "generation", batch.Generation)
	}

	// Frames arrive out of send order. A bootstrap starts the watermark over,
	// so it runs before anything else in the batch.
	boot := s.bootstrapFrame(batch.Frames)
	if boot >= 0 {
		s.interpret(batch.Frames[boot])
	}
	for i, f := range batch.Frames {
		if i != boot && !s.isBootstrap(f) {
			s.interpret(f)
		}
		if f.Timestamp > s.goodUntil {
			s.goodUntil = f.Timestamp
		}
	}

	s.step(float64(dt) / float64(time.Millisecond))
}

// Cancel stops spectating. The session sends the stop packet.
func (s *Synchronizer) Cancel() {
	s.src.StopSpectating()
	s.reset()
}

// Wait blocks until background downloads have finished.
func (s *Synchronizer) Wait() {
	s.dlWG.Wait()
}

// bootstrapFrame returns the index of the last frame in frames that loads a
// map, or -1.
func (s *Synchronizer) bootstrapFrame(frames []protocol.SpectatorFrame) int {
	idx := -1
	for i, f := range frames {
		if s.isBootstrap(f) {
			idx = i
		}
	}
	return idx
}

func (s *Synchronizer) isBootstrap(f protocol.SpectatorFrame) bool {
	switch p := f.Payload.(type) {
	case protocol.Play:
		return true
	case protocol.PlayingResponse:
		return p.To == s.src.LocalUserID()
	}
	return false
}

func (s *Synchronizer) interpret(f protocol.SpectatorFrame) {
	switch p := f.Payload.(type) {
	case protocol.Play:
		s.bootstrap(p.MapIdentity, 0)
	case protocol.PlayingResponse:
		if p.To == s.src.LocalUserID() {
			s.bootstrap(p.MapIdentity, p.Offset)
		}
	case protocol.MapInfo:
		s.ensureMap(p)
	case protocol.Input:
		if s.engine != nil {
			s.engine.PushInput(f.Timestamp, p)
		}
	case protocol.ScoreSync:
		if s.engine != nil {
			s.queueScore(f.Timestamp, p.Score)
		}
	case protocol.Pause:
		if s.engine != nil {
			s.engine.Pause()
			s.setState(StatePaused)
		}
	case protocol.Unpause:
		if s.engine != nil {
			s.engine.Resume()
			s.setState(StateWatching)
		}
	case protocol.ChangingMap:
		if s.engine != nil {
			s.engine.Pause()
			s.setState(StateMapChanging)
		}
	case protocol.PlayingRequest, protocol.Buffering:
		// No playback effect.
	default:
		s.logger.Warn("unexpected frame", "kind", f.Payload.FrameKind().String())
	}
}

// step applies the lookahead gate, advances the engine and reconciles.
// dtMS is wall time; the engine advances in map time.
func (s *Synchronizer) step(dtMS float64) {
	if s.engine == nil {
		return
	}

	t := s.engine.CurrentTime()
	ready := s.goodUntil >= t+2*lookaheadMS
	switch {
	case s.state == StateBuffering && ready:
		s.engine.Resume()
		s.setState(StateWatching)
	case s.state == StateWatching && !ready:
		s.engine.Pause()
		s.setState(StateBuffering)
	}

	if sp := s.current.Speed; sp > 0 {
		dtMS *= float64(sp)
	}
	if s.state == StateWatching && dtMS > 0 {
		limit := s.goodUntil - lookaheadMS
		if t+dtMS > limit {
			dtMS = limit - t
		}
		if dtMS > 0 {
			s.engine.Advance(dtMS)
		}
	}

	s.reconcile(false)

	t = s.engine.CurrentTime()
	if s.engine.IsComplete() || (s.duration > 0 && t >= s.duration) {
		s.complete()
	}
}

// queueScore keeps the reconciliation buffer ordered by timestamp.
func (s *Synchronizer) queueScore(ts float64, score protocol.Score) {
	i := sort.Search(len(s.scores), func(i int) bool { return s.scores[i].ts > ts })
	s.scores = append(s.scores, scoreEntry{})
	copy(s.scores[i+1:], s.scores[i:])
	s.scores[i] = scoreEntry{ts: ts, score: score}
}

// reconcile replaces the engine's score with every host score the engine
// has reached, or with the last buffered one when all is set. The engine's
// own hit timings are kept.
func (s *Synchronizer) reconcile(all bool) {
	t := s.engine.CurrentTime()
	n := 0
	for n < len(s.scores) && (all || s.scores[n].ts <= t) {
		n++
	}
	if n == 0 {
		return
	}

	host := s.scores[n-1].score
	s.engine.ReplaceScore(host.WithHitTimings(s.engine.Score()))
	s.scores = s.scores[n:]
	s.metrics.ScoreCorrection()
}

func (s *Synchronizer) complete() {
	s.reconcile(true)
	score := s.engine.Score()
	s.logger.Info("map complete", "hash", s.current.Hash, "total", score.Total)

	s.presenter.RenderScoreSummary(score)
	s.src.StopSpectating()
	s.reset()
}

// reset drops the engine and all per-session state.
func (s *Synchronizer) reset() {
	if s.engine != nil {
		s.engine.Pause()
	}
	s.engine = nil
	s.host = 0
	s.generation = 0
	s.goodUntil = 0
	s.current = protocol.MapIdentity{}
	s.duration = 0
	s.scores = nil
	s.setState(StateIdle)
}

func (s *Synchronizer) setState(st State) {
	if st == s.state {
		return
	}
	s.logger.Debug("state", "from", s.state.String(), "to", st.String())
	s.metrics.Transition(s.state.String(), st.String())
	s.state = st
	s.presenter.RenderBanner(st)
}

// bootstrap loads the engine for m at offset. The watermark starts over for
// the new map.
func (s *Synchronizer) bootstrap(m protocol.MapIdentity, offset float64) {
	ctx, span := otel.Tracer(tracerName).Start(s.ctx, "spectator.Bootstrap")
	span.SetAttributes(
		attribute.String("kiai.map_hash", m.Hash),
		attribute.String("kiai.mode", m.Mode),
		attribute.Float64("kiai.offset_ms", offset),
	)
	defer span.End()
	start := time.Now()

	if s.engine != nil {
		s.engine.Pause()
		s.engine = nil
	}
	s.current = m
	s.goodUntil = offset
	s.scores = nil
	s.duration = 0

	found, ok, err := s.library.Lookup(ctx, m.Hash)
	if err != nil {
		s.logger.Error("map lookup failed", "hash", m.Hash, "error", err)
		span.RecordError(err)
	}
	if !ok {
		span.SetStatus(codes.Error, "map missing")
		s.logger.Info("map missing", "hash", m.Hash)
		notify.Warning(s.presenter, "You do not have the map")
		s.setState(StateIdle)
		return
	}

	engine, err := s.engines.NewEngine(EngineConfig{
		Map:    found,
		Mode:   m.Mode,
		Mods:   m.Mods,
		Speed:  m.Speed,
		Offset: offset,
	})
	if err == nil {
		err = engine.Start()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine failed")
		s.logger.Error("engine failed", "hash", m.Hash, "error", err)
		notify.Error(s.presenter, "Could not start playback")
		s.setState(StateIdle)
		return
	}

	s.engine = engine
	s.duration = found.DurationMS
	s.presenter.ClearScoreSummary()
	s.setState(StateBuffering)
	s.metrics.Bootstrap(time.Since(start).Seconds())
	s.logger.Info("playback loaded", "hash", m.Hash, "mode", m.Mode, "offset_ms", offset)
}

// ensureMap starts a background download when the announced map is not in
// the library. Failures are only logged.
func (s *Synchronizer) ensureMap(info protocol.MapInfo) {
	if s.downloads == nil || info.Hash == "" {
		return
	}
	if _, ok, err := s.library.Lookup(s.ctx, info.Hash); err == nil && ok {
		return
	}

	s.dlMu.Lock()
	if _, busy := s.inflight[info.Hash]; busy {
		s.dlMu.Unlock()
		return
	}
	s.inflight[info.Hash] = struct{}{}
	s.dlMu.Unlock()

	mode := info.Mode
	if mode == "" {
		mode = s.current.Mode
	}
	src := maps.Source{Hash: info.Hash, Mode: mode, Source: info.Source, Hint: info.Hint}

	logger := s.logger
	s.dlWG.Add(1)
	go func() {
		defer s.dlWG.Done()
		defer func() {
			s.dlMu.Lock()
			delete(s.inflight, src.Hash)
			s.dlMu.Unlock()
		}()

		logger.Info("downloading map", "hash", src.Hash, "mode", src.Mode, "source", src.Source)
		if _, err := s.downloads.Download(s.ctx, src); err != nil {
			s.metrics.Download("error")
			logger.Error("map download failed", "hash", src.Hash, "error", err)
			return
		}
		s.metrics.Download("ok")
		notify.Info(&s.notices, "Map downloaded")
	}()
}

type nopPresenter struct{}

func (nopPresenter) Notify(notify.Notice)               {}
func (nopPresenter) RenderBanner(State)                 {}
func (nopPresenter) RenderScoreSummary(protocol.Score) {}
func (nopPresenter) ClearScoreSummary()                 {}
