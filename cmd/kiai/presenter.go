package main

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
	"github.com/kiai-dev/kiai/pkg/spectator"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// terminal prints notices and playback state line by line. Session notices
// and synchronizer output both arrive on the update loop, but the mutex
// keeps lines whole if a caller prints from elsewhere.
type terminal struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

var _ spectator.Presenter = (*terminal)(nil)

func newTerminal(w io.Writer, color bool) *terminal {
	return &terminal{w: w, color: color}
}

func (t *terminal) paint(code, text string) string {
	if !t.color {
		return text
	}
	return code + text + ansiReset
}

func (t *terminal) println(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format+"\n", args...)
}

// Notify prints a notice with a severity marker.
func (t *terminal) Notify(n notify.Notice) {
	var mark string
	switch n.Severity {
	case notify.SeveritySuccess:
		mark = t.paint(ansiGreen, "✓")
	case notify.SeverityWarning:
		mark = t.paint(ansiYellow, "⚠")
	case notify.SeverityError:
		mark = t.paint(ansiRed, "✗")
	default:
		mark = t.paint(ansiCyan, "•")
	}
	t.println("%s %s", mark, n.Text)
}

func (t *terminal) RenderBanner(state spectator.State) {
	text := bannerText(state)
	if text == "" {
		return
	}
	t.println("%s", t.paint(ansiGray, "── "+text+" ──"))
}

func bannerText(state spectator.State) string {
	switch state {
	case spectator.StateBuffering:
		return "Buffering"
	case spectator.StateWatching:
		return "Watching"
	case spectator.StatePaused:
		return "Host paused"
	case spectator.StateMapChanging:
		return "Host is changing maps"
	default:
		return ""
	}
}

func (t *terminal) RenderScoreSummary(s protocol.Score) {
	mean, ur := hitError(s.HitTimings)

	t.println("")
	t.println("  %s", t.paint(ansiGreen, "Results"))
	t.println("  Score:       %d", s.Total)
	t.println("  Accuracy:    %.2f%%", float64(s.Accuracy)*100)
	t.println("  Max combo:   %dx", s.MaxCombo)
	t.println("  Judgements:  %d / %d / %d / %d", s.Perfect, s.Great, s.Good, s.Miss)
	if len(s.HitTimings) > 0 {
		t.println("  Hit error:   %+.1fms (UR %.1f)", mean, ur)
	}
	t.println("")
}

// ClearScoreSummary is a no-op; printed lines scroll away.
func (t *terminal) ClearScoreSummary() {}

// hitError returns the mean offset and the unstable rate (ten times the
// standard deviation) of hit timings.
func hitError(timings []float32) (mean, ur float64) {
	if len(timings) == 0 {
		return 0, 0
	}
	for _, v := range timings {
		mean += float64(v)
	}
	mean /= float64(len(timings))

	var variance float64
	for _, v := range timings {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(len(timings))
	return mean, math.Sqrt(variance) * 10
}
