package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiai-dev/kiai/internal/config"
	"github.com/kiai-dev/kiai/internal/errors"
	"github.com/kiai-dev/kiai/pkg/maps"
	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/protocol"
	"github.com/kiai-dev/kiai/pkg/session"
	"github.com/kiai-dev/kiai/pkg/spectator"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"hello there", command{text: "hello there"}},
		{"  padded  ", command{text: "padded"}},
		{"//not a command", command{text: "/not a command"}},
		{"/quit", command{name: "quit"}},
		{"/WHO", command{name: "who"}},
		{"/join #taiko", command{name: "join", args: []string{"#taiko"}}},
		{"/msg rin see you  later", command{name: "msg", args: []string{"rin"}, text: "see you  later"}},
		{"/msg rin", command{name: "msg", args: []string{"rin"}}},
		{"/msg", command{name: "msg"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLine(tt.line))
		})
	}
}

func TestReplWithoutLogin(t *testing.T) {
	var out bytes.Buffer
	r := &repl{
		sess:    session.New(session.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}),
		term:    newTerminal(&out, false),
		channel: "#lobby",
	}

	assert.False(t, r.handle("hello"))
	assert.False(t, r.handle("/msg"))
	assert.False(t, r.handle("/join lobby"))
	assert.False(t, r.handle("/join #taiko"))
	assert.False(t, r.handle("/dance"))
	assert.True(t, r.handle("/quit"))

	assert.Equal(t, "#taiko", r.channel)
	assert.Equal(t, strings.Join([]string{
		"not sent",
		"usage: /msg <user> <text>",
		"usage: /join <#channel>",
		"now talking in #taiko",
		"unknown command /dance",
	}, "\n")+"\n", out.String())
}

func TestTerminalNotify(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out, false)

	notify.Warning(term, "You do not have the map")
	notify.Info(term, "rin is online")
	notify.Error(term, "Could not start playback")

	assert.Equal(t, "⚠ You do not have the map\n• rin is online\n✗ Could not start playback\n", out.String())
}

func TestTerminalColor(t *testing.T) {
	var out bytes.Buffer
	notify.Success(newTerminal(&out, true), "Logged in as rin")
	assert.Equal(t, "\033[32m✓\033[0m Logged in as rin\n", out.String())
}

func TestTerminalBanner(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out, false)
	term.RenderBanner(spectator.StateIdle)
	term.RenderBanner(spectator.StateBuffering)
	term.RenderBanner(spectator.StatePaused)
	assert.Equal(t, "── Buffering ──\n── Host paused ──\n", out.String())
}

func TestTerminalScoreSummary(t *testing.T) {
	var out bytes.Buffer
	newTerminal(&out, false).RenderScoreSummary(protocol.Score{
		Total:      1234567,
		MaxCombo:   512,
		Accuracy:   0.9875,
		Perfect:    400,
		Great:      20,
		Good:       3,
		Miss:       1,
		HitTimings: []float32{-2, 2},
	})

	s := out.String()
	assert.Contains(t, s, "Score:       1234567")
	assert.Contains(t, s, "Accuracy:    98.75%")
	assert.Contains(t, s, "Max combo:   512x")
	assert.Contains(t, s, "Judgements:  400 / 20 / 3 / 1")
	assert.Contains(t, s, "Hit error:   +0.0ms (UR 20.0)")
}

func TestHitError(t *testing.T) {
	mean, ur := hitError(nil)
	assert.Zero(t, mean)
	assert.Zero(t, ur)

	mean, ur = hitError([]float32{10, 10, 10})
	assert.InDelta(t, 10, mean, 1e-9)
	assert.InDelta(t, 0, ur, 1e-9)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "host_id", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, float64(7), rec["host_id"])

	buf.Reset()
	newLogger(config.LogConfig{Level: "debug", Format: "text"}, &buf).Debug("trace")
	assert.Contains(t, buf.String(), "msg=trace")
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestSpectateRejectsBadID(t *testing.T) {
	for _, arg := range []string{"abc", "0", "-3"} {
		_, err := run(t, "spectate", "--", arg)
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err), arg)
	}
}

func TestConfigAndMapsCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.ConfigFileName)

	_, err := run(t, "config", "init", "--config", cfgPath, "--username", "rin")
	require.NoError(t, err)

	_, err = run(t, "config", "init", "--config", cfgPath)
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err), "refuses to overwrite")

	out, err := run(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"username": "rin"`)
	assert.NotContains(t, out, "password")

	mapFile := filepath.Join(dir, "songs", "freedom.osu")
	require.NoError(t, os.MkdirAll(filepath.Dir(mapFile), 0o755))
	require.NoError(t, os.WriteFile(mapFile, []byte("osu file format v14\n"), 0o644))
	hash, err := maps.HashFile(mapFile)
	require.NoError(t, err)

	_, err = run(t, "maps", "add", mapFile, "--config", cfgPath)
	require.NoError(t, err)

	out, err = run(t, "maps", "lookup", hash, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Title: freedom")
	assert.Contains(t, out, "Mode:  std")

	out, err = run(t, "maps", "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, hash)

	_, err = run(t, "maps", "lookup", "ffffffffffffffffffffffffffffffff", "--config", cfgPath)
	assert.Equal(t, errors.CodeMapMissing, errors.CodeOf(err))

	_, err = run(t, "maps", "fetch", hash, "--config", cfgPath)
	assert.Equal(t, errors.CodeDownloadFailed, errors.CodeOf(err), "no mirror configured")

	_, err = run(t, "maps", "scan", filepath.Join(dir, "songs"), "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.DefaultMapIndex))
}
