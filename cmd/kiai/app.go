package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kiai-dev/kiai/internal/config"
	"github.com/kiai-dev/kiai/internal/debugserver"
	"github.com/kiai-dev/kiai/internal/errors"
	"github.com/kiai-dev/kiai/pkg/maps"
	"github.com/kiai-dev/kiai/pkg/metrics"
	"github.com/kiai-dev/kiai/pkg/notify"
	"github.com/kiai-dev/kiai/pkg/session"
	"github.com/kiai-dev/kiai/pkg/spectator"
)

// app holds what every networked command needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	playback atomic.Pointer[spectator.Status]
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
		if err == nil {
			err = cfg.ApplyEnv(nil)
		}
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(flags *globalFlags, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		cfg:      cfg,
		logger:   newLogger(cfg.Log, logOut),
		registry: reg,
		metrics:  metrics.New(metrics.WithRegistry(reg)),
	}, nil
}

// newLogger builds the slog handler selected in kiai.json.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) newSession(n notify.Notifier) *session.Session {
	return session.New(session.Options{
		Logger:          a.logger,
		Metrics:         a.metrics,
		Notifier:        n,
		ProtocolVersion: a.cfg.ProtocolVersion,
		KeepAlive:       a.cfg.KeepAliveInterval(),
	})
}

// login connects and waits for the server's answer. On failure the
// session is left disconnected with its notices delivered.
func (a *app) login(ctx context.Context, sess *session.Session) error {
	creds := session.Credentials{
		Username: a.cfg.Account.Username,
		Password: a.cfg.Account.Password,
	}
	if creds.Username == "" || creds.Password == "" {
		return errors.New(errors.CodeMissingCredentials)
	}

	if err := sess.Connect(ctx, a.cfg.ServerURL, creds); err != nil {
		sess.Update()
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, a.cfg.LoginTimeoutDuration())
	defer cancel()
	if _, err := sess.WaitForLogin(wctx); err != nil {
		sess.Disconnect()
		sess.Update()
		return err
	}
	sess.Update()
	return nil
}

// openLibrary opens the SQLite map index from kiai.json.
func (a *app) openLibrary(ctx context.Context) (*maps.SQLLibrary, error) {
	lib, err := openIndex(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("map index opened", "path", a.cfg.MapIndexPath())
	return lib, nil
}

func openIndex(ctx context.Context, cfg *config.Config) (*maps.SQLLibrary, error) {
	if err := os.MkdirAll(cfg.MapDirPath(), 0o755); err != nil {
		return nil, errors.New(errors.CodeMapIndexFailed).Wrap(err)
	}
	lib, err := maps.OpenSQLite(ctx, cfg.MapIndexPath())
	if err != nil {
		return nil, errors.New(errors.CodeMapIndexFailed).Wrap(err)
	}
	return lib, nil
}

// downloads returns the registry backed by the configured mirror, or nil
// when no mirror is configured.
func (a *app) downloads(idx maps.Index) *maps.Registry {
	return mirrorRegistry(a.cfg, idx)
}

func mirrorRegistry(cfg *config.Config, idx maps.Index) *maps.Registry {
	if !cfg.HasMirror() {
		return nil
	}
	m := cfg.Maps.Mirror
	client := maps.NewS3Client(maps.MirrorOptions{
		Bucket:   m.Bucket,
		Region:   m.Region,
		Endpoint: m.Endpoint,
		Prefix:   m.Prefix,
	})
	reg := &maps.Registry{}
	reg.Register("", maps.NewS3Downloader(client, m.Bucket, m.Prefix, cfg.MapDirPath(), idx))
	return reg
}

// startDebug runs the debug server in the background when configured.
func (a *app) startDebug(ctx context.Context, sess *session.Session) {
	addr := a.cfg.Debug.Listen
	if addr == "" {
		return
	}
	srv := debugserver.New(debugserver.Options{
		Session:    sess,
		Playback:   a.playback.Load,
		Gatherer:   a.registry,
		Registerer: a.registry,
		Logger:     a.logger,
	})
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			a.logger.Error("debug server failed", "address", addr, "error", err)
		}
	}()
}
