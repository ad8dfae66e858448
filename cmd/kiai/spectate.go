package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiai-dev/kiai/internal/errors"
	"github.com/kiai-dev/kiai/pkg/session"
	"github.com/kiai-dev/kiai/pkg/spectator"
	"github.com/kiai-dev/kiai/pkg/spectator/headless"
)

func spectateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spectate <user-id>",
		Short: "Watch another player",
		Long: `Log in and spectate a player by user id.

Playback runs through the headless engine, which keeps time and a rough
score. Maps must be in the local index (see "kiai maps scan"); with a
mirror configured, maps the host announces are downloaded automatically.
The command exits when the host finishes a map, goes offline, or on Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil || id <= 0 {
				return errors.New(errors.CodeInvalidArgument).
					WithDetail("user id must be a positive number, got " + args[0])
			}
			return runSpectate(cmd.Context(), flags, int32(id), cmd.OutOrStdout())
		},
	}
	return cmd
}

func runSpectate(ctx context.Context, flags *globalFlags, host int32, out io.Writer) error {
	a, err := newApp(flags, os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(contextOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lib, err := a.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()

	term := newTerminal(out, !flags.noColor)
	sess := a.newSession(term)
	if err := a.login(ctx, sess); err != nil {
		return err
	}
	a.startDebug(ctx, sess)

	player := spectator.New(spectator.Options{
		Source:    sess,
		Library:   lib,
		Engines:   headless.Factory{},
		Presenter: term,
		Downloads: a.downloads(lib),
		Context:   ctx,
		Logger:    a.logger,
		Metrics:   a.metrics,
	})
	defer player.Wait()

	if !sess.RequestSpectate(host) {
		sess.Update()
		sess.Logout()
		return errors.New(errors.CodeSpectateRejected)
	}

	return a.spectateLoop(ctx, sess, player)
}

// spectateLoop pumps the session and synchronizer until spectating ends.
func (a *app) spectateLoop(ctx context.Context, sess *session.Session, player *spectator.Synchronizer) error {
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()
	defer a.playback.Store(nil)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			player.Cancel()
			sess.Logout()
			return nil

		case now := <-ticker.C:
			sess.Update()
			player.Update(now.Sub(last))
			last = now

			st := player.Status()
			a.playback.Store(&st)

			if !sess.Connected() {
				return errors.New(errors.CodeConnectionClosed)
			}
			_, watching := sess.Spectating()
			_, pending := sess.PendingSpectate()
			if !watching && !pending {
				// Deliver the final notices before leaving.
				sess.Update()
				sess.Logout()
				return nil
			}
		}
	}
}
