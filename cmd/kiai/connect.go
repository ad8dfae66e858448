package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiai-dev/kiai/internal/errors"
	"github.com/kiai-dev/kiai/pkg/session"
)

// updateInterval is how often the update loop pumps the session.
const updateInterval = 16 * time.Millisecond

func connectCmd(flags *globalFlags) *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Log in and chat from the terminal",
		Long: `Log in to the server and stay connected.

Lines typed on stdin are sent to the current channel. Commands:

  /msg <user> <text>   Send a direct message
  /join <#channel>     Switch the current channel
  /who                 List online users
  /friends             List online friends
  /status              Print the session status
  /quit                Log out and exit

Credentials come from kiai.json (account.username) and KIAI_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd.Context(), flags, channel, os.Stdin, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "#lobby", "Channel for plain chat lines")

	return cmd
}

func runConnect(ctx context.Context, flags *globalFlags, channel string, in io.Reader, out io.Writer) error {
	a, err := newApp(flags, os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(contextOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term := newTerminal(out, !flags.noColor)
	sess := a.newSession(term)
	if err := a.login(ctx, sess); err != nil {
		return err
	}
	a.startDebug(ctx, sess)
	printBanner()

	lines := make(chan string)
	go readLines(in, lines)

	r := &repl{sess: sess, term: term, channel: channel}
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sess.Logout()
			return nil

		case line, ok := <-lines:
			if !ok || r.handle(line) {
				sess.Logout()
				return nil
			}

		case <-ticker.C:
			sess.Update()
			for _, id := range sess.DrainPlayingRequests() {
				a.logger.Debug("ignoring playing request", "from", id)
			}
			for _, l := range sess.DrainLobby() {
				a.logger.Debug("lobby packet", "kind", l.Kind().String())
			}
			if !sess.Connected() {
				return errors.New(errors.CodeConnectionClosed)
			}
		}
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func readLines(in io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		out <- sc.Text()
	}
}

// command is one parsed input line.
type command struct {
	name string // "" for plain chat
	args []string
	text string
}

// parseLine splits "/name arg rest of text" into its parts. Commands that
// take a target keep the remainder of the line as text.
func parseLine(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || strings.HasPrefix(line, "//") {
		return command{text: strings.TrimPrefix(line, "/")}
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	cmd := command{name: strings.ToLower(name)}
	rest = strings.TrimSpace(rest)
	switch cmd.name {
	case "msg":
		target, text, _ := strings.Cut(rest, " ")
		if target != "" {
			cmd.args = []string{target}
		}
		cmd.text = strings.TrimSpace(text)
	default:
		cmd.args = strings.Fields(rest)
	}
	return cmd
}

type repl struct {
	sess    *session.Session
	term    *terminal
	channel string
}

// handle runs one input line and reports whether the user asked to quit.
func (r *repl) handle(line string) bool {
	c := parseLine(line)
	switch c.name {
	case "":
		if c.text != "" && !r.sess.SendChat(r.channel, c.text) {
			r.term.println("not sent")
		}
	case "quit", "exit":
		return true
	case "msg":
		if len(c.args) == 0 || c.text == "" {
			r.term.println("usage: /msg <user> <text>")
			return false
		}
		r.sess.SendChat(c.args[0], c.text)
	case "join":
		if len(c.args) != 1 || !strings.HasPrefix(c.args[0], "#") {
			r.term.println("usage: /join <#channel>")
			return false
		}
		r.channel = c.args[0]
		r.term.println("now talking in %s", r.channel)
	case "who":
		for _, p := range r.sess.Presences() {
			r.term.println("%s", formatPresence(p))
		}
	case "friends":
		for _, id := range r.sess.Friends() {
			if p, ok := r.sess.Presence(id); ok {
				r.term.println("%s", formatPresence(p))
			}
		}
	case "status":
		st := r.sess.Status()
		r.term.println("%s (#%d), %d online, %d friends", st.Username, st.UserID, st.OnlineUsers, st.Friends)
	default:
		r.term.println("unknown command /%s", c.name)
	}
	return false
}

func formatPresence(p session.Presence) string {
	s := fmt.Sprintf("%-16s %s", p.Name, p.Action)
	if p.StatusText != "" {
		s += " " + p.StatusText
	}
	if p.Friend {
		s += " ★"
	}
	return s + " (" + strconv.Itoa(int(p.ID)) + ")"
}
