package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kiai-dev/kiai/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦╔═┬┌─┐┬
  ╠╩╗│├─┤│
  ╩ ╩┴┴ ┴┴
`

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	noColor    bool
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "kiai",
		Short: "Terminal client for the kiai rhythm game server",
		Long: `kiai connects to a kiai game server from the terminal.

Log in, chat, follow your friends' presence and spectate other
players with a headless playback engine. Features include:

  • Live spectating with a buffered playback clock
  • Local map library indexed in SQLite
  • Map downloads from an S3-compatible mirror
  • Debug server with status JSON and Prometheus metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to kiai.json (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		connectCmd(flags),
		spectateCmd(flags),
		mapsCmd(flags),
		configCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// printBanner prints the kiai ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
