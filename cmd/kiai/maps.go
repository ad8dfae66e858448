package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kiai-dev/kiai/internal/errors"
	"github.com/kiai-dev/kiai/pkg/maps"
)

func mapsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maps",
		Short: "Manage the local map index",
		Long: `Manage the SQLite index that spectating resolves maps from.

Maps are identified by the MD5 of their file.`,
	}

	cmd.AddCommand(
		mapsScanCmd(flags),
		mapsAddCmd(flags),
		mapsLookupCmd(flags),
		mapsListCmd(flags),
		mapsFetchCmd(flags),
	)
	return cmd
}

// withIndex opens the configured index for the duration of fn.
func withIndex(ctx context.Context, flags *globalFlags, fn func(lib *maps.SQLLibrary) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	lib, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(lib)
}

func mapsScanCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "Index every map file under a directory",
		Long:  `Walk a directory (default: maps.dir from kiai.json) and index every .kiai, .osu, .tja and .sm file.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			dir := cfg.MapDirPath()
			if len(args) == 1 {
				dir = args[0]
			}

			return withIndex(cmd.Context(), flags, func(lib *maps.SQLLibrary) error {
				res, err := maps.Scan(contextOrBackground(cmd.Context()), dir, lib, nil)
				if err != nil {
					return errors.New(errors.CodeMapIndexFailed).Wrap(err)
				}
				if res.Added == 0 {
					warn("No map files found in %s", dir)
					return nil
				}
				success("Indexed %d maps from %s", res.Added, dir)
				if res.Skipped > 0 {
					info("%d other files skipped", res.Skipped)
				}
				return nil
			})
		},
	}
}

func mapsAddCmd(flags *globalFlags) *cobra.Command {
	var mode, title string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Index a single map file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			hash, err := maps.HashFile(path)
			if err != nil {
				return errors.New(errors.CodeInvalidArgument).Wrap(err)
			}

			m := maps.Map{
				Hash:  hash,
				Path:  path,
				Mode:  mode,
				Title: title,
			}
			if m.Mode == "" {
				m.Mode = maps.DefaultExtensions[strings.ToLower(filepath.Ext(path))]
			}
			if m.Title == "" {
				m.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			return withIndex(cmd.Context(), flags, func(lib *maps.SQLLibrary) error {
				if err := lib.Add(contextOrBackground(cmd.Context()), m); err != nil {
					return errors.New(errors.CodeMapIndexFailed).Wrap(err)
				}
				success("Added %s (%s)", m.Title, m.Hash)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Play mode (default: from the file extension)")
	cmd.Flags().StringVar(&title, "title", "", "Display title (default: file name)")

	return cmd
}

func mapsLookupCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <hash>",
		Short: "Show the indexed map with a hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd.Context(), flags, func(lib *maps.SQLLibrary) error {
				m, ok, err := lib.Lookup(contextOrBackground(cmd.Context()), args[0])
				if err != nil {
					return errors.New(errors.CodeMapIndexFailed).Wrap(err)
				}
				if !ok {
					return errors.New(errors.CodeMapMissing).WithDetail("No map with hash " + args[0])
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "  Hash:  %s\n", m.Hash)
				fmt.Fprintf(out, "  Title: %s\n", m.Title)
				fmt.Fprintf(out, "  Mode:  %s\n", m.Mode)
				fmt.Fprintf(out, "  Path:  %s\n", m.Path)
				return nil
			})
		},
	}
}

func mapsListCmd(flags *globalFlags) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd.Context(), flags, func(lib *maps.SQLLibrary) error {
				all, err := lib.List(contextOrBackground(cmd.Context()), mode)
				if err != nil {
					return errors.New(errors.CodeMapIndexFailed).Wrap(err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "HASH\tMODE\tTITLE")
				for _, m := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Hash, m.Mode, m.Title)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Only list maps for this mode")

	return cmd
}

func mapsFetchCmd(flags *globalFlags) *cobra.Command {
	var src maps.Source

	cmd := &cobra.Command{
		Use:   "fetch <hash>",
		Short: "Download a map from the configured mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			src.Hash = args[0]

			return withIndex(cmd.Context(), flags, func(lib *maps.SQLLibrary) error {
				reg := mirrorRegistry(cfg, lib)
				if reg == nil {
					return errors.New(errors.CodeDownloadFailed).
						WithDetail("No map mirror configured").
						WithSuggestion("Set maps.mirror.bucket in kiai.json")
				}
				m, err := reg.Download(contextOrBackground(cmd.Context()), src)
				if err != nil {
					return errors.New(errors.CodeDownloadFailed).Wrap(err)
				}
				success("Downloaded %s to %s", m.Hash, m.Path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&src.Mode, "mode", "", "Play mode of the map")
	cmd.Flags().StringVar(&src.Source, "source", "", "Mirror collection the map is stored under")
	cmd.Flags().StringVar(&src.Hint, "hint", "", "File name on the mirror")

	return cmd
}
