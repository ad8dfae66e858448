package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kiai-dev/kiai/internal/config"
	"github.com/kiai-dev/kiai/internal/errors"
)

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect kiai.json",
	}
	cmd.AddCommand(configInitCmd(flags), configShowCmd(flags))
	return cmd
}

func configInitCmd(flags *globalFlags) *cobra.Command {
	var (
		force    bool
		username string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a kiai.json with default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				path = filepath.Join(wd, config.ConfigFileName)
			}

			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.CodeInvalidArgument).
					WithDetail(path + " already exists").
					WithSuggestion("Use --force to overwrite it")
			}

			cfg := config.New()
			cfg.Account.Username = username
			if err := cfg.SaveTo(path); err != nil {
				return err
			}

			success("Wrote %s", path)
			info("Set KIAI_PASSWORD before running \"kiai connect\"")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")

	return cmd
}

func configShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print kiai.json merged with KIAI_* environment overrides. The password is never printed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			if cfg.Path() != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "# from %s\n", cfg.Path())
			}
			return nil
		},
	}
}
