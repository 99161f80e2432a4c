package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(configInitCmd())

	return cmd
}

func configInitCmd() *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Long: `Write config.yaml using the settings currently in effect: defaults, overridden
by environment variables and flags such as --db.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = config.ConfigFilePath()
			}

			if err := config.WriteFile(path, config.FromViper(viper.GetViper()), force); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Wrote "+config.ExpandPath(path)))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Where to write the file (default $HOME/.config/eling/config.yaml)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}
