package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/eling/internal/cli"
	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/config"
)

var version = "dev"

type rootFlags struct {
	cfgFile string
	envFile string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "eling",
		Short: "👛 Personal ledger of accounts, income and expenses",
		Long: `eling keeps a personal ledger: accounts with running balances, income and
expense transactions, and the categories they are filed under.

Every account balance is kept in step with its history. Recording, editing or
deleting a transaction moves exactly the balances it touches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default: $HOME/.config/eling/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", ".env file to load (default: ./.env if present)")
	rootCmd.PersistentFlags().String("db", "", "ledger database path")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag(config.KeyDatabasePath, rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag(config.KeyLoggingLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLoggingFormat, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(incomeCmd())
	rootCmd.AddCommand(expenseCmd())
	rootCmd.AddCommand(transactionsCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(checkpointCmd())
	rootCmd.AddCommand(importOFXCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	os.Exit(reportError(os.Stderr, err))
}

// reportError prints err for the user and returns the process exit code.
// Operations on records that do not exist are warnings, not failures.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, common.ErrNotFound) {
		fmt.Fprintln(w, cli.FormatWarning(common.Message(err)))
		return 0
	}

	fmt.Fprintln(w, cli.FormatError(common.Message(err)))
	return 1
}

func initConfig(flags *rootFlags) error {
	if err := config.LoadEnv(flags.envFile); err != nil {
		return err
	}

	config.SetDefaults(viper.GetViper())

	if flags.cfgFile != "" {
		viper.SetConfigFile(config.ExpandPath(flags.cfgFile))
	} else {
		viper.AddConfigPath(config.ExpandPath(config.DefaultConfigDir))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ELING")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := config.FromViper(viper.GetViper()).Validate(); err != nil {
		return common.NewUserError("Invalid configuration", err)
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging() error {
	level, err := common.ParseLevel(viper.GetString(config.KeyLoggingLevel))
	if err != nil {
		return err
	}
	return common.SetupLogger(level, viper.GetString(config.KeyLoggingFormat))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eling %s\n", version)
		},
	}
}
