// Package cmd implements the hamctl command line tool: operator access to the
// durable resource ledger for inspecting, resetting, and repairing tracker
// occupancy state outside a protocol run.
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgretton/pyhamilton-sub000/ledger"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "hamctl",
		Short:         "Inspect and repair the liquid handler resource ledger",
		Long:          "hamctl operates on the durable ledger that tracks tip and rack occupancy across protocol runs: summarize tracker state, reset a tracker to full, or mark individual slots available again after manual intervention.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd, v)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default searches ./hamctl.yaml)")
	rootCmd.PersistentFlags().String("db", "hamilton_ledger.db", "path to the ledger database file")

	rootCmd.AddCommand(
		newStatusCmd(v),
		newResetCmd(v),
		newRestoreCmd(v),
	)

	return rootCmd
}

// loadConfig layers the configuration sources: explicit flags win over
// environment variables (HAMCTL_DB and friends), which win over the config
// file.
func loadConfig(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlag("db", cmd.Flags().Lookup("db")); err != nil {
		return err
	}

	v.SetEnvPrefix("HAMCTL")
	v.AutomaticEnv()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	v.SetConfigName("hamctl")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func openStore(v *viper.Viper) (*ledger.Store, error) {
	path := v.GetString("db")
	if path == "" {
		return nil, errors.New("ledger database path is empty")
	}

	store, err := ledger.Open(ledger.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	return store, nil
}

// parseTable maps the user-facing table flag to a ledger table.
func parseTable(name string) (ledger.Table, error) {
	switch name {
	case "tips":
		return ledger.TableTips, nil
	case "stacks":
		return ledger.TableStacks, nil
	default:
		return "", fmt.Errorf("unknown table %q, expected tips or stacks", name)
	}
}
