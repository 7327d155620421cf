package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/healthbot"
	"github.com/hupe1980/healthbot/config"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "healthbot",
		Short: "Multi-agent health assistant",
		Long: `healthbot answers health questions with a workflow of cooperating agents.

It extracts symptoms, watches for emergencies and alerts emergency contacts,
suggests home remedies and stretches, searches for medicines and hospitals
and summarises everything into one reply.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "healthbot version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", commit)
		},
	})

	return rootCmd
}

// loadConfig reads the configuration named by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func newApp(cmd *cobra.Command) (*healthbot.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	return healthbot.New(cfg)
}
