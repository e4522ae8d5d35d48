// Command agentfactory runs multi-agent workflows from the command line or
// serves them over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/logging"
)

var (
	configPath string
	logLevel   string
	mockModels bool

	cfg       *config.Config
	logger    logging.Logger
	flushLogs func() error
)

var rootCmd = &cobra.Command{
	Use:   "agentfactory",
	Short: "Run multi-agent workflows",
	Long: `agentfactory builds agents from a workflow definition (YAML or JSON) and
runs them under a collaboration pattern: single, chain, manager, group-chat
or triage.

Agents can send email, create calendar events and post to X by embedding
tool commands in their replies. Tools without credentials are simulated.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logger.Level = logLevel
		}

		logger, flushLogs, err = newLogger(cfg.Logger)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if flushLogs != nil {
			_ = flushLogs()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "application config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&mockModels, "mock", false, "answer every completion with a mock model")

	rootCmd.AddCommand(runCmd, serveCmd, toolCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
