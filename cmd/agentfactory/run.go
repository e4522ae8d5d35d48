package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentfactory/config"
)

var (
	runUserID  string
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-file> <task>",
	Short: "Run a workflow once and print the result",
	Long: `Loads a workflow definition, builds its agents and runs the task through
the configured collaboration pattern. The final output is written to stdout.

Example:
  agentfactory run examples/workflows/launch.yaml "Announce the v2 launch"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := config.LoadWorkflow(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

		res, err := a.env.Run(ctx, wf, runUserID, args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if runVerbose {
			for _, s := range res.Steps {
				fmt.Fprintf(out, "== %s (%s)\n", s.Agent, s.Duration.Round(time.Millisecond))
			}
			fmt.Fprintln(out)
		}

		fmt.Fprintln(out, res.Output)

		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runUserID, "user", "cli", "user id recorded on traces")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "list the agent steps before the output")
}
