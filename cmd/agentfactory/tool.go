package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var toolCmd = &cobra.Command{
	Use:   "tool <name> [key=value ...]",
	Short: "Execute a tool directly",
	Long: `Executes a built-in tool outside of any workflow and prints the
outcome as JSON. Built-in tools are send_email, create_calendar_event and
post_tweet.

Example:
  agentfactory tool post_tweet text="Shipping today"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := make(map[string]any, len(args)-1)
		for _, kv := range args[1:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid parameter %q, want key=value", kv)
			}
			params[k] = v
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(cmd.Context()) }()

		out := a.tools.ExecuteByName(cmd.Context(), args[0], params)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	},
}
