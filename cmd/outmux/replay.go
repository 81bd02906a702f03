package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"outmux/internal/aggregate"
	"outmux/internal/message"
)

var replayCmd = &cobra.Command{
	Use:   "replay JOURNAL",
	Short: "Print a server journal to stdout and stderr",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer f.Close()
		streams := message.Streams{Primary: cmd.OutOrStdout(), Diagnostic: cmd.ErrOrStderr()}
		if err := aggregate.Replay(f, streams); err != nil {
			return fmt.Errorf("replay %s: %w", args[0], err)
		}
		return nil
	},
}
