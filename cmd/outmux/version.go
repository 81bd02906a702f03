package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"outmux/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the outmux version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		colorValue, err := cmd.Flags().GetString("color")
		if err != nil {
			return err
		}
		mode, err := readUIMode("color", colorValue)
		if err != nil {
			return err
		}
		switch mode {
		case uiModeOn:
			color.NoColor = false
		case uiModeOff:
			color.NoColor = true
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
		return nil
	},
}
