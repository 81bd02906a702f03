package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outmux/internal/config"
)

// settings carries outmux.toml values that back unset flags.
type settings struct {
	path   string
	config config.Config
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if explicit != "" {
		file, err := config.Load(explicit)
		if err != nil {
			return nil, err
		}
		return &settings{path: file.Path, config: file.Config}, nil
	}
	file, found, err := config.Discover(".")
	if err != nil {
		return nil, err
	}
	if !found {
		return &settings{}, nil
	}
	return &settings{path: file.Path, config: file.Config}, nil
}

// stringFlag returns the flag value, or fallback when the flag was not set
// on the command line and fallback is non-empty.
func stringFlag(cmd *cobra.Command, name, fallback string) (string, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	if !cmd.Flags().Changed(name) && fallback != "" {
		return fallback, nil
	}
	return value, nil
}

func intFlag(cmd *cobra.Command, name string, fallback int) (int, error) {
	value, err := cmd.Flags().GetInt(name)
	if err != nil {
		return 0, fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	if !cmd.Flags().Changed(name) && fallback != 0 {
		return fallback, nil
	}
	if value < 0 {
		return 0, fmt.Errorf("--%s must not be negative", name)
	}
	return value, nil
}
