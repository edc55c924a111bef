package main

import (
	"os"
	"path/filepath"

	"github.com/benaskins/scoreshell/internal/config"
)

// scoreshellHome returns the path to the scoreshell home directory (~/.scoreshell).
func scoreshellHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".scoreshell"), nil
}

// loadConfig returns the built-in configuration, overlaid with --config when set.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}
