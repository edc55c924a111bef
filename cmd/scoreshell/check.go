package main

import (
	"fmt"
	"os"

	"github.com/benaskins/scoreshell/internal/config"
	"github.com/spf13/cobra"
)

type checkResult struct {
	Path    string `json:"path"`
	Sidecar string `json:"sidecar,omitempty"`
	URL     string `json:"url,omitempty"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check file...",
	Short: "Validate shell config files",
	Long:  "Parse and validate YAML config files as they would be overlaid on the built-in defaults.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("json", false, "Output results as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	var results []checkResult
	var failed int
	for _, path := range args {
		cfg, err := config.Load(path)
		if err != nil {
			results = append(results, checkResult{Path: path, Valid: false, Error: err.Error()})
			failed++
		} else {
			results = append(results, checkResult{Path: path, Sidecar: cfg.Sidecar.Name, URL: cfg.Sidecar.URL, Valid: true})
		}
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("OK    %s (%s, %s)\n", r.Path, r.Sidecar, r.URL)
			} else {
				fmt.Fprintf(os.Stderr, "FAIL  %s\n      %v\n", r.Path, r.Error)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(results))
	}
	return nil
}
