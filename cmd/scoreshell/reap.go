package main

import (
	"context"
	"fmt"
	"os"

	"github.com/benaskins/scoreshell/internal/reaper"
	"github.com/spf13/cobra"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Kill whatever the analyzer left bound to its port",
	Long: "Run one termination sweep: enumerate every process (and container) bound to the port, " +
		"signal those whose name contains a match string, skip the rest.",
	Args: cobra.NoArgs,
	RunE: runReap,
}

func init() {
	reapCmd.Flags().Uint16("port", 0, "Port to sweep (default: the sidecar URL's port)")
	reapCmd.Flags().String("mode", "", "Enumerate processes, containers, or both: process|container|auto")
	reapCmd.Flags().String("signal", "", "Signal to deliver, e.g. SIGKILL, TERM, 15")
	reapCmd.Flags().StringSlice("match", nil, "Name substrings eligible for the signal (repeatable)")
	reapCmd.Flags().Bool("dry-run", false, "Report what would be signaled without signaling")
	reapCmd.Flags().Bool("json", false, "Output the sweep report as JSON")
	rootCmd.AddCommand(reapCmd)
}

func runReap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Termination.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("signal") {
		cfg.Termination.Signal, _ = flags.GetString("signal")
	}
	if flags.Changed("match") {
		cfg.Termination.Match, _ = flags.GetStringSlice("match")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	port, err := cfg.Port()
	if err != nil {
		return err
	}
	if flags.Changed("port") {
		port, _ = flags.GetUint16("port")
	}
	if port == 0 {
		return fmt.Errorf("--port must be between 1 and 65535")
	}

	dryRun, _ := flags.GetBool("dry-run")
	jsonOut, _ := flags.GetBool("json")

	logger := newLogger(os.Stderr)
	finder := reaper.NewOSFinder(logger)
	defer finder.Close()

	r, journal, err := newReaper(cfg, finder, logger, dryRun)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	rep := r.Sweep(context.Background(), port, "cli")
	if rep.Err != nil {
		return fmt.Errorf("sweeping port %d: %w", port, rep.Err)
	}

	if jsonOut {
		return printJSON(rep)
	}

	verb := "KILLED"
	if dryRun {
		verb = "WOULD"
	}
	for _, t := range rep.Signaled {
		fmt.Printf("%-8s %-9s %-12s %s\n", verb, t.Kind, t.ID, t.Name)
	}
	for _, t := range rep.Skipped {
		fmt.Printf("%-8s %-9s %-12s %s\n", "SKIPPED", t.Kind, t.ID, t.Name)
	}
	for _, t := range rep.Failed {
		fmt.Fprintf(os.Stderr, "%-8s %-9s %-12s %s: %s\n", "FAILED", t.Kind, t.ID, t.Name, t.Error)
	}
	if len(rep.Signaled)+len(rep.Skipped)+len(rep.Failed) == 0 {
		fmt.Printf("nothing bound to port %d\n", port)
	}

	if len(rep.Failed) > 0 {
		return fmt.Errorf("%d of %d signals failed", len(rep.Failed), len(rep.Failed)+len(rep.Signaled))
	}
	return nil
}
