package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/benaskins/scoreshell/internal/audit"
	"github.com/benaskins/scoreshell/internal/config"
	"github.com/benaskins/scoreshell/internal/driver"
	"github.com/benaskins/scoreshell/internal/logbuf"
	"github.com/benaskins/scoreshell/internal/reaper"
	"github.com/benaskins/scoreshell/internal/supervisor"
	"github.com/benaskins/scoreshell/internal/tui"
	"github.com/benaskins/scoreshell/internal/window"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	headless    bool
	sidecarName string
)

func init() {
	rootCmd.Flags().BoolVar(&headless, "headless", false, "Log to stderr and open the app in the browser instead of drawing a terminal UI")
	rootCmd.Flags().StringVar(&sidecarName, "sidecar", "", "Sidecar executable name or path (overrides config)")
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sidecarName != "" {
		cfg.Sidecar.Name = sidecarName
	}

	useTUI := !headless && term.IsTerminal(int(os.Stdout.Fd()))

	var logOut io.Writer = os.Stderr
	if useTUI {
		f, err := openLogFile()
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut)
	slog.SetDefault(logger)

	port, err := cfg.Port()
	if err != nil {
		return err
	}

	// Resolve before any UI is up so a missing sidecar is a plain CLI error.
	command, err := driver.ResolveSidecar(cfg.Sidecar.Name)
	if err != nil {
		return fmt.Errorf("spawning %s: %w", cfg.Sidecar.Name, err)
	}

	finder := reaper.NewOSFinder(logger)
	defer finder.Close()

	sweeper, journal, err := newReaper(cfg, finder, logger, false)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	output := logbuf.New(200)
	drv := driver.NewNative(driver.NativeConfig{
		Command:    command,
		Args:       cfg.Sidecar.Args,
		Env:        cfg.Environ(),
		WorkingDir: cfg.Sidecar.WorkingDir,
		Output:     output,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := supervisor.Service{Name: cfg.Sidecar.Name, URL: cfg.Sidecar.URL, Port: port}
	timing := supervisor.Timing{
		ProbeInterval: cfg.Probe.Interval.Duration,
		MaxAttempts:   cfg.Probe.MaxAttempts,
		SettleDelay:   cfg.Handoff.SettleDelay.Duration,
		LoadDelay:     cfg.Handoff.LoadDelay.Duration,
		ProbeTimeout:  cfg.Probe.Timeout.Duration,
	}
	opts := []supervisor.Option{supervisor.WithLogger(logger)}
	if cfg.ReapStale {
		opts = append(opts, supervisor.WithReapStale())
	}

	if !useTUI {
		shell := window.NewHeadless(logger)
		shell.Listen(ctx)
		output.OnLine(func(line string) {
			logger.Debug("sidecar output", "line", line)
		})

		sup := supervisor.New(svc, timing, drv, sweeper, shell, opts...)
		go startSidecar(ctx, sup, logger, func(err error) {
			fmt.Fprintln(os.Stderr, err)
			shell.Exit(1)
		})

		// Shutdown ends the process from inside Dispatch.
		sup.Dispatch(ctx)
		return nil
	}

	shell := tui.New(cfg.Sidecar.Name, logger)
	output.OnLine(shell.OutputLine)
	opts = append(opts, supervisor.WithProgress(shell.Progress))

	sup := supervisor.New(svc, timing, drv, sweeper, shell, opts...)
	spawnErr := make(chan error, 1)
	go startSidecar(ctx, sup, logger, func(err error) {
		spawnErr <- err
		shell.Quit()
	})
	go sup.Dispatch(ctx)

	if err := shell.Run(); err != nil {
		return err
	}

	// main prints a spawn failure and exits 1 once the terminal is restored.
	select {
	case err := <-spawnErr:
		return err
	default:
	}

	// The program quit on its own (SIGTERM, SIGHUP); treat it as the user
	// closing whatever was on screen.
	if !sup.HandleEvent(shell.CloseEvent()) {
		// Another trigger is mid-sweep and will exit the process.
		select {}
	}
	return nil
}

// startSidecar runs the supervisor's startup sequence and hands a spawn
// failure to fail, which decides how the process ends.
func startSidecar(ctx context.Context, sup *supervisor.Supervisor, logger *slog.Logger, fail func(error)) {
	if err := sup.Run(ctx); err != nil {
		logger.Error("starting sidecar", "error", err)
		fail(err)
	}
}

// newReaper builds the sweeper from the termination config, with the sweep
// journal attached when one is configured. A journal that can't be opened
// is logged and skipped.
func newReaper(cfg *config.Config, finder reaper.Finder, logger *slog.Logger, dryRun bool) (*reaper.Reaper, *audit.Logger, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, nil, err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return nil, nil, err
	}

	opts := []reaper.Option{reaper.WithMode(mode), reaper.WithLogger(logger)}
	if dryRun {
		opts = append(opts, reaper.WithDryRun())
	}

	var journal *audit.Logger
	if cfg.Journal != "" && !dryRun {
		journal, err = audit.NewLogger(cfg.Journal)
		if err != nil {
			logger.Warn("sweep journal disabled", "path", cfg.Journal, "error", err)
			journal = nil
		} else {
			opts = append(opts, reaper.WithJournal(journal))
		}
	}

	return reaper.New(finder, policy, opts...), journal, nil
}
