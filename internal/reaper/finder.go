package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// OSFinder enumerates real port owners: host processes through the socket
// table and docker containers through the docker API.
type OSFinder struct {
	processes  *processSource
	containers *containerSource
	logger     *slog.Logger
}

// NewOSFinder creates a finder backed by the operating system and, when
// reachable, the local docker daemon.
func NewOSFinder(logger *slog.Logger) *OSFinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &OSFinder{
		processes:  newProcessSource(),
		containers: newContainerSource(),
		logger:     logger.With("component", "finder"),
	}
}

// FindKillables returns every owner of port for the given mode. In auto mode
// processes and containers are enumerated concurrently and a docker failure
// is tolerated, since most machines running the shell have no docker daemon.
func (f *OSFinder) FindKillables(ctx context.Context, port uint16, mode Mode) ([]Killable, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		all []Killable
	)
	collect := func(ks []Killable) {
		mu.Lock()
		all = append(all, ks...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if mode.includesProcesses() {
		g.Go(func() error {
			ks, err := f.processes.find(gctx, port)
			if err != nil {
				return err
			}
			collect(ks)
			return nil
		})
	}

	if mode.includesContainers() {
		g.Go(func() error {
			ks, err := f.containers.find(gctx, port)
			if err != nil {
				if mode == ModeAuto {
					f.logger.Debug("skipping container enumeration", "error", err)
					return nil
				}
				return err
			}
			collect(ks)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enumerating owners of port %d: %w", port, err)
	}
	return all, nil
}

// Close releases the docker client if one was opened.
func (f *OSFinder) Close() error {
	return f.containers.close()
}
