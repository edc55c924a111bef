package reaper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	dockerclient "github.com/docker/docker/client"
)

// containerAPI is the slice of the docker client the container source needs.
type containerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerKill(ctx context.Context, containerID, signal string) error
	Close() error
}

// containerSource enumerates running containers publishing a host port.
type containerSource struct {
	once   sync.Once
	api    containerAPI
	err    error
	newAPI func() (containerAPI, error)
}

func newContainerSource() *containerSource {
	return &containerSource{
		newAPI: func() (containerAPI, error) {
			cli, err := dockerclient.NewClientWithOpts(
				dockerclient.FromEnv,
				dockerclient.WithAPIVersionNegotiation(),
			)
			if err != nil {
				return nil, fmt.Errorf("creating docker client: %w", err)
			}
			return cli, nil
		},
	}
}

func (s *containerSource) client() (containerAPI, error) {
	s.once.Do(func() {
		s.api, s.err = s.newAPI()
	})
	return s.api, s.err
}

func (s *containerSource) find(ctx context.Context, port uint16) ([]Killable, error) {
	api, err := s.client()
	if err != nil {
		return nil, err
	}

	containers, err := api.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	var killables []Killable
	for _, c := range containers {
		if !publishes(c.Ports, port) {
			continue
		}
		killables = append(killables, &containerKillable{
			api:  api,
			id:   c.ID,
			name: containerName(c),
		})
	}
	return killables, nil
}

func (s *containerSource) close() error {
	if s.api == nil {
		return nil
	}
	return s.api.Close()
}

func publishes(ports []container.Port, port uint16) bool {
	for _, p := range ports {
		if p.PublicPort == port {
			return true
		}
	}
	return false
}

// containerName prefers the first container name (without docker's leading
// slash) and falls back to the image so policy matching has something to use.
func containerName(c container.Summary) string {
	for _, n := range c.Names {
		if n = strings.TrimPrefix(n, "/"); n != "" {
			return n
		}
	}
	return c.Image
}

// containerKillable is a container publishing the port.
type containerKillable struct {
	api  containerAPI
	id   string
	name string
}

func (k *containerKillable) Name() string { return k.name }
func (k *containerKillable) ID() string   { return k.id }
func (k *containerKillable) Kind() Kind   { return KindContainer }

func (k *containerKillable) Kill(sig Signal) error {
	if err := k.api.ContainerKill(context.Background(), k.id, sig.String()); err != nil {
		return fmt.Errorf("killing container %s: %w", shortID(k.id), err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
