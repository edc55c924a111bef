//go:build integration

package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Integration tests require a running Docker daemon.
// Run with: go test -tags integration ./internal/reaper/ -run TestContainer

func TestContainerSweepKillsPublishingContainer(t *testing.T) {
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nginx:alpine",
			Name:         "streamlit-reaper-test",
			ExposedPorts: []string{"80/tcp"},
			WaitingFor:   wait.ForListeningPort("80/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { testcontainers.TerminateContainer(c) })

	mapped, err := c.MappedPort(ctx, "80/tcp")
	require.NoError(t, err)
	port := uint16(mapped.Int())

	f := NewOSFinder(nil)
	defer f.Close()

	ks, err := f.FindKillables(ctx, port, ModeContainer)
	require.NoError(t, err)
	require.Len(t, ks, 1)
	assert.Equal(t, "streamlit-reaper-test", ks[0].Name())

	rep := New(f, DefaultPolicy(), WithMode(ModeContainer)).Sweep(ctx, port, "integration")
	require.NoError(t, rep.Err)
	require.Len(t, rep.Signaled, 1)

	require.Eventually(t, func() bool {
		st, err := c.State(ctx)
		return err == nil && !st.Running
	}, 30*time.Second, 250*time.Millisecond)
}
