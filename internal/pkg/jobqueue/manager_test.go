package jobqueue

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/FelixDorner/LinkCard/internal/pkg/cache"
)

// stopWithin fails the test when Stop does not return; a worker re-entering
// select on an invalidated stop channel would hang the Wait inside Stop.
func stopWithin(t *testing.T, m *Manager, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("manager Stop did not return")
	}
}

func TestManagerStartStopCycle(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	m := &Manager{queue: NewQueue(2), stopCh: make(chan struct{})}

	m.Start()
	require.True(t, m.IsRunning())
	stopWithin(t, m, 10*time.Second)
	require.False(t, m.IsRunning())

	// A stopped manager restarts cleanly on fresh channels.
	m.Start()
	require.True(t, m.IsRunning())
	stopWithin(t, m, 10*time.Second)
	require.False(t, m.IsRunning())
}
