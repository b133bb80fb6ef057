package process

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPIDLifecycle(t *testing.T) {
	m := newTestManager(t)

	assert.Equal(t, 0, m.ReadPID())
	assert.False(t, m.IsRunning())

	require.NoError(t, m.WritePID())
	assert.Equal(t, os.Getpid(), m.ReadPID())
	assert.True(t, m.IsRunning(), "the test process itself is alive")

	m.CleanupPID()
	assert.Equal(t, 0, m.ReadPID())
}

func TestIsRunning_RemovesStalePID(t *testing.T) {
	m := newTestManager(t)

	// Linux never allocates PIDs above 2^22.
	require.NoError(t, os.WriteFile(m.PIDFile(), []byte(strconv.Itoa(1<<30)), 0o600))
	assert.False(t, m.IsRunning())
	_, err := os.Stat(m.PIDFile())
	assert.True(t, os.IsNotExist(err))
}

func TestReadPID_Garbage(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.WriteFile(m.PIDFile(), []byte("not-a-pid"), 0o600))
	assert.Equal(t, 0, m.ReadPID())
}

func TestRefCount(t *testing.T) {
	m := newTestManager(t)

	assert.Equal(t, 0, m.ReadRef())
	assert.Equal(t, 1, m.IncrementRef())
	assert.Equal(t, 2, m.IncrementRef())
	assert.Equal(t, 1, m.DecrementRef())
	assert.Equal(t, 0, m.DecrementRef())
	assert.Equal(t, 0, m.DecrementRef(), "never negative")

	m.IncrementRef()
	m.CleanupRef()
	assert.Equal(t, 0, m.ReadRef())
}

func TestWaitForService(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.WritePID())

	ready := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ready:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer ts.Close()

	go func() {
		time.Sleep(200 * time.Millisecond)
		close(ready)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	assert.True(t, m.WaitForService(ctx, ts.URL))
}

func TestWaitForService_Timeout(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "none"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.False(t, m.WaitForService(ctx, ""))
}
