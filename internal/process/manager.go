// Package process tracks the background server through a PID file and a
// reference count of CLI clients using it.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	pidFilename = "ecoswitch.pid"
	refFilename = "ecoswitch.refs"
)

type Manager struct {
	pidFile string
	refFile string
	logger  *slog.Logger
	mu      sync.RWMutex
}

func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pidFile: filepath.Join(baseDir, pidFilename),
		refFile: filepath.Join(baseDir, refFilename),
		logger:  logger,
	}
}

func (m *Manager) PIDFile() string { return m.pidFile }

func (m *Manager) WritePID() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.pidFile), 0o750); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}

	return os.WriteFile(m.pidFile, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

// ReadPID returns 0 when no valid PID file exists.
func (m *Manager) ReadPID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return readInt(m.pidFile)
}

// IsRunning probes the recorded PID and removes a stale file.
func (m *Manager) IsRunning() bool {
	pid := m.ReadPID()
	if pid == 0 {
		return false
	}

	if err := syscall.Kill(pid, 0); err != nil {
		m.CleanupPID()
		return false
	}

	return true
}

// Stop sends SIGTERM and waits up to five seconds for the process to exit.
func (m *Manager) Stop() error {
	pid := m.ReadPID()
	if pid == 0 {
		return nil
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		m.CleanupPID()
		return fmt.Errorf("send SIGTERM to process %d: %w", pid, err)
	}

	for range 50 {
		if !m.IsRunning() {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	m.CleanupPID()
	return nil
}

func (m *Manager) CleanupPID() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.pidFile); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("Failed to remove PID file", "path", m.pidFile, "error", err)
	}
}

func (m *Manager) IncrementRef() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := readInt(m.refFile) + 1
	m.writeRef(n)
	return n
}

// DecrementRef never goes below zero.
func (m *Manager) DecrementRef() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := readInt(m.refFile)
	if n > 0 {
		n--
		m.writeRef(n)
	}
	return n
}

func (m *Manager) ReadRef() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return readInt(m.refFile)
}

func (m *Manager) writeRef(count int) {
	if err := os.MkdirAll(filepath.Dir(m.refFile), 0o750); err != nil {
		m.logger.Warn("Failed to create reference directory", "error", err)
		return
	}
	if err := os.WriteFile(m.refFile, []byte(strconv.Itoa(count)), 0o600); err != nil {
		m.logger.Warn("Failed to write reference file", "path", m.refFile, "error", err)
	}
}

func (m *Manager) CleanupRef() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.refFile); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("Failed to remove reference file", "path", m.refFile, "error", err)
	}
}

// WaitForService polls until the process is up and healthURL answers 200.
// An empty healthURL only waits for the PID.
func (m *Manager) WaitForService(ctx context.Context, healthURL string) bool {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		if m.IsRunning() && (healthURL == "" || healthy(ctx, client, healthURL)) {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// StartServiceIfNeeded launches "<self> start" in the background unless a
// server is already running. It reports whether this call started it.
func (m *Manager) StartServiceIfNeeded(ctx context.Context, healthURL string) (bool, error) {
	if m.IsRunning() {
		return false, nil
	}

	cmd := exec.Command(os.Args[0], "start")
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start service: %w", err)
	}
	m.logger.Debug("Launched background service", "pid", cmd.Process.Pid)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if !m.WaitForService(waitCtx, healthURL) {
		return false, errors.New("service startup timeout")
	}

	return true, nil
}

func healthy(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func readInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return n
}
