// Package worker runs the background jobs that sit beside the request path.
// Workers only read committed state and go through the same ports as the
// workflow service.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a long-running background job
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Manager owns the lifecycle of the registered workers. Workers start in
// registration order and stop in reverse.
type Manager struct {
	logger *zap.Logger

	mu      sync.RWMutex
	workers []Worker
	running []Worker
	cancel  context.CancelFunc
}

// NewManager creates an empty worker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds w. Workers registered after StartAll wait for the next start.
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, w)
}

// StartAll starts every registered worker. On the first failure the workers
// already running are stopped and the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return fmt.Errorf("workers already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	for _, w := range m.workers {
		if err := w.Start(runCtx); err != nil {
			m.logger.Error("Failed to start worker", zap.String("worker", w.Name()), zap.Error(err))
			cancel()
			_ = stopReverse(m.running, m.logger)
			m.running = nil
			return fmt.Errorf("start %s: %w", w.Name(), err)
		}
		m.running = append(m.running, w)
	}

	m.cancel = cancel
	m.logger.Info("Workers running", zap.Strings("workers", names(m.running)))
	return nil
}

// StopAll stops the running workers. It is a no-op when nothing runs.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	running, cancel := m.running, m.cancel
	m.running, m.cancel = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return stopReverse(running, m.logger)
}

func stopReverse(workers []Worker, logger *zap.Logger) error {
	var errs []error
	for i := len(workers) - 1; i >= 0; i-- {
		if err := workers[i].Stop(); err != nil {
			logger.Error("Failed to stop worker", zap.String("worker", workers[i].Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", workers[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of registered workers
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning reports whether StartAll succeeded and StopAll has not run since
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cancel != nil
}

// Names lists the running workers
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return names(m.running)
}

func names(workers []Worker) []string {
	out := make([]string, 0, len(workers))
	for _, w := range workers {
		out = append(out, w.Name())
	}
	return out
}
