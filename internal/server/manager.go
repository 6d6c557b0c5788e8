package server

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/internal/pipeline"
)

// RunManager tracks the runs currently held open by the API. Capacity is
// bounded; adding a run past the cap evicts and closes the oldest one.
type RunManager struct {
	mu     sync.Mutex
	max    int
	runs   map[uuid.UUID]*pipeline.Run
	order  []uuid.UUID
	logger *zap.Logger
}

func NewRunManager(maxActive int, logger *zap.Logger) *RunManager {
	if maxActive <= 0 {
		maxActive = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunManager{
		max:    maxActive,
		runs:   make(map[uuid.UUID]*pipeline.Run),
		logger: logger,
	}
}

// Add registers a run, evicting the oldest one when the slot cap is reached.
func (m *RunManager) Add(run *pipeline.Run) {
	m.mu.Lock()
	var evicted *pipeline.Run
	for len(m.order) >= m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		evicted = m.runs[oldest]
		delete(m.runs, oldest)
	}
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	m.mu.Unlock()

	if evicted != nil {
		m.logger.Info("run.evicted", zap.String("run_id", evicted.ID.String()))
		if err := evicted.Close(); err != nil {
			m.logger.Warn("run.evict.close_failed", zap.String("run_id", evicted.ID.String()), zap.Error(err))
		}
	}
}

func (m *RunManager) Get(id uuid.UUID) (*pipeline.Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	return run, ok
}

// Remove unregisters the run without closing it; the caller owns cleanup.
func (m *RunManager) Remove(id uuid.UUID) (*pipeline.Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, false
	}
	delete(m.runs, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return run, true
}

func (m *RunManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// CloseAll closes every tracked run. Used on shutdown.
func (m *RunManager) CloseAll() {
	m.mu.Lock()
	runs := make([]*pipeline.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	m.runs = make(map[uuid.UUID]*pipeline.Run)
	m.order = nil
	m.mu.Unlock()

	for _, run := range runs {
		if err := run.Close(); err != nil {
			m.logger.Warn("run.close_failed", zap.String("run_id", run.ID.String()), zap.Error(err))
		}
	}
}
