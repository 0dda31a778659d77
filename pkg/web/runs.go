package web

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stormlab/diffract/pkg/eventbus"
	"github.com/stormlab/diffract/pkg/events"
	"github.com/stormlab/diffract/pkg/registry"
	"github.com/stormlab/diffract/pkg/results"
	"github.com/stormlab/diffract/pkg/runner"
	"github.com/stormlab/diffract/pkg/scan"
	"github.com/stormlab/diffract/pkg/workflow"
)

type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished"
	RunStatusFailed   RunStatus = "failed"
)

// RunState is the tracked state of one scan processing run.
type RunState struct {
	ID         string     `json:"id"`
	Workflow   string     `json:"workflow"`
	Status     RunStatus  `json:"status"`
	Fraction   float64    `json:"fraction"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RunManager starts scan runs in the background and tracks their state.
// Progress updates arrive over the event bus so the manager sees the same
// notifications as any external consumer.
type RunManager struct {
	logger   *slog.Logger
	registry *registry.Registry
	bus      eventbus.EventBus
	nWorkers int

	mu     sync.RWMutex
	runs   map[string]*RunState
	stores map[string]*results.Store
}

func NewRunManager(logger *slog.Logger, reg *registry.Registry, bus eventbus.EventBus, nWorkers int) *RunManager {
	return &RunManager{
		logger:   logger.With("module", "web.runs"),
		registry: reg,
		bus:      bus,
		nWorkers: nWorkers,
		runs:     make(map[string]*RunState),
		stores:   make(map[string]*results.Store),
	}
}

// BindEventHandlers registers the bus handlers that keep run states
// current. Call before the bus subscription is started.
func (m *RunManager) BindEventHandlers() error {
	if m.bus == nil {
		return nil
	}

	if err := m.bus.Handle(events.RunProgressEvent, m.onProgress); err != nil {
		return err
	}

	return nil
}

func (m *RunManager) onProgress(_ context.Context, event any) error {
	progress, ok := event.(*events.RunProgress)
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.runs[progress.RunID]; ok {
		state.Fraction = progress.Fraction
	}

	return nil
}

// StartRun launches the processing of a scan through a workflow document in
// the background and returns the run id.
func (m *RunManager) StartRun(doc *workflow.Document, scanCtx *scan.Context, nWorkers int) (string, error) {
	tree, err := workflow.Restore(m.logger, m.registry, doc)
	if err != nil {
		return "", err
	}

	if nWorkers < 1 {
		nWorkers = m.nWorkers
	}

	opts := []runner.Option{}
	if m.bus != nil {
		opts = append(opts, runner.WithEventBus(m.bus))
	}

	r, err := runner.New(m.logger, m.registry, nWorkers, opts...)
	if err != nil {
		return "", err
	}

	runID := runner.NewRunID()

	m.mu.Lock()
	m.runs[runID] = &RunState{
		ID:        runID,
		Workflow:  doc.Name,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
	m.mu.Unlock()

	go func() {
		store, err := r.Run(context.Background(), runID, tree, scanCtx)

		now := time.Now()

		m.mu.Lock()
		defer m.mu.Unlock()

		state := m.runs[runID]
		state.FinishedAt = &now

		if err != nil {
			state.Status = RunStatusFailed
			state.Error = err.Error()

			return
		}

		state.Status = RunStatusFinished
		state.Fraction = 1
		m.stores[runID] = store
	}()

	return runID, nil
}

// Run returns the state of one run.
func (m *RunManager) Run(id string) (*RunState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}

	snapshot := *state

	return &snapshot, nil
}

// Runs returns the states of all known runs.
func (m *RunManager) Runs() []*RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]*RunState, 0, len(m.runs))

	for _, state := range m.runs {
		snapshot := *state
		states = append(states, &snapshot)
	}

	return states
}

// Results returns the result store of a finished run.
func (m *RunManager) Results(id string) (*results.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	store, ok := m.stores[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunResultsNotAvailable)
	}

	return store, nil
}
