// Package runs owns compression run lifecycles: it starts the pipeline
// worker, relays its notifications onto the event bus, and answers status
// and cancellation requests. One run executes at a time.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alharthydev/compresspro/internal/capability"
	"github.com/alharthydev/compresspro/internal/events"
	"github.com/alharthydev/compresspro/internal/media"
	"github.com/alharthydev/compresspro/internal/metrics"
	"github.com/alharthydev/compresspro/internal/pipeline"
	"github.com/alharthydev/compresspro/internal/resolver"
	"github.com/alharthydev/compresspro/internal/settings"
)

var (
	// ErrRunActive is returned by Start while another run is executing.
	ErrRunActive = errors.New("a compression run is already active")

	// ErrNoSuchRun is returned for status or cancel requests naming an
	// unknown run.
	ErrNoSuchRun = errors.New("no such run")
)

// ShutdownWait bounds how long Wait blocks for the worker goroutine after
// cancellation before giving up on a clean teardown.
const ShutdownWait = 3 * time.Second

// Status is a point-in-time view of a run.
type Status struct {
	RunID      string
	State      pipeline.State
	Percent    int
	Frames     int64
	Outcome    pipeline.Outcome
	Encoder    string
	Error      string
	InputPath  string
	OutputPath string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Done reports whether the run reached a terminal outcome.
func (s Status) Done() bool {
	return s.State == pipeline.StateClosed
}

// SettingsSaver persists the settings of a successful run. The settings
// store implements it.
type SettingsSaver interface {
	Save(s settings.CompressionSettings) error
}

// Manager starts, observes and cancels compression runs.
type Manager struct {
	framework media.Framework
	snapshot  capability.Snapshot
	bus       *events.Bus
	saver     SettingsSaver
	logger    *slog.Logger

	mu      sync.Mutex
	seq     uint64
	current *run
	last    *run
}

type run struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
}

// NewManager builds a manager. saver may be nil when nothing should be
// persisted between runs.
func NewManager(fw media.Framework, snap capability.Snapshot, bus *events.Bus, saver SettingsSaver, logger *slog.Logger) *Manager {
	return &Manager{
		framework: fw,
		snapshot:  snap,
		bus:       bus,
		saver:     saver,
		logger:    logger,
	}
}

// Start validates the settings, resolves the encoder plan and launches the
// worker goroutine. It returns immediately with the new run's identifier.
func (m *Manager) Start(s settings.CompressionSettings) (string, error) {
	if err := s.Validate(); err != nil {
		return "", fmt.Errorf("invalid settings: %w", err)
	}
	plan, err := resolver.Resolve(s, m.snapshot)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return "", ErrRunActive
	}

	if m.last != nil {
		metrics.DeleteRunMetrics(m.last.id)
	}

	m.seq++
	runID := fmt.Sprintf("run-%d", m.seq)

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:     runID,
		cancel: cancel,
		done:   make(chan struct{}),
		status: Status{
			RunID:      runID,
			State:      pipeline.StateInit,
			InputPath:  s.InputPath,
			OutputPath: s.OutputPath,
			StartedAt:  time.Now(),
		},
	}
	m.current = r
	m.last = r

	metrics.RunStarted()
	m.bus.Publish(events.RunStartedEvent{
		RunID:     runID,
		InputPath: s.InputPath,
		Codec:     string(s.Codec),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	p := pipeline.New(m.framework, runID, s, plan, &busSink{mgr: m, run: r}, m.logger)
	go m.execute(ctx, p, r, s)

	return runID, nil
}

func (m *Manager) execute(ctx context.Context, p *pipeline.Pipeline, r *run, s settings.CompressionSettings) {
	defer close(r.done)
	defer metrics.RunStopped()

	res := p.Run(ctx)

	r.mu.Lock()
	r.status.Outcome = res.Outcome
	r.status.Encoder = res.Encoder
	r.status.Frames = res.Frames
	r.status.FinishedAt = time.Now()
	if res.Err != nil {
		r.status.Error = res.Err.Error()
	}
	status := r.status
	r.mu.Unlock()

	if res.Outcome == pipeline.OutcomeSuccess && m.saver != nil {
		if err := m.saver.Save(s); err != nil {
			m.logger.Warn("Could not persist run settings", "run_id", r.id, "error", err)
		}
	}

	m.bus.Publish(events.RunFinishedEvent{
		RunID:      r.id,
		Outcome:    string(res.Outcome),
		Encoder:    res.Encoder,
		OutputPath: status.OutputPath,
		Error:      status.Error,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})

	m.mu.Lock()
	if m.current == r {
		m.current = nil
	}
	m.mu.Unlock()
}

// Cancel requests cancellation of the named run. Cancelling an already
// finished run is a no-op.
func (m *Manager) Cancel(runID string) error {
	r := m.find(runID)
	if r == nil {
		return ErrNoSuchRun
	}
	r.cancel()
	return nil
}

// Status returns the current view of the named run.
func (m *Manager) Status(runID string) (Status, error) {
	r := m.find(runID)
	if r == nil {
		return Status{}, ErrNoSuchRun
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, nil
}

// Active returns the status of the executing run, false when idle.
func (m *Manager) Active() (Status, bool) {
	m.mu.Lock()
	r := m.current
	m.mu.Unlock()
	if r == nil {
		return Status{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, true
}

// Latest returns the most recently started run, finished or not.
func (m *Manager) Latest() (Status, bool) {
	m.mu.Lock()
	r := m.last
	m.mu.Unlock()
	if r == nil {
		return Status{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, true
}

// Wait blocks until the named run finishes or the timeout elapses. It
// returns false on timeout; the worker keeps running in that case.
func (m *Manager) Wait(runID string, timeout time.Duration) bool {
	r := m.find(runID)
	if r == nil {
		return true
	}
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Shutdown cancels any active run and waits up to ShutdownWait for its
// worker to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	r := m.current
	m.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	if !m.Wait(r.id, ShutdownWait) {
		m.logger.Warn("Run worker did not stop in time", "run_id", r.id)
	}
}

func (m *Manager) find(runID string) *run {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.id == runID {
		return m.current
	}
	if m.last != nil && m.last.id == runID {
		return m.last
	}
	return nil
}

// busSink relays pipeline notifications onto the event bus and into the
// run's status record.
type busSink struct {
	mgr *Manager
	run *run
}

func (s *busSink) StateChanged(state pipeline.State, detail string) {
	s.run.mu.Lock()
	s.run.status.State = state
	if state == pipeline.StateEncodingVideo && detail != "" {
		s.run.status.Encoder = detail
	}
	s.run.mu.Unlock()

	s.mgr.bus.Publish(events.RunStateChangedEvent{
		RunID:     s.run.id,
		State:     string(state),
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *busSink) Status(message string) {
	s.mgr.bus.Publish(events.RunStatusEvent{
		RunID:     s.run.id,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *busSink) Progress(percent int, frames int64) {
	s.run.mu.Lock()
	s.run.status.Percent = percent
	s.run.status.Frames = frames
	s.run.mu.Unlock()

	s.mgr.bus.Publish(events.RunProgressEvent{
		RunID:   s.run.id,
		Percent: percent,
		Frames:  frames,
	})
}
