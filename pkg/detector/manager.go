package detector

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/utils"
)

//ErrUnknownMode is returned for a mode other than accelerated or basic.
var ErrUnknownMode = errors.New("unknown detector mode")

//ControllerBuilder returns the options of a new session for mode.
type ControllerBuilder func(mode string) (Options, error)

//Manager owns at most one Controller. Switching mode tears the current session down
//completely before the new one starts; a failed session is not replaced by the other mode.
//Sessions initialize outside the manager lock, so Snapshot and Stop never wait for a model
//or a camera.
type Manager struct {
	//startMu serializes session switches
	startMu sync.Mutex

	mu      sync.Mutex
	build   ControllerBuilder
	current *Controller
	stopped bool
	logger  *zap.SugaredLogger
}

//NewManager returns a manager that creates sessions with build.
func NewManager(build ControllerBuilder, logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{build: build, logger: logger}
}

//ValidMode reports whether mode names a localizer mode.
func ValidMode(mode string) bool {
	return mode == utils.ModeAccelerated || mode == utils.ModeBasic
}

//Start begins a session in mode, replacing any current one. The previous session is
//released before the new one loads its model. Start after Stop returns ErrNotRunning.
func (m *Manager) Start(ctx context.Context, mode string) error {
	if !ValidMode(mode) {
		return errors.Wrapf(ErrUnknownMode, "mode %q", mode)
	}

	m.startMu.Lock()
	defer m.startMu.Unlock()

	opts, err := m.build(mode)
	if err != nil {
		return errors.Wrapf(err, "could not configure %s detector", mode)
	}
	opts.Mode = mode
	c, err := NewController(opts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return multierr.Append(ErrNotRunning, c.Stop())
	}
	prev := m.current
	m.current = c
	m.mu.Unlock()

	if prev != nil {
		if err := prev.Stop(); err != nil {
			m.logger.Warnf("Start: previous session did not stop cleanly, got '%v'", err)
		}
	}

	m.logger.Infof("Start: starting %s session %s", mode, c.ID())
	return c.Start(ctx)
}

//SwitchMode restarts detection in mode. Switching to the current mode of a running
//session is a no-op.
func (m *Manager) SwitchMode(ctx context.Context, mode string) error {
	if !ValidMode(mode) {
		return errors.Wrapf(ErrUnknownMode, "mode %q", mode)
	}
	m.mu.Lock()
	c := m.current
	m.mu.Unlock()
	if c != nil && c.Mode() == mode && c.State().running() {
		return nil
	}
	return m.Start(ctx, mode)
}

//Mode returns the mode of the current session, or "" without one.
func (m *Manager) Mode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Mode()
}

//Snapshot returns the current session snapshot. Without a session the state is
//uninitialized.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	c := m.current
	m.mu.Unlock()
	if c == nil {
		return Snapshot{
			State:  StateUninitialized.String(),
			Status: StateUninitialized.Status(),
			Views:  []PhoneDetectionView{},
		}
	}
	return c.Snapshot()
}

//Stop tears the current session down, interrupting its initialization if it is still
//loading. The manager accepts no new session afterwards. It is safe to call more than once.
func (m *Manager) Stop() error {
	m.mu.Lock()
	m.stopped = true
	c := m.current
	m.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Stop()
}
