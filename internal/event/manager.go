package event

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/input"
	"github.com/tsani/sixteen-fifty/internal/script"
	"github.com/tsani/sixteen-fifty/internal/script/command"
	"github.com/tsani/sixteen-fifty/internal/signal"
	"github.com/tsani/sixteen-fifty/internal/stage"
)

var _ script.Host = (*Manager)(nil)

// ErrNoScript is returned by BeginScript when given a nil script.
var ErrNoScript = errors.New("no script to run")

// Overlay is a UI layer that captures input while it is shown, such as a
// pause menu.
type Overlay interface {
	Active() bool
}

// Abortion describes a script that was torn down before completing.
type Abortion struct {
	RunnerID uuid.UUID
	Script   script.Script
	Reason   string
	Ticks    uint64
}

// Manager runs at most one scripted event at a time. It steps the active
// runner once per tick and forwards main panel clicks to whichever script is
// listening.
type Manager struct {
	mu     sync.Mutex
	logger *zap.Logger

	runner         *Runner
	resume         func(command.Tick) bool
	completeHandle int
	compiling      bool
	stage          stage.Stage
	blocksRaycasts bool
	overlay        Overlay

	clicks    *signal.Signal[input.PointerEvent]
	completed *signal.Signal[Completion]
	aborted   *signal.Signal[Abortion]
}

// NewManager creates a manager with no running script.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:    logger,
		clicks:    signal.New[input.PointerEvent](),
		completed: signal.New[Completion](),
		aborted:   signal.New[Abortion](),
	}
}

// BeginScript compiles s against ctx and makes it the running script. The
// first step happens on the next Tick. Compilation errors are returned and
// leave the manager idle. Calling BeginScript while a script is running
// panics with a *command.ViolationError.
//
// Compilation runs without the manager's lock, so a script may query its
// host while compiling. A BeginScript issued during that window panics like
// any other overlapping call.
//
// If ctx has no host, the manager itself is used.
func (m *Manager) BeginScript(ctx *script.Context, s script.Script) error {
	if s == nil {
		return ErrNoScript
	}
	if ctx == nil {
		ctx = &script.Context{}
	}
	if ctx.Host == nil {
		ctx = ctx.WithHost(m)
	}

	m.mu.Lock()
	if m.runner != nil || m.compiling {
		m.mu.Unlock()
		command.Violation("BeginScript", "a script is already running")
	}
	m.compiling = true
	m.mu.Unlock()

	installed := false
	defer func() {
		if !installed {
			m.mu.Lock()
			m.compiling = false
			m.mu.Unlock()
		}
	}()

	cmd, err := s.Compile(ctx)
	if err != nil {
		m.logger.Warn("script failed to compile",
			zap.String("script_kind", string(s.Kind())),
			zap.Error(err),
		)
		return err
	}

	runner := NewRunner(s, cmd, m.logger)
	m.mu.Lock()
	m.compiling = false
	m.stage = ctx.Stage
	m.completeHandle = runner.Completed().Subscribe(m.onEventComplete)
	m.resume = runner.Coroutine()
	m.runner = runner
	installed = true
	m.mu.Unlock()

	m.logger.Info("script started",
		zap.String("script_kind", string(s.Kind())),
		zap.String("runner_id", runner.ID().String()),
	)
	return nil
}

// Tick steps the running script once. It returns false if no script was
// running.
func (m *Manager) Tick(t command.Tick) bool {
	m.mu.Lock()
	resume := m.resume
	m.mu.Unlock()
	if resume == nil {
		return false
	}
	// the lock is not held here; completion re-enters the manager
	resume(t)
	return true
}

func (m *Manager) onEventComplete(c Completion) {
	m.mu.Lock()
	if m.runner == nil || m.runner.ID() != c.RunnerID {
		m.mu.Unlock()
		return
	}
	m.runner.Completed().Unsubscribe(m.completeHandle)
	m.runner = nil
	m.resume = nil
	m.stage = nil
	wasBlocking := m.blocksRaycasts
	m.blocksRaycasts = false
	m.mu.Unlock()

	if wasBlocking {
		m.logger.Warn("script completed while blocking raycasts",
			zap.String("runner_id", c.RunnerID.String()),
		)
	}
	m.logger.Info("script completed",
		zap.String("script_kind", string(c.Script.Kind())),
		zap.String("runner_id", c.RunnerID.String()),
		zap.Uint64("ticks", c.Ticks),
		zap.Any("value", c.Value),
	)
	m.completed.Publish(c)
}

// Abort tears down the running script without completing it. Its command
// tree releases any subscriptions it holds, raycasts are released, the
// dialogue box of the script's stage is cleared and hidden, and OnAbort
// subscribers are notified. Speakers are left on stage; clearing them is up
// to the caller. It returns false if nothing was running.
func (m *Manager) Abort(reason string) bool {
	m.mu.Lock()
	runner := m.runner
	if runner == nil {
		m.mu.Unlock()
		return false
	}
	runner.Completed().Unsubscribe(m.completeHandle)
	m.runner = nil
	m.resume = nil
	m.blocksRaycasts = false
	st := m.stage
	m.stage = nil
	m.mu.Unlock()

	runner.Abort()
	if st != nil {
		st.SetDialogueText("")
		st.SetDialogueVisible(false)
	}
	m.logger.Info("script aborted",
		zap.String("script_kind", string(runner.Script().Kind())),
		zap.String("runner_id", runner.ID().String()),
		zap.String("reason", reason),
	)
	m.aborted.Publish(Abortion{
		RunnerID: runner.ID(),
		Script:   runner.Script(),
		Reason:   reason,
		Ticks:    runner.Ticks(),
	})
	return true
}

// IsEventRunning returns true while a script is installed. It is false while
// a script is still compiling inside BeginScript.
func (m *Manager) IsEventRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runner != nil
}

// SetOverlay installs the UI overlay consulted by IsUI. Nil removes it.
func (m *Manager) SetOverlay(o Overlay) {
	m.mu.Lock()
	m.overlay = o
	m.mu.Unlock()
}

// IsUI returns true when pointer input belongs to the UI rather than the
// world: a script is running or an overlay is shown.
func (m *Manager) IsUI() bool {
	m.mu.Lock()
	running, overlay := m.runner != nil, m.overlay
	m.mu.Unlock()
	return running || (overlay != nil && overlay.Active())
}

// RaiseMainPanelClicked delivers a click on the input-intercept panel to its
// subscribers. With no subscribers the click is dropped.
func (m *Manager) RaiseMainPanelClicked(e input.PointerEvent) {
	m.clicks.Publish(e)
}

// OnMainPanelClicked subscribes fn to main panel clicks.
func (m *Manager) OnMainPanelClicked(fn func(input.PointerEvent)) (cancel func()) {
	return subscribe(m.clicks, fn)
}

// BlocksRaycasts reports whether the running script has claimed exclusive
// pointer input.
func (m *Manager) BlocksRaycasts() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocksRaycasts
}

// SetBlocksRaycasts claims or releases exclusive pointer input for the
// running script.
func (m *Manager) SetBlocksRaycasts(blocks bool) {
	m.mu.Lock()
	m.blocksRaycasts = blocks
	m.mu.Unlock()
}

// OnComplete subscribes fn to script completions.
func (m *Manager) OnComplete(fn func(Completion)) (cancel func()) {
	return subscribe(m.completed, fn)
}

// OnAbort subscribes fn to aborted scripts.
func (m *Manager) OnAbort(fn func(Abortion)) (cancel func()) {
	return subscribe(m.aborted, fn)
}

func subscribe[T any](s *signal.Signal[T], fn func(T)) func() {
	handle := s.Subscribe(fn)
	var once sync.Once
	return func() {
		once.Do(func() { s.Unsubscribe(handle) })
	}
}
