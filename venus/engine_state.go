package venus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dgretton/pyhamilton-sub000/logger"
)

// EngineState represents the lifecycle stage of a protocol engine.
type EngineState uint32

// Engine lifecycle states.
const (
	// ClosedState indicates the engine owns no bridge process or listener.
	ClosedState EngineState = iota
	// StartingState indicates the bridge process and listener are being brought up.
	StartingState
	// OpenState indicates the engine is ready to dispatch commands.
	OpenState
	// ClosingState indicates a graceful shutdown is in progress.
	ClosingState
)

// IsClosed returns if the current state is closed.
func (s EngineState) IsClosed() bool { return s == ClosedState }

// IsOpen returns if the current state is open.
func (s EngineState) IsOpen() bool { return s == OpenState }

// String returns string representation of the current state.
func (s EngineState) String() string {
	switch s {
	case ClosedState:
		return "closed"
	case StartingState:
		return "starting"
	case OpenState:
		return "open"
	case ClosingState:
		return "closing"
	default:
		return "unknown"
	}
}

// StateChangeHandler is invoked when the engine state changes.
//
// Note: the handler is invoked in a blocking mode. Take care with long-running
// implementations.
type StateChangeHandler func(prevState EngineState, newState EngineState)

// stateMgr manages engine lifecycle state transitions. Transitions are safe
// for concurrent use, and waiters are notified through a condition variable.
type stateMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	logger   logger.Logger
	handlers []StateChangeHandler
}

func newStateMgr(l logger.Logger, handlers ...StateChangeHandler) *stateMgr {
	mgr := &stateMgr{
		logger:   l,
		handlers: handlers,
	}
	mgr.state.Store(uint32(ClosedState))
	mgr.cond = sync.NewCond(&mgr.mu)

	return mgr
}

// State returns the current engine state.
func (m *stateMgr) State() EngineState {
	return EngineState(m.state.Load())
}

// AddHandler adds one or more StateChangeHandler functions to be invoked on
// state changes.
func (m *stateMgr) AddHandler(handlers ...StateChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handlers...)
}

// WaitState waits for the engine state to reach the specified state or until
// the context is done. It returns nil if the desired state is reached, or the
// context error otherwise.
func (m *stateMgr) WaitState(ctx context.Context, state EngineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		m.cond.Broadcast()
	})
	defer stopFunc()

	for m.State() != state {
		select {
		case <-ctx.Done():
			m.logger.Debug("wait engine state canceled", "cur_state", m.State(), "desired_state", state)
			return ctx.Err()
		default:
			m.cond.Wait()
		}
	}

	return nil
}

// ToStarting transitions the state to StartingState. Only allowed from
// ClosedState.
func (m *stateMgr) ToStarting() error {
	return m.transition(StartingState, ClosedState)
}

// ToOpen transitions the state to OpenState. Only allowed from StartingState.
func (m *stateMgr) ToOpen() error {
	return m.transition(OpenState, StartingState)
}

// ToClosing transitions the state to ClosingState. Only allowed from
// OpenState or StartingState.
func (m *stateMgr) ToClosing() error {
	return m.transition(ClosingState, OpenState, StartingState)
}

// ToClosed transitions the state to ClosedState. This transition is allowed
// from any state and represents a completed shutdown or a reset.
func (m *stateMgr) ToClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	curState := m.State()
	if curState == ClosedState {
		return
	}

	// change state to closed BEFORE all handlers finished
	m.setState(ClosedState)

	m.invokeHandlers(curState, ClosedState)
}

// transition moves to newState when the current state is one of the allowed
// states, returning ErrInvalidTransition otherwise.
func (m *stateMgr) transition(newState EngineState, allowed ...EngineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	curState := m.State()
	if curState == newState {
		return nil // No-op
	}

	ok := false
	for _, s := range allowed {
		if curState == s {
			ok = true
			break
		}
	}
	if !ok {
		m.logger.Debug("invalid engine state transition", "cur_state", curState, "desired_state", newState)
		return ErrInvalidTransition
	}

	m.invokeHandlers(curState, newState)
	// change state after all handlers finished
	m.setState(newState)

	return nil
}

// setState atomically sets the current state and broadcasts a signal to any
// waiting goroutines.
func (m *stateMgr) setState(newState EngineState) {
	m.state.Store(uint32(newState))
	m.cond.Broadcast()
}

func (m *stateMgr) invokeHandlers(prevState EngineState, newState EngineState) {
	for _, handler := range m.handlers {
		if handler != nil {
			handler(prevState, newState)
		}
	}
}
