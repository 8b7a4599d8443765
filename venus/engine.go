package venus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgretton/pyhamilton-sub000/internal/pool"
	"github.com/dgretton/pyhamilton-sub000/logger"
)

// Engine owns the lifecycle of the bridge process and the local listener,
// dispatches commands, and correlates and awaits responses.
//
// Lifecycle: Closed → Starting → Open → Closing → Closed. All public
// operations other than Start and Stop fail with ErrEngineNotOpen while the
// engine is not open.
//
// Commands dispatched from a single caller are delivered to the bridge
// process in dispatch order. There is no cross-caller ordering guarantee; the
// instrument processes one command at a time, so interleaving is the callers'
// responsibility to avoid.
type Engine struct {
	pctx      context.Context
	ctx       context.Context
	ctxCancel context.CancelFunc
	cfg       *EngineConfig
	registry  *Registry
	logger    logger.Logger

	stateMgr *stateMgr
	taskMgr  *TaskManager
	listener *listener
	bridge   *bridgeRunner

	metrics EngineMetrics
}

// NewEngine creates a protocol engine with the given context, template
// registry, and configuration. A nil registry falls back to the standard
// command vocabulary.
func NewEngine(ctx context.Context, registry *Registry, cfg *EngineConfig) (*Engine, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if registry == nil {
		registry = NewRegistry()
	}

	e := &Engine{
		pctx:     ctx,
		cfg:      cfg,
		registry: registry,
		logger:   cfg.logger,
		taskMgr:  NewTaskManager(ctx, cfg.logger),
	}
	e.stateMgr = newStateMgr(cfg.logger)
	e.bridge = newBridgeRunner(cfg, cfg.logger, &e.metrics)
	e.createContext()

	return e, nil
}

// State returns the current engine lifecycle state.
func (e *Engine) State() EngineState {
	return e.stateMgr.State()
}

// Metrics returns the metrics associated with the engine.
func (e *Engine) Metrics() *EngineMetrics {
	return &e.metrics
}

// Registry returns the engine's template registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Addr returns the bound listener address, or "" while the engine is closed.
// Callers that configured an ephemeral port read the actual port from here.
func (e *Engine) Addr() string {
	if e.listener == nil {
		return ""
	}
	return e.listener.addr()
}

// Start brings the engine up: it binds the local listener and spawns the
// bridge process (or the simulation runtime). Start is idempotent while the
// engine is open.
func (e *Engine) Start() error {
	if e.stateMgr.State().IsOpen() {
		return nil
	}

	if err := e.stateMgr.ToStarting(); err != nil {
		return err
	}

	e.createContext()
	e.listener = newListener(e.cfg, e.logger)

	if err := e.listener.start(e.taskMgr); err != nil {
		e.stateMgr.ToClosed()
		return err
	}

	if err := e.bridge.start(); err != nil {
		_ = e.listener.stop(e.cfg.stopGracePeriod)
		e.stateMgr.ToClosed()
		return err
	}

	if err := e.stateMgr.ToOpen(); err != nil {
		return err
	}

	e.logger.Info("engine open", "addr", e.listener.addr())

	return nil
}

// Stop shuts the engine down gracefully: the bridge process receives a
// termination signal (retried a bounded number of times, then best-effort),
// the listener stops accepting work and is forced closed after a grace
// period, and all background tasks are joined. Stop is a no-op while the
// engine is closed.
func (e *Engine) Stop() error {
	if e.stateMgr.State().IsClosed() {
		return nil
	}

	if err := e.stateMgr.ToClosing(); err != nil {
		return err
	}

	bridgeErr := e.bridge.stop()

	var listenerErr error
	if e.listener != nil {
		listenerErr = e.listener.stop(e.cfg.stopGracePeriod)
	}

	e.ctxCancel()
	e.taskMgr.Stop()

	joined := make(chan struct{})
	go func() {
		e.taskMgr.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(e.cfg.closeTimeout):
		e.logger.Error("engine tasks did not terminate in time", "timeout", e.cfg.closeTimeout)
	}

	e.stateMgr.ToClosed()
	e.logger.Info("engine closed")

	return errors.Join(bridgeErr, listenerErr)
}

// Dispatch validates and enqueues a command for delivery to the bridge
// process, returning the command's correlation id. Commands with a registered
// name are validated against their template; an unregistered name passes
// through as a fully-formed caller-supplied map.
//
// When confirmDelivery is set, Dispatch blocks until the listener's outbound
// queue is empty, bounded by the engine's close timeout.
func (e *Engine) Dispatch(cmd Command, confirmDelivery bool) (string, error) {
	if !e.stateMgr.State().IsOpen() {
		return "", fmt.Errorf("%w: state %s", ErrEngineNotOpen, e.stateMgr.State())
	}

	if _, ok := e.registry.Lookup(cmd.Name()); ok {
		if err := e.registry.Validate(cmd); err != nil {
			return "", err
		}
	}

	id := cmd.ID()
	if id == "" {
		return "", fmt.Errorf("%w: command %q", ErrMissingID, cmd.Name())
	}

	e.listener.enqueue(cmd)
	e.metrics.incCmdSendCount()
	e.metrics.incCmdInflightCount()

	if e.logger.Level() == logger.DebugLevel {
		e.logger.Debug("command dispatched", "command", cmd.Name(), "id", id, "pending", e.listener.pending())
	}

	if confirmDelivery {
		if err := e.awaitDrain(); err != nil {
			return id, err
		}
	}

	return id, nil
}

// awaitDrain blocks until the outbound queue is empty, bounded by the close
// timeout.
func (e *Engine) awaitDrain() error {
	deadline := pool.GetTimer(e.cfg.closeTimeout)
	defer pool.PutTimer(deadline)

	ticker := time.NewTicker(e.cfg.drainInterval)
	defer ticker.Stop()

	for {
		if e.listener.pending() == 0 {
			return nil
		}
		select {
		case <-e.ctx.Done():
			return ErrEngineClosed
		case <-deadline.C:
			return fmt.Errorf("%w: outbound queue not drained", ErrTimeout)
		case <-ticker.C:
		}
	}
}

// AwaitResponse blocks until the listener receives a payload correlated to
// id, or the timeout elapses. A non-positive timeout uses the configured
// default. On timeout the pending correlation entry is abandoned; the
// underlying physical action may still be in flight.
//
// On receipt the payload is digested into a Response scoped to
// requestedFields. When raiseFirstFailure is set, the first resolved error in
// the response is returned alongside it; otherwise the caller inspects the
// returned Response.
//
// At most one outstanding AwaitResponse per command id: correlation is by id,
// and a second waiter after the first consumed the payload will time out.
func (e *Engine) AwaitResponse(id string, timeout time.Duration, raiseFirstFailure bool, requestedFields []string) (*Response, error) {
	if !e.stateMgr.State().IsOpen() {
		return nil, fmt.Errorf("%w: state %s", ErrEngineNotOpen, e.stateMgr.State())
	}
	if timeout <= 0 {
		timeout = e.cfg.awaitTimeout
	}

	ch, cancel := e.listener.await(id)
	defer cancel()

	timer := pool.GetTimer(timeout)
	defer pool.PutTimer(timer)

	select {
	case <-e.ctx.Done():
		return nil, ErrEngineClosed

	case <-timer.C:
		e.metrics.incTimeoutCount()
		// The correlation entry is abandoned, so the command is no longer
		// awaiting a response.
		e.metrics.decCmdInflightCount()
		e.logger.Warn("response timeout", "id", id, "timeout", timeout)
		return nil, fmt.Errorf("%w: id %s after %v", ErrTimeout, id, timeout)

	case payload := <-ch:
		if payload == nil {
			// listener dropped the waiters during shutdown
			return nil, ErrEngineClosed
		}

		e.metrics.incRspRecvCount()
		e.metrics.decCmdInflightCount()

		resp := NewResponse(payload)
		resp.Digest(requestedFields)

		if e.logger.Level() == logger.DebugLevel {
			e.logger.Debug("response received", "id", id, "status", resp.Status(), "blocks", len(resp.Blocks()))
		}

		if raiseFirstFailure {
			if err := resp.FirstError(); err != nil {
				if errors.Is(err, ErrReturnParse) {
					e.metrics.incParseErrCount()
				}
				return resp, err
			}
		}

		return resp, nil
	}
}

// createContext creates a new context for the engine, derived from the parent
// context.
func (e *Engine) createContext() {
	e.ctx, e.ctxCancel = context.WithCancel(e.pctx)
}
