package venus

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/dgretton/pyhamilton-sub000/logger"
)

// bridgeRunner owns the bridge process: the locally-spawned process that
// speaks the instrument vendor's native protocol and talks to the listener
// over the loopback channel. In simulation mode the instrument's own runtime
// is launched, visibly, in its place.
type bridgeRunner struct {
	cfg     *EngineConfig
	logger  logger.Logger
	metrics *EngineMetrics

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func newBridgeRunner(cfg *EngineConfig, l logger.Logger, metrics *EngineMetrics) *bridgeRunner {
	return &bridgeRunner{cfg: cfg, logger: l, metrics: metrics}
}

// start spawns the bridge process (or the simulation runtime). A configuration
// without a bridge path runs the listener alone; external bridge setups and
// tests use that.
func (b *bridgeRunner) start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cmd != nil {
		return nil // already running
	}

	path := b.cfg.bridgePath
	args := b.cfg.bridgeArgs
	if b.cfg.simulate {
		path = b.cfg.runtimePath
		args = nil
	}
	if path == "" {
		b.logger.Info("no bridge process configured, listener only")
		return nil
	}

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start bridge process %s: %w", path, err)
	}

	b.cmd = cmd
	b.done = make(chan struct{})
	b.logger.Info("bridge process started", "path", path, "pid", cmd.Process.Pid, "simulate", b.cfg.simulate)

	done := b.done
	go func() {
		err := cmd.Wait()
		if err != nil {
			b.logger.Warn("bridge process exited", "error", err)
		} else {
			b.logger.Info("bridge process exited")
		}
		close(done)
	}()

	return nil
}

// stop terminates the bridge process: a graceful termination signal, retried a
// bounded number of times on transient failures, then a hard kill as a
// best-effort fallback. It waits up to the close timeout for the process to
// exit.
func (b *bridgeRunner) stop() error {
	b.mu.Lock()
	cmd := b.cmd
	done := b.done
	b.cmd = nil
	b.done = nil
	b.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	select {
	case <-done:
		return nil // already exited
	default:
	}

	var err error
	for attempt := 0; attempt <= b.cfg.terminateRetries; attempt++ {
		err = cmd.Process.Signal(syscall.SIGTERM)
		if err == nil {
			break
		}
		b.logger.Warn("bridge termination signal failed", "attempt", attempt, "error", err)
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		// Best effort from here on.
		if killErr := cmd.Process.Kill(); killErr != nil {
			b.logger.Error("bridge process kill failed", "error", killErr)
		}
	}

	select {
	case <-done:
	case <-time.After(b.cfg.closeTimeout):
		b.logger.Warn("bridge process did not exit in time, killing", "timeout", b.cfg.closeTimeout)
		_ = cmd.Process.Kill()
		<-done
	}

	return nil
}

// running reports whether a bridge process is currently attached.
func (b *bridgeRunner) running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cmd != nil
}
