package venus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgretton/pyhamilton-sub000/logger"
)

// EngineConfig represents the configuration parameters for a protocol Engine.
type EngineConfig struct {
	mu sync.RWMutex

	// listenHost is the interface the local listener binds to. The listener is
	// a loopback channel for the bridge process; it is never exposed beyond
	// the local host. Defaults to 127.0.0.1.
	listenHost string

	// listenPort is the TCP port for the local listener. Port 0 selects an
	// ephemeral port, which tests rely on. Defaults to 3221.
	listenPort int

	// bridgePath is the executable of the bridge process that relays commands
	// to the instrument's native control runtime. An empty path skips the
	// spawn entirely and runs the listener alone; tests and external bridge
	// setups use this.
	bridgePath string
	bridgeArgs []string

	// simulate switches Start to launching the instrument runtime itself,
	// visibly, instead of the headless bridge.
	simulate    bool
	runtimePath string

	// awaitTimeout is the default deadline for AwaitResponse when the caller
	// passes a non-positive timeout. Defaults to 5 minutes; physical steps are
	// slow.
	awaitTimeout time.Duration

	// queueSize is the preallocated capacity of the outbound command queue.
	// Defaults to 16.
	queueSize int

	// stopGracePeriod bounds the listener's graceful shutdown; after it
	// elapses the listener is forced closed. Defaults to 2 seconds.
	stopGracePeriod time.Duration

	// closeTimeout bounds the whole Stop sequence, including the bridge
	// process termination and task join. Defaults to 10 seconds.
	closeTimeout time.Duration

	// terminateRetries is the number of times the graceful termination signal
	// to the bridge process is retried on transient failures before falling
	// back to a hard kill. Defaults to 3.
	terminateRetries int

	// drainInterval is the interval at which Dispatch checks the outbound
	// queue while the caller waits for delivery confirmation.
	// Defaults to 10 milliseconds.
	drainInterval time.Duration

	// logger provides a logger instance for engine events and errors.
	logger logger.Logger
}

// NewEngineConfig creates an engine configuration with default values, then
// applies the provided options to customize it.
//
// Returns a pointer to the initialized EngineConfig and an error if any
// occurred while applying options.
func NewEngineConfig(opts ...EngineOption) (*EngineConfig, error) {
	cfg := &EngineConfig{
		listenHost:       "127.0.0.1",
		listenPort:       3221,
		awaitTimeout:     5 * time.Minute,
		queueSize:        16,
		stopGracePeriod:  2 * time.Second,
		closeTimeout:     10 * time.Second,
		terminateRetries: 3,
		drainInterval:    10 * time.Millisecond,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *EngineConfig) ListenHost() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.listenHost
}

func (cfg *EngineConfig) ListenPort() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.listenPort
}

func (cfg *EngineConfig) AwaitTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.awaitTimeout
}

func (cfg *EngineConfig) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

// EngineOption represents a functional option for configuring an EngineConfig.
type EngineOption interface {
	apply(*EngineConfig) error
}

type engineOptFunc struct {
	name      string
	applyFunc func(*EngineConfig) error
}

func (o *engineOptFunc) apply(cfg *EngineConfig) error { return o.applyFunc(cfg) }

func newEngineOptFunc(name string, f func(*EngineConfig) error) *engineOptFunc {
	return &engineOptFunc{name: name, applyFunc: f}
}

// WithListenAddress sets the host and port the local listener binds to.
// Port 0 selects an ephemeral port.
func WithListenAddress(host string, port int) EngineOption {
	return newEngineOptFunc("WithListenAddress", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if host == "" {
			return errors.New("listen host is empty")
		}
		if port < 0 || port > 65535 {
			return errors.New("port is out of range [0, 65535]")
		}
		cfg.listenHost = host
		cfg.listenPort = port

		return nil
	})
}

// WithBridge sets the bridge process executable and its arguments.
func WithBridge(path string, args ...string) EngineOption {
	return newEngineOptFunc("WithBridge", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if path == "" {
			return errors.New("bridge path is empty")
		}
		cfg.bridgePath = path
		cfg.bridgeArgs = args

		return nil
	})
}

// WithSimulation switches the engine to simulation mode: Start launches the
// given instrument runtime executable, visibly, instead of the headless
// bridge process.
func WithSimulation(runtimePath string) EngineOption {
	return newEngineOptFunc("WithSimulation", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if runtimePath == "" {
			return errors.New("runtime path is empty")
		}
		cfg.simulate = true
		cfg.runtimePath = runtimePath

		return nil
	})
}

// WithAwaitTimeout sets the default deadline for AwaitResponse.
// It should be between 1 second and 1 hour.
func WithAwaitTimeout(timeout time.Duration) EngineOption {
	return newEngineOptFunc("WithAwaitTimeout", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if timeout < time.Second || timeout > time.Hour {
			return fmt.Errorf("await timeout %v out of range [1s, 1h]", timeout)
		}
		cfg.awaitTimeout = timeout

		return nil
	})
}

// WithQueueSize sets the preallocated capacity of the outbound command queue.
func WithQueueSize(size int) EngineOption {
	return newEngineOptFunc("WithQueueSize", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if size <= 0 {
			return fmt.Errorf("queue size %d is not positive", size)
		}
		cfg.queueSize = size

		return nil
	})
}

// WithStopGracePeriod sets the bound on the listener's graceful shutdown.
func WithStopGracePeriod(d time.Duration) EngineOption {
	return newEngineOptFunc("WithStopGracePeriod", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if d <= 0 {
			return fmt.Errorf("stop grace period %v is not positive", d)
		}
		cfg.stopGracePeriod = d

		return nil
	})
}

// WithCloseTimeout sets the bound on the whole Stop sequence.
func WithCloseTimeout(d time.Duration) EngineOption {
	return newEngineOptFunc("WithCloseTimeout", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if d <= 0 {
			return fmt.Errorf("close timeout %v is not positive", d)
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithTerminateRetries sets the number of graceful termination attempts on the
// bridge process before a hard kill.
func WithTerminateRetries(n int) EngineOption {
	return newEngineOptFunc("WithTerminateRetries", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if n < 0 {
			return fmt.Errorf("terminate retries %d is negative", n)
		}
		cfg.terminateRetries = n

		return nil
	})
}

// WithDrainInterval sets the interval at which Dispatch checks the outbound
// queue during delivery confirmation.
func WithDrainInterval(d time.Duration) EngineOption {
	return newEngineOptFunc("WithDrainInterval", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if d <= 0 {
			return fmt.Errorf("drain interval %v is not positive", d)
		}
		cfg.drainInterval = d

		return nil
	})
}

// WithLogger sets the logger instance for the engine.
func WithLogger(l logger.Logger) EngineOption {
	return newEngineOptFunc("WithLogger", func(cfg *EngineConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
