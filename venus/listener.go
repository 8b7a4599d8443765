package venus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/dgretton/pyhamilton-sub000/internal/queue"
	"github.com/dgretton/pyhamilton-sub000/logger"
)

// listener is the local loopback channel between the engine and the bridge
// process. The bridge polls GET requests to retrieve queued outbound commands
// and POSTs response payloads back, each correlated by the id field inside the
// body. The listener only buffers; it performs no interpretation.
type listener struct {
	cfg    *EngineConfig
	logger logger.Logger

	srv *http.Server
	ln  net.Listener

	outMu    sync.Mutex
	outbound queue.Queue[Command]

	// parked holds correlated payloads no waiter has consumed yet; waiters
	// holds registered reply channels. First response wins: a payload goes to
	// the registered waiter if one exists, and is parked otherwise.
	parked  *xsync.MapOf[string, map[string]any]
	waiters *xsync.MapOf[string, chan map[string]any]
}

func newListener(cfg *EngineConfig, l logger.Logger) *listener {
	return &listener{
		cfg:      cfg,
		logger:   l,
		outbound: queue.NewSliceQueue[Command](cfg.queueSize),
		parked:   xsync.NewMapOf[string, map[string]any](),
		waiters:  xsync.NewMapOf[string, chan map[string]any](),
	}
}

// start binds the listener socket and begins serving in the caller-provided
// task manager.
func (l *listener) start(taskMgr *TaskManager) error {
	addr := fmt.Sprintf("%s:%d", l.cfg.listenHost, l.cfg.listenPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listener bind %s: %w", addr, err)
	}
	l.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handle)
	l.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	err = taskMgr.StartOnce("listenerServe", func() {
		serveErr := l.srv.Serve(ln)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			l.logger.Error("listener serve terminated", "error", serveErr)
		}
	}, nil)
	if err != nil {
		_ = ln.Close()
		return err
	}

	l.logger.Info("listener started", "addr", ln.Addr().String())

	return nil
}

// stop shuts the listener down gracefully within the grace period, then
// forces the socket closed. Pending reply channels are dropped so that
// blocked waiters return.
func (l *listener) stop(grace time.Duration) error {
	if l.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	err := l.srv.Shutdown(ctx)
	if err != nil {
		l.logger.Warn("listener graceful shutdown elapsed, forcing close", "error", err)
		err = l.srv.Close()
	}

	l.dropAllWaiters()

	return err
}

// addr returns the bound listener address, for callers that configured an
// ephemeral port.
func (l *listener) addr() string {
	if l.ln == nil {
		return ""
	}
	return l.ln.Addr().String()
}

// enqueue stages a command for delivery to the bridge process. Commands are
// served strictly in dispatch order.
func (l *listener) enqueue(cmd Command) {
	l.outMu.Lock()
	defer l.outMu.Unlock()

	l.outbound.Enqueue(cmd)
}

// pending returns the number of staged commands not yet retrieved.
func (l *listener) pending() int {
	l.outMu.Lock()
	defer l.outMu.Unlock()

	return l.outbound.Length()
}

// await registers a reply channel for the given correlation id and returns it
// with a cancel function. If the payload already arrived and was parked, it is
// delivered on the channel immediately. A second waiter for an id whose
// payload was already consumed will never be signaled; that is the documented
// single-waiter contract.
func (l *listener) await(id string) (<-chan map[string]any, func()) {
	ch := make(chan map[string]any, 1)
	l.waiters.Store(id, ch)

	// The payload may have arrived before the waiter registered.
	if payload, ok := l.parked.LoadAndDelete(id); ok {
		if w, ok := l.waiters.LoadAndDelete(id); ok {
			w <- payload
		}
	}

	cancel := func() {
		l.waiters.Delete(id)
	}

	return ch, cancel
}

// dropAllWaiters closes all registered reply channels, unblocking any pending
// awaits with a nil payload.
func (l *listener) dropAllWaiters() {
	l.waiters.Range(func(id string, ch chan map[string]any) bool {
		l.waiters.Delete(id)
		close(ch)
		return true
	})
}

// handle serves the bridge process: GET retrieves the next outbound command,
// POST delivers a response payload.
func (l *listener) handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		l.handleGet(w)
	case http.MethodPost:
		l.handlePost(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGet writes the next queued command as JSON, or an empty object when
// the queue is idle.
func (l *listener) handleGet(w http.ResponseWriter) {
	l.outMu.Lock()
	cmd, ok := l.outbound.Dequeue()
	l.outMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_, _ = w.Write([]byte("{}"))
		return
	}

	if err := json.NewEncoder(w).Encode(cmd); err != nil {
		l.logger.Error("failed to encode outbound command", "id", cmd.ID(), "error", err)
	}
}

// handlePost decodes a response payload and correlates it by its id field.
func (l *listener) handlePost(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	id := fieldString(payload[FieldID])
	if id == "" {
		http.Error(w, "payload has no id", http.StatusBadRequest)
		return
	}

	l.deliver(id, payload)
	w.WriteHeader(http.StatusOK)
}

// deliver hands a correlated payload to its registered waiter, or parks it
// until one registers. A duplicate id overwrites the parked payload.
func (l *listener) deliver(id string, payload map[string]any) {
	if ch, ok := l.waiters.LoadAndDelete(id); ok {
		ch <- payload
		return
	}

	l.parked.Store(id, payload)
}
