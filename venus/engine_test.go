package venus

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startTestEngine brings up an engine on an ephemeral loopback port with no
// bridge process, so tests play the bridge's role over plain HTTP.
func startTestEngine(t *testing.T, opts ...EngineOption) (*Engine, string) {
	t.Helper()

	opts = append([]EngineOption{WithListenAddress("127.0.0.1", 0)}, opts...)
	cfg, err := NewEngineConfig(opts...)
	require.NoError(t, err)

	engine, err := NewEngine(context.Background(), nil, cfg)
	require.NoError(t, err)
	require.NoError(t, engine.Start())
	t.Cleanup(func() { _ = engine.Stop() })

	return engine, "http://" + engine.Addr()
}

// bridgeGet plays the bridge's poll: fetch the next outbound command.
func bridgeGet(t *testing.T, url string) map[string]any {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	return payload
}

// bridgePost plays the bridge's response delivery.
func bridgePost(t *testing.T, url string, payload map[string]any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp
}

func TestEngineLifecycle(t *testing.T) {
	require := require.New(t)
	engine, _ := startTestEngine(t)

	require.Equal(OpenState, engine.State())
	// Start is idempotent while open.
	require.NoError(engine.Start())

	require.NoError(engine.Stop())
	require.Equal(ClosedState, engine.State())
	// Stop is a no-op while closed.
	require.NoError(engine.Stop())
}

func TestEngineNotOpen(t *testing.T) {
	require := require.New(t)

	cfg, err := NewEngineConfig(WithListenAddress("127.0.0.1", 0))
	require.NoError(err)
	engine, err := NewEngine(context.Background(), nil, cfg)
	require.NoError(err)

	cmd, err := engine.Registry().Assemble("initialize", nil)
	require.NoError(err)

	_, err = engine.Dispatch(cmd, false)
	require.ErrorIs(err, ErrEngineNotOpen)

	_, err = engine.AwaitResponse("x1", time.Second, false, nil)
	require.ErrorIs(err, ErrEngineNotOpen)
}

func TestEngineNilConfig(t *testing.T) {
	require := require.New(t)

	_, err := NewEngine(context.Background(), nil, nil)
	require.ErrorIs(err, ErrConfigNil)
}

func TestEngineDispatchAndPoll(t *testing.T) {
	require := require.New(t)
	engine, url := startTestEngine(t)

	first, err := engine.Registry().Assemble("initialize", nil)
	require.NoError(err)
	second, err := engine.Registry().Assemble("gripRelease", nil)
	require.NoError(err)

	_, err = engine.Dispatch(first, false)
	require.NoError(err)
	_, err = engine.Dispatch(second, false)
	require.NoError(err)

	// Commands come out in dispatch order.
	got := bridgeGet(t, url)
	require.Equal("initialize", got[FieldCommand])
	require.Equal(first.ID(), got[FieldID])

	got = bridgeGet(t, url)
	require.Equal("gripRelease", got[FieldCommand])

	// An idle queue serves an empty object.
	require.Empty(bridgeGet(t, url))

	require.Equal(uint64(2), engine.Metrics().CmdSendCount.Load())
}

func TestEngineDispatchValidation(t *testing.T) {
	require := require.New(t)
	engine, _ := startTestEngine(t)

	// Registered names are validated against their template.
	_, err := engine.Dispatch(Command{FieldCommand: "initialize", FieldID: "x1", "bogus": 1}, false)
	require.ErrorIs(err, ErrSchemaMismatch)

	// Unregistered names pass through as-is but still need an id.
	_, err = engine.Dispatch(Command{FieldCommand: "vendorSpecial"}, false)
	require.ErrorIs(err, ErrMissingID)

	id, err := engine.Dispatch(Command{FieldCommand: "vendorSpecial", FieldID: "x2"}, false)
	require.NoError(err)
	require.Equal("x2", id)
}

func TestEngineDispatchConfirmDelivery(t *testing.T) {
	require := require.New(t)
	engine, url := startTestEngine(t)

	cmd, err := engine.Registry().Assemble("initialize", nil)
	require.NoError(err)

	done := make(chan error, 1)
	go func() {
		_, dispatchErr := engine.Dispatch(cmd, true)
		done <- dispatchErr
	}()

	// Dispatch stays blocked until the bridge drains the queue.
	select {
	case <-done:
		t.Fatal("dispatch returned before the queue drained")
	case <-time.After(50 * time.Millisecond):
	}

	bridgeGet(t, url)

	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("dispatch did not observe the drained queue")
	}
}

func TestEngineAwaitResponse(t *testing.T) {
	require := require.New(t)
	engine, url := startTestEngine(t)

	id, err := engine.Dispatch(Command{FieldCommand: "vendorSpecial", FieldID: "rsp1"}, false)
	require.NoError(err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		bridgePost(t, url, map[string]any{FieldID: id, FieldStatus: "1"})
	}()

	resp, err := engine.AwaitResponse(id, 2*time.Second, true, nil)
	require.NoError(err)
	require.Equal(StatusSuccess, resp.Status())
	require.Equal(uint64(1), engine.Metrics().RspRecvCount.Load())
	require.Equal(int64(0), engine.Metrics().CmdInflightCount.Load())
}

func TestEngineAwaitParkedResponse(t *testing.T) {
	require := require.New(t)
	engine, url := startTestEngine(t)

	// The response arrives before anyone awaits it; first response wins and
	// is parked until a waiter registers.
	post := bridgePost(t, url, map[string]any{FieldID: "early1", FieldStatus: "0[01,02,00,0,,PlateA,A1"})
	require.Equal(http.StatusOK, post.StatusCode)

	resp, err := engine.AwaitResponse("early1", time.Second, true, nil)
	require.ErrorIs(err, ErrHardware)
	require.Equal(StatusFailed, resp.Status())
}

func TestEngineAwaitRaiseDisabled(t *testing.T) {
	require := require.New(t)
	engine, url := startTestEngine(t)

	bridgePost(t, url, map[string]any{FieldID: "insp1", FieldStatus: "0"})

	// With raising disabled the caller inspects the response instead.
	resp, err := engine.AwaitResponse("insp1", time.Second, false, nil)
	require.NoError(err)
	require.Equal(StatusFailed, resp.Status())
	require.ErrorIs(resp.FirstError(), ErrStep)
}

func TestEngineAwaitTimeout(t *testing.T) {
	require := require.New(t)
	engine, _ := startTestEngine(t)

	id, err := engine.Dispatch(Command{FieldCommand: "vendorSpecial", FieldID: "never"}, false)
	require.NoError(err)
	require.Equal(int64(1), engine.Metrics().CmdInflightCount.Load())

	start := time.Now()
	_, err = engine.AwaitResponse(id, 50*time.Millisecond, false, nil)
	require.ErrorIs(err, ErrTimeout)
	require.GreaterOrEqual(time.Since(start), 50*time.Millisecond)
	require.Equal(uint64(1), engine.Metrics().TimeoutCount.Load())

	// The abandoned correlation entry no longer counts as in flight.
	require.Equal(int64(0), engine.Metrics().CmdInflightCount.Load())
}

func TestEnginePostValidation(t *testing.T) {
	require := require.New(t)
	_, url := startTestEngine(t)

	// A payload without an id cannot be correlated.
	resp := bridgePost(t, url, map[string]any{FieldStatus: "1"})
	require.Equal(http.StatusBadRequest, resp.StatusCode)

	malformed, err := http.Post(url, "application/json", bytes.NewReader([]byte("not json")))
	require.NoError(err)
	malformed.Body.Close()
	require.Equal(http.StatusBadRequest, malformed.StatusCode)

	del, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(err)
	rejected, err := http.DefaultClient.Do(del)
	require.NoError(err)
	rejected.Body.Close()
	require.Equal(http.StatusMethodNotAllowed, rejected.StatusCode)
}

func TestEngineStopUnblocksAwait(t *testing.T) {
	require := require.New(t)
	engine, _ := startTestEngine(t, WithStopGracePeriod(200*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := engine.AwaitResponse("orphan", 10*time.Second, false, nil)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(engine.Stop())

	select {
	case err := <-done:
		require.ErrorIs(err, ErrEngineClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("await did not unblock on engine stop")
	}
}

func TestEngineRestart(t *testing.T) {
	require := require.New(t)
	engine, _ := startTestEngine(t)

	require.NoError(engine.Stop())
	require.NoError(engine.Start())
	require.Equal(OpenState, engine.State())

	url := "http://" + engine.Addr()
	bridgePost(t, url, map[string]any{FieldID: "again1", FieldStatus: "1"})
	resp, err := engine.AwaitResponse("again1", time.Second, true, nil)
	require.NoError(err)
	require.Equal(StatusSuccess, resp.Status())
}
