// Package venus implements the command/response protocol engine for a liquid
// handling instrument controlled through its vendor runtime.
//
// Application code assembles structured commands from an immutable template
// Registry, dispatches them through an Engine, and awaits typed outcomes. A
// locally-spawned bridge process relays commands to the instrument's native
// control runtime and streams results back asynchronously over a loopback
// HTTP channel; the Engine correlates each response to its originating
// command by a unique id.
//
// Command assembly is deliberately strict: the assembled key set must match
// the template schema exactly, with no silently-dropped or silently-added
// fields, because a malformed command that reaches the instrument is
// expensive and hard to diagnose.
//
// Responses carry a tri-state status and, for multi-channel steps, a
// structured per-channel error report. The Response interpreter resolves the
// two signals into a single deterministic outcome: a clean success, a typed
// instrument step error mapped from the reported main error code, or a parse
// inconsistency error when status and report disagree.
//
// Engine lifecycle:
//
//	cfg, _ := venus.NewEngineConfig(venus.WithBridge("/opt/vendor/bridge"))
//	eng, _ := venus.NewEngine(ctx, venus.NewRegistry(), cfg)
//	if err := eng.Start(); err != nil { ... }
//	defer eng.Stop()
//
//	cmd, _ := eng.Registry().Assemble("channelTipPickUp", map[string]any{
//		"tipSequence": "tips_0",
//	})
//	id, _ := eng.Dispatch(cmd, false)
//	resp, err := eng.AwaitResponse(id, 0, true, nil)
package venus
