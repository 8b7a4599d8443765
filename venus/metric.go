package venus

import (
	"sync/atomic"
)

// EngineMetrics contains atomic metrics for a protocol engine.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type EngineMetrics struct {
	// CmdSendCount indicates the number of commands dispatched.
	CmdSendCount atomic.Uint64
	// RspRecvCount indicates the number of correlated responses consumed.
	RspRecvCount atomic.Uint64
	// TimeoutCount indicates the number of response waits that timed out.
	TimeoutCount atomic.Uint64
	// ParseErrCount indicates the number of responses that failed the
	// protocol's self-consistency checks.
	ParseErrCount atomic.Uint64
	// CmdInflightCount indicates the number of dispatched commands still
	// awaiting a response. A timed-out await abandons its correlation entry
	// and no longer counts.
	CmdInflightCount atomic.Int64
}

func (m *EngineMetrics) incCmdSendCount() {
	m.CmdSendCount.Add(1)
}

func (m *EngineMetrics) incRspRecvCount() {
	m.RspRecvCount.Add(1)
}

func (m *EngineMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *EngineMetrics) incParseErrCount() {
	m.ParseErrCount.Add(1)
}

func (m *EngineMetrics) incCmdInflightCount() {
	m.CmdInflightCount.Add(1)
}

func (m *EngineMetrics) decCmdInflightCount() {
	m.CmdInflightCount.Add(-1)
}
