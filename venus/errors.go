package venus

import "errors"

var (
	// ErrUnknownCommand indicates that a command name is not present in the template registry.
	ErrUnknownCommand = errors.New("unknown command name")

	// ErrSchemaMismatch indicates that an assembled command's key set does not match
	// its template schema. See SchemaError for the offending keys.
	ErrSchemaMismatch = errors.New("command schema mismatch")

	// ErrMissingID indicates that a command has no correlation id after validation.
	ErrMissingID = errors.New("command has no id")
)

var (
	// ErrConfigNil indicates that a nil EngineConfig was provided.
	ErrConfigNil = errors.New("engine config is nil")

	// ErrEngineNotOpen indicates that an operation requiring an open engine was
	// invoked while the engine is not in the open state.
	ErrEngineNotOpen = errors.New("engine is not open")

	// ErrEngineClosed indicates that the engine was closed while an operation was in flight.
	ErrEngineClosed = errors.New("engine closed")

	// ErrInvalidTransition is returned when an attempt is made to transition the
	// engine state to an invalid state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrTimeout indicates that no correlated response arrived within the deadline.
	// The pending correlation entry is abandoned; the physical action may still be in flight.
	ErrTimeout = errors.New("response timeout")
)

var (
	// ErrStep indicates that the instrument reported a failed step.
	// Specific error codes unwrap to the code sentinels in errcodes.go.
	ErrStep = errors.New("instrument step failed")

	// ErrReturnParse indicates that the instrument's return value failed the
	// protocol's self-consistency checks: an unparseable error block, or a
	// status that disagrees with the parsed per-channel report.
	ErrReturnParse = errors.New("instrument return not parseable")

	// ErrUnknownCode indicates that the instrument reported a main error code
	// with no entry in the code mapping.
	ErrUnknownCode = errors.New("unknown instrument error code")
)

// SchemaError describes a strict key-set validation failure for a command.
// It unwraps to ErrSchemaMismatch.
type SchemaError struct {
	Command string
	Missing []string
	Unknown []string
}

func (e *SchemaError) Error() string {
	msg := "command " + e.Command + ": schema mismatch"
	for _, k := range e.Missing {
		msg += "; missing " + k
	}
	for _, k := range e.Unknown {
		msg += "; unknown " + k
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

// StepError describes an instrument-reported step failure. Code is the main
// error code from the per-channel block that reported it, or zero when the
// instrument reported failure without a structured block. Block carries the
// channel context when one was parsed.
type StepError struct {
	Code  int
	Block *Block
	kind  error
	msg   string
}

func (e *StepError) Error() string {
	msg := e.kind.Error()
	if e.msg != "" {
		msg += ": " + e.msg
	}
	if e.Block != nil && e.Block.LabwareName != "" {
		msg += " (labware " + e.Block.LabwareName + " " + e.Block.LabwarePosition + ")"
	}
	return msg
}

// Unwrap returns the sentinel error kind mapped from the main error code,
// so callers can match on failure class with errors.Is.
func (e *StepError) Unwrap() error { return e.kind }
