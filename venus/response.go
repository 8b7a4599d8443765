package venus

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire field names on the response side.
const (
	// FieldStatus is the overall result field. The instrument overloads it: a
	// single character is a plain boolean, a multi-character value is the
	// prefix of a structured per-channel report.
	FieldStatus = "step-return1"

	// FieldModuleID names the reporting device module, when present.
	FieldModuleID = "module-id"
)

// Status is the tri-state overall result of a step.
type Status int

const (
	// StatusUnknown indicates the response carried no interpretable status field.
	StatusUnknown Status = iota
	// StatusSuccess indicates the step completed without a reported error.
	StatusSuccess
	// StatusFailed indicates the instrument reported failure.
	StatusFailed
)

// String returns string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Block is one structured per-channel segment of a multi-channel response.
type Block struct {
	Index           int
	MainError       int
	SlaveError      int
	RecoveryButton  string
	StepData        string
	LabwareName     string
	LabwarePosition string
}

// Response is a raw correlated payload plus attributes computed once by
// Digest: overall status, requested field values, the reporting module id,
// and the parsed per-channel error blocks. Read-only after Digest.
type Response struct {
	raw         map[string]any
	status      Status
	fields      []any
	moduleID    string
	blocks      []Block
	hadSegments bool
	unparseable bool
	digested    bool
}

// NewResponse wraps a raw correlated payload. Call Digest before reading the
// derived attributes.
func NewResponse(raw map[string]any) *Response {
	return &Response{raw: raw}
}

// Raw returns the raw field-to-value payload.
func (r *Response) Raw() map[string]any { return r.raw }

// Status returns the overall result of the step.
func (r *Response) Status() Status { return r.status }

// Fields returns the values of the requested fields, in request order.
// Fields absent from the payload yield nil entries.
func (r *Response) Fields() []any { return r.fields }

// ModuleID returns the reporting device module identifier, or "" if none.
func (r *Response) ModuleID() string { return r.moduleID }

// Blocks returns the parsed per-channel error blocks, in report order.
func (r *Response) Blocks() []Block { return r.blocks }

// Unparseable reports whether the status field contained bracketed segments
// of which none could be parsed.
func (r *Response) Unparseable() bool { return r.unparseable }

// Digest computes the derived attributes from the raw payload. It runs once;
// repeated calls are no-ops.
//
// The status field is interpreted as follows: absent means unknown; a single
// character means plain success ("1") or failure (anything else); a
// multi-character value with bracketed segments is a structured per-channel
// report, and the parsed blocks decide the overall status (all main error
// codes zero means success); a multi-character value without segments falls
// back to its leading digit, where "0" means failure. Any other shape is
// unknown.
func (r *Response) Digest(requestedFields []string) {
	if r.digested {
		return
	}
	r.digested = true

	r.fields = make([]any, len(requestedFields))
	for i, name := range requestedFields {
		r.fields[i] = r.raw[name]
	}

	if v, ok := r.raw[FieldModuleID]; ok {
		r.moduleID = fieldString(v)
	}

	v, ok := r.raw[FieldStatus]
	if !ok {
		r.status = StatusUnknown
		return
	}

	s := fieldString(v)
	if len(s) == 1 {
		if s == "1" {
			r.status = StatusSuccess
		} else {
			r.status = StatusFailed
		}
		return
	}

	if !strings.Contains(s, "[") {
		// Multi-character without a structured report: the leading digit still
		// carries the global outcome, and a reported failure must not be
		// swallowed. Anything not failure-shaped stays unknown.
		if strings.HasPrefix(s, "0") {
			r.status = StatusFailed
		} else {
			r.status = StatusUnknown
		}
		return
	}

	r.hadSegments = true
	segments := strings.Split(s, "[")
	prefix, segments := segments[0], segments[1:]
	for _, seg := range segments {
		block, ok := parseBlock(seg)
		if !ok {
			continue
		}
		r.blocks = append(r.blocks, block)
	}

	if len(r.blocks) == 0 {
		r.unparseable = true
		// Fall back to the global prefix digit for the status.
		if strings.HasPrefix(prefix, "1") {
			r.status = StatusSuccess
		} else {
			r.status = StatusFailed
		}
		return
	}

	// The per-channel report is authoritative: the global prefix digit and the
	// block codes can disagree, and the blocks carry the actual outcome.
	r.status = StatusSuccess
	for i := range r.blocks {
		if r.blocks[i].MainError != 0 {
			r.status = StatusFailed
			break
		}
	}
}

// FirstError resolves the response to its first mapped error, or nil for a
// clean success. Resolution is ordered and deterministic: the status field and
// the structured report can disagree, and guessing wrong could mask a real
// hardware fault, so inconsistencies surface as ErrReturnParse instead of
// being coerced either way.
func (r *Response) FirstError() error {
	if !r.hadSegments {
		switch r.status {
		case StatusFailed:
			return &StepError{kind: ErrStep, msg: "no error code given"}
		default:
			return nil
		}
	}

	if r.unparseable {
		return fmt.Errorf("%w: no parseable error block", ErrReturnParse)
	}

	var firstCode int
	var firstBlock *Block
	for i := range r.blocks {
		if r.blocks[i].MainError != 0 {
			firstCode = r.blocks[i].MainError
			firstBlock = &r.blocks[i]
			break
		}
	}

	if firstCode != 0 {
		if r.status == StatusSuccess {
			// Reported success while also reporting an error code.
			return fmt.Errorf("%w: error code %d with success status", ErrReturnParse, firstCode)
		}
		return mapMainError(firstCode, firstBlock)
	}

	if r.status == StatusFailed {
		// Failed status without a block-level code is a parser inconsistency,
		// not a clean success.
		return fmt.Errorf("%w: no error code found", ErrReturnParse)
	}

	return nil
}

// parseBlock parses one bracket-delimited segment into a Block. The segment
// splits on commas into up to 7 ordered sub-fields: numeric index, main error,
// slave error, recovery button id, free-form step data, labware name, labware
// position. A segment that does not fit this shape yields no block.
func parseBlock(seg string) (Block, bool) {
	seg = strings.TrimSuffix(strings.TrimSpace(seg), "]")
	parts := strings.Split(seg, ",")
	if len(parts) < 2 || len(parts) > 7 {
		return Block{}, false
	}

	var block Block
	var err error
	block.Index, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Block{}, false
	}
	block.MainError, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Block{}, false
	}
	if len(parts) > 2 {
		block.SlaveError, err = strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return Block{}, false
		}
	}
	if len(parts) > 3 {
		block.RecoveryButton = strings.TrimSpace(parts[3])
	}
	if len(parts) > 4 {
		block.StepData = parts[4]
	}
	if len(parts) > 5 {
		block.LabwareName = strings.TrimSpace(parts[5])
	}
	if len(parts) > 6 {
		block.LabwarePosition = strings.TrimSpace(parts[6])
	}

	return block, true
}

// fieldString renders a raw payload value as a string. JSON numbers decode as
// float64; integral values render without a fraction so that a numeric 1
// equals the textual "1".
func fieldString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
