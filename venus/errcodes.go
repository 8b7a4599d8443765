package venus

import (
	"errors"
	"fmt"
)

// Sentinel errors for the instrument's main error codes. Every code in
// mainErrorCodes maps to exactly one of these; StepError unwraps to the
// mapped sentinel so callers can pattern-match on failure class.
var (
	// ErrSyntax indicates a malformed command reached the instrument (code 1).
	ErrSyntax = errors.New("instrument syntax error")

	// ErrHardware indicates an instrument hardware fault (code 2).
	ErrHardware = errors.New("instrument hardware error")

	// ErrNotExecuted indicates the step was rejected before execution (code 3).
	ErrNotExecuted = errors.New("step not executed")

	// ErrClot indicates a clot was detected during aspiration (code 4).
	ErrClot = errors.New("clot detected")

	// ErrBarcode indicates a barcode could not be read or was invalid (code 5).
	ErrBarcode = errors.New("barcode error")

	// ErrInsufficientLiquid indicates not enough liquid was available (code 6).
	ErrInsufficientLiquid = errors.New("insufficient liquid")

	// ErrTipFault indicates a tip pickup or hold fault (code 7).
	ErrTipFault = errors.New("tip error")

	// ErrNoTip indicates a tip was expected on the channel but none was present (code 8).
	ErrNoTip = errors.New("no tip on channel")

	// ErrNoCarrier indicates the addressed carrier was not found (code 9).
	ErrNoCarrier = errors.New("no carrier present")

	// ErrNotCompleted indicates the step was interrupted before completion (code 10).
	ErrNotCompleted = errors.New("step not completed")

	// ErrDispense indicates a dispensation-volume fault (code 11).
	ErrDispense = errors.New("dispense error")

	// ErrDevice indicates a connected device module reported a fault (code 12).
	ErrDevice = errors.New("device error")

	// ErrUnloaded indicates the addressed resource was unloaded from the deck (code 13).
	ErrUnloaded = errors.New("resource unloaded")

	// ErrPressureLLD indicates a pressure-based liquid level detection fault (code 14).
	ErrPressureLLD = errors.New("pressure LLD error")

	// ErrCalibrate indicates the module requires calibration (code 15).
	ErrCalibrate = errors.New("calibration required")

	// ErrImaging indicates an imaging or optical verification fault (code 16).
	ErrImaging = errors.New("imaging error")
)

// mainErrorCodes is the static taxonomy mapping instrument main error codes to
// sentinel error kinds. Codes absent from the map raise ErrUnknownCode.
var mainErrorCodes = map[int]error{
	1:  ErrSyntax,
	2:  ErrHardware,
	3:  ErrNotExecuted,
	4:  ErrClot,
	5:  ErrBarcode,
	6:  ErrInsufficientLiquid,
	7:  ErrTipFault,
	8:  ErrNoTip,
	9:  ErrNoCarrier,
	10: ErrNotCompleted,
	11: ErrDispense,
	12: ErrDevice,
	13: ErrUnloaded,
	14: ErrPressureLLD,
	15: ErrCalibrate,
	16: ErrImaging,
}

// mapMainError resolves a non-zero main error code to a StepError carrying the
// reporting block. Unmapped codes resolve to a StepError that unwraps to
// ErrUnknownCode.
func mapMainError(code int, block *Block) error {
	kind, ok := mainErrorCodes[code]
	if !ok {
		return &StepError{
			Code:  code,
			Block: block,
			kind:  ErrUnknownCode,
			msg:   fmt.Sprintf("code %d", code),
		}
	}

	return &StepError{
		Code:  code,
		Block: block,
		kind:  kind,
		msg:   fmt.Sprintf("code %d", code),
	}
}
