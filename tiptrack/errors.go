package tiptrack

import "errors"

var (
	// ErrInsufficient indicates an allocation request for more slots than are
	// currently available.
	ErrInsufficient = errors.New("insufficient resources")
	// ErrNoRackAvailable indicates no managed rack has every slot available.
	ErrNoRackAvailable = errors.New("no fully available rack")
	// ErrForeignRack indicates a restore request named a rack this tracker
	// does not manage.
	ErrForeignRack = errors.New("rack not managed by this tracker")
	// ErrPositionOutOfRange indicates a restore request named a position that
	// does not exist on the rack.
	ErrPositionOutOfRange = errors.New("position out of range")
	// ErrAlreadyAvailable indicates a restore request for a slot that is
	// already available.
	ErrAlreadyAvailable = errors.New("slot already available")
)
