package venus

import (
	"strconv"
	"time"
)

// idRange bounds command ids to a fixed 32-bit numeric range before rendering.
const idRange = 1 << 32

// NewCommandID returns a unique correlation token for a command: the current
// wall-clock nanosecond count reduced into idRange and rendered base-36.
//
// Two commands assembled within the same clock tick would collide; dispatch is
// sequential well above that resolution, so this is an accepted weak
// invariant rather than a cryptographic guarantee.
func NewCommandID() string {
	return strconv.FormatUint(uint64(time.Now().UnixNano())%idRange, 36)
}
