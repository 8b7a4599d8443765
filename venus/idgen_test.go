package venus

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCommandID(t *testing.T) {
	require := require.New(t)

	id := NewCommandID()
	require.NotEmpty(id)

	// Ids are base-36 renderings of a 32-bit value.
	n, err := strconv.ParseUint(id, 36, 64)
	require.NoError(err)
	require.Less(n, uint64(idRange))
}
