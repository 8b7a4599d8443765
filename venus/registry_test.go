package venus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAssemblyCompleteness(t *testing.T) {
	require := require.New(t)
	reg := NewRegistry()

	// Defaults alone satisfy every schema in the standard vocabulary.
	for _, name := range reg.Names() {
		cmd, err := reg.Assemble(name, nil)
		require.NoError(err, "assemble %q with no overrides", name)
		require.Equal(name, cmd.Name())
		require.NotEmpty(cmd.ID())
		require.NoError(reg.Validate(cmd))
	}
}

func TestRegistryUnknownCommand(t *testing.T) {
	require := require.New(t)
	reg := NewRegistry()

	_, err := reg.Assemble("levitatePlate", nil)
	require.ErrorIs(err, ErrUnknownCommand)
}

func TestRegistryUnknownKeyFailsAssembly(t *testing.T) {
	require := require.New(t)
	reg := NewRegistry()

	for _, name := range reg.Names() {
		_, err := reg.Assemble(name, map[string]any{"notAField": 1})
		require.ErrorIs(err, ErrSchemaMismatch, "assemble %q with unregistered key", name)

		var schemaErr *SchemaError
		require.ErrorAs(err, &schemaErr)
		require.Equal([]string{"notAField"}, schemaErr.Unknown)
	}
}

func TestRegistryOverridesWin(t *testing.T) {
	require := require.New(t)
	reg := NewRegistry()

	cmd, err := reg.Assemble("channelTipPickUp", map[string]any{
		"tipSequence":     "tips_0001",
		"channelVariable": "10000000",
	})
	require.NoError(err)
	require.Equal("tips_0001", cmd["tipSequence"])
	require.Equal("10000000", cmd["channelVariable"])
	// Untouched defaults survive the merge.
	require.Equal("1", cmd["channelUse"])
}

func TestRegistryAbsentDefaultsOptional(t *testing.T) {
	require := require.New(t)
	reg := NewRegistry()

	// volumes and liquidClass default to Absent: omitted unless supplied.
	cmd, err := reg.Assemble("channelAspirate", nil)
	require.NoError(err)
	_, present := cmd["volumes"]
	require.False(present)

	cmd, err = reg.Assemble("channelAspirate", map[string]any{"volumes": "50.0"})
	require.NoError(err)
	require.Equal("50.0", cmd["volumes"])
}

func TestRegistryValidateMissingRequired(t *testing.T) {
	require := require.New(t)
	reg, err := NewRegistryWith(&Template{
		Name:   "wash",
		Params: []ParamSpec{P("cycles", "3"), P("buffer", Absent)},
	})
	require.NoError(err)

	err = reg.Validate(Command{FieldCommand: "wash", FieldID: "x1"})
	var schemaErr *SchemaError
	require.ErrorAs(err, &schemaErr)
	require.Equal([]string{"cycles"}, schemaErr.Missing)

	require.NoError(reg.Validate(Command{FieldCommand: "wash", FieldID: "x1", "cycles": "3"}))
}

func TestRegistryValidateMissingID(t *testing.T) {
	require := require.New(t)
	reg := NewRegistry()

	err := reg.Validate(Command{FieldCommand: "gripRelease", "transportMode": "0"})
	var schemaErr *SchemaError
	require.ErrorAs(err, &schemaErr)
	require.Contains(schemaErr.Missing, FieldID)
}

func TestRegistryWithRejectsDuplicates(t *testing.T) {
	require := require.New(t)

	_, err := NewRegistryWith(
		&Template{Name: "wash"},
		&Template{Name: "wash"},
	)
	require.Error(err)
}

func TestRegistryWithRejectsReservedParams(t *testing.T) {
	require := require.New(t)

	_, err := NewRegistryWith(&Template{Name: "wash", Params: []ParamSpec{P(FieldID, "")}})
	require.Error(err)

	_, err = NewRegistryWith(&Template{Name: "wash", Params: []ParamSpec{P(FieldCommand, "")}})
	require.Error(err)
}

func TestRegistryNamesSorted(t *testing.T) {
	require := require.New(t)
	reg := NewRegistry()

	names := reg.Names()
	require.NotEmpty(names)
	for i := 1; i < len(names); i++ {
		require.Less(names[i-1], names[i])
	}

	_, ok := reg.Lookup("channelAspirate")
	require.True(ok)
	_, ok = reg.Lookup("")
	require.False(ok)
}
