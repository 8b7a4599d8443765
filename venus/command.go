package venus

// Wire field names present in every command.
const (
	// FieldCommand holds the command name.
	FieldCommand = "command"
	// FieldID holds the unique correlation token echoed back in the response.
	FieldID = "id"
)

// absentDefault is the sentinel marking a template parameter with no default:
// the caller may supply it, and assembly omits it otherwise.
type absentDefault struct{}

// Absent marks a template parameter that has no default value.
var Absent = absentDefault{}

// ParamSpec declares one template parameter and its default value.
// A default of Absent means the parameter is optional and omitted from
// assembled commands unless the caller overrides it.
type ParamSpec struct {
	Name    string
	Default any
}

// P is a shorthand constructor for a ParamSpec.
func P(name string, def any) ParamSpec {
	return ParamSpec{Name: name, Default: def}
}

// Template declares the full parameter schema of one command name.
type Template struct {
	Name   string
	Params []ParamSpec
}

// Command is the flat field-to-value mapping delivered to the bridge process.
// It always contains the command-name and id fields; the remaining keys are
// command-specific parameters per the template schema. A command is immutable
// once dispatched.
type Command map[string]any

// Name returns the command-name field, or "" if absent.
func (c Command) Name() string {
	name, _ := c[FieldCommand].(string)
	return name
}

// ID returns the correlation id field, or "" if absent.
func (c Command) ID() string {
	id, _ := c[FieldID].(string)
	return id
}
