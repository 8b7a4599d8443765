package venus

import (
	"fmt"
	"sort"
)

// Registry is an immutable lookup table of command templates, constructed once
// at process start and injected into the Engine and any validators.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry creates a registry populated with the standard command vocabulary.
func NewRegistry() *Registry {
	reg, err := NewRegistryWith(standardTemplates()...)
	if err != nil {
		// The standard vocabulary is defined in this file; a conflict here is a
		// programming error.
		panic(err)
	}
	return reg
}

// NewRegistryWith creates a registry from the given templates.
// It returns an error on a duplicate command name or a template that declares
// the reserved command/id fields as parameters.
func NewRegistryWith(templates ...*Template) (*Registry, error) {
	reg := &Registry{templates: make(map[string]*Template, len(templates))}
	for _, tmpl := range templates {
		if tmpl.Name == "" {
			return nil, fmt.Errorf("template with empty command name")
		}
		if _, ok := reg.templates[tmpl.Name]; ok {
			return nil, fmt.Errorf("duplicate template %q", tmpl.Name)
		}
		for _, p := range tmpl.Params {
			if p.Name == FieldCommand || p.Name == FieldID {
				return nil, fmt.Errorf("template %q declares reserved parameter %q", tmpl.Name, p.Name)
			}
		}
		reg.templates[tmpl.Name] = tmpl
	}

	return reg, nil
}

// Lookup returns the template for the given command name.
func (r *Registry) Lookup(name string) (*Template, bool) {
	tmpl, ok := r.templates[name]
	return tmpl, ok
}

// Names returns all registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Assemble produces a dispatchable command for the given name: it starts from
// the command-name field and a freshly generated id, merges in the template's
// non-absent defaults, then merges in the caller overrides (overrides win).
// The result is validated against the template schema before it is returned,
// so a malformed command is caught before it reaches the instrument.
func (r *Registry) Assemble(name string, overrides map[string]any) (Command, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	cmd := Command{
		FieldCommand: name,
		FieldID:      NewCommandID(),
	}
	for _, p := range tmpl.Params {
		if _, isAbsent := p.Default.(absentDefault); isAbsent {
			continue
		}
		cmd[p.Name] = p.Default
	}
	for k, v := range overrides {
		cmd[k] = v
	}

	if err := r.Validate(cmd); err != nil {
		return nil, err
	}

	return cmd, nil
}

// Validate checks a fully-assembled command against its template schema: the
// present key set must equal {command, id} plus the declared parameter names,
// where parameters whose default is Absent may be omitted. No silently-dropped
// or silently-added fields.
func (r *Registry) Validate(cmd Command) error {
	name := cmd.Name()
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	declared := make(map[string]bool, len(tmpl.Params))
	var missing []string
	for _, p := range tmpl.Params {
		declared[p.Name] = true
		_, isAbsent := p.Default.(absentDefault)
		if _, present := cmd[p.Name]; !present && !isAbsent {
			missing = append(missing, p.Name)
		}
	}

	var unknown []string
	for k := range cmd {
		if k == FieldCommand || k == FieldID {
			continue
		}
		if !declared[k] {
			unknown = append(unknown, k)
		}
	}

	if _, present := cmd[FieldID]; !present {
		missing = append(missing, FieldID)
	}

	if len(missing) > 0 || len(unknown) > 0 {
		sort.Strings(missing)
		sort.Strings(unknown)
		return &SchemaError{Command: name, Missing: missing, Unknown: unknown}
	}

	return nil
}
