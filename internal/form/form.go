// Package form holds the draft record under creation or edit and applies
// field-level updates, including the transitive reset of cascading selects.
// It never talks to the network.
package form

import (
	"fmt"
	"strings"

	"finadmin/internal/schema"
)

// RequiredFieldError reports the minimal validation policy failing: the
// first schema field must be non-empty after trimming.
type RequiredFieldError struct {
	Field string
	Label string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Label)
}

// Model is one draft record bound to its screen schema.
type Model struct {
	schema schema.Schema
	draft  schema.Record
}

// New returns an add-mode model with schema defaults: empty string per
// field, or the first resolved option's value for selects.
func New(s schema.Schema) *Model {
	return &Model{schema: s, draft: Defaults(s)}
}

// NewEdit returns an edit-mode model over a shallow copy of the record,
// with date fields normalized to their calendar-date form.
func NewEdit(s schema.Schema, rec schema.Record) *Model {
	return &Model{schema: s, draft: schema.NormalizeDates(s, rec.Clone())}
}

// Defaults builds the empty draft for a schema.
func Defaults(s schema.Schema) schema.Record {
	draft := make(schema.Record, len(s))
	for _, f := range s {
		draft[f.Name] = ""
	}
	for _, f := range s {
		if f.Type != schema.Select {
			continue
		}
		if opts := f.Options.Resolve(draft); len(opts) > 0 {
			draft[f.Name] = opts[0].Value
		}
	}
	return draft
}

// Draft exposes the current draft record.
func (m *Model) Draft() schema.Record {
	return m.draft
}

// Value returns the string form of one draft field.
func (m *Model) Value(name string) string {
	return m.draft.String(name)
}

// Options resolves a field's option list against the current draft.
func (m *Model) Options(f schema.Field) []schema.Option {
	return f.Options.Resolve(m.draft)
}

// SetField applies one field update, then resets every dependent select
// whose recomputed option list no longer offers its current value. Resets
// cascade transitively.
func (m *Model) SetField(name, value string) {
	m.draft[name] = value
	m.resetDependents(name, map[string]bool{name: true})
}

func (m *Model) resetDependents(name string, seen map[string]bool) {
	for _, dep := range m.schema.Dependents(name) {
		if seen[dep] {
			continue
		}
		f, ok := m.schema.Field(dep)
		if !ok {
			continue
		}
		cur := m.draft.String(dep)
		if cur == "" {
			continue
		}
		if schema.Contains(f.Options.Resolve(m.draft), cur) {
			continue
		}
		m.draft[dep] = ""
		seen[dep] = true
		m.resetDependents(dep, seen)
	}
}

// Validate enforces the minimal policy: the first schema field's value must
// be non-empty once trimmed.
func (m *Model) Validate() error {
	first := m.schema[0]
	if strings.TrimSpace(m.draft.String(first.Name)) == "" {
		return &RequiredFieldError{Field: first.Name, Label: first.Label}
	}
	return nil
}
