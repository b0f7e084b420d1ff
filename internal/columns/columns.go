// Package columns tracks which of a screen's declared columns are shown.
// Visibility is a subset of the declared set and never reorders it; a staged
// selection is committed or discarded atomically, with the committed set
// optionally persisted per screen route.
package columns

import (
	"sync"

	"finadmin/internal/schema"
)

// Column describes one table column. Accessor may name a raw record field
// or a computed field injected by a screen-level transform.
type Column struct {
	Header   string
	Accessor string
	Sortable bool
}

// FromSchema derives the default column set from a field list.
func FromSchema(s schema.Schema) []Column {
	cols := make([]Column, len(s))
	for i, f := range s {
		cols[i] = Column{Header: f.Label, Accessor: f.Name, Sortable: true}
	}
	return cols
}

// Model holds the possible and visible column sets for one screen. Request
// handlers read and mutate it concurrently, so every map access holds mu.
type Model struct {
	mu       sync.Mutex
	route    string
	possible []Column
	visible  map[string]bool
	staged   map[string]bool
	store    Store
}

// NewModel builds a visibility model with every column shown, then restores
// any persisted selection for the route. Store may be nil.
func NewModel(route string, possible []Column, store Store) *Model {
	m := &Model{
		route:    route,
		possible: possible,
		visible:  make(map[string]bool, len(possible)),
		store:    store,
	}
	for _, c := range possible {
		m.visible[c.Accessor] = true
	}
	if store != nil {
		if saved, ok, err := store.Load(route); err == nil && ok {
			m.setVisible(saved)
		}
	}
	return m
}

func (m *Model) setVisible(accessors []string) {
	for k := range m.visible {
		m.visible[k] = false
	}
	for _, a := range accessors {
		if _, ok := m.visible[a]; ok {
			m.visible[a] = true
		}
	}
}

// Possible returns the full declared column set, in order.
func (m *Model) Possible() []Column {
	return m.possible
}

// Visible returns the shown columns: the intersection of the declared set
// with the visible accessors, in declared order.
func (m *Model) Visible() []Column {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Column, 0, len(m.possible))
	for _, c := range m.possible {
		if m.visible[c.Accessor] {
			out = append(out, c)
		}
	}
	return out
}

// IsVisible reports the committed visibility of one accessor.
func (m *Model) IsVisible(accessor string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible[accessor]
}

// IsStaged reports the staged visibility of one accessor, falling back to
// the committed state outside a staging session.
func (m *Model) IsStaged(accessor string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staged == nil {
		return m.visible[accessor]
	}
	return m.staged[accessor]
}

// begin opens a staging session seeded from the committed selection.
// Idempotent while a session is open. Callers hold mu.
func (m *Model) begin() {
	if m.staged != nil {
		return
	}
	m.staged = make(map[string]bool, len(m.visible))
	for k, v := range m.visible {
		m.staged[k] = v
	}
}

// Begin opens a staging session seeded from the committed selection.
func (m *Model) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begin()
}

// Toggle flips one accessor in the staged selection.
func (m *Model) Toggle(accessor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begin()
	if _, ok := m.visible[accessor]; ok {
		m.staged[accessor] = !m.staged[accessor]
	}
}

// SelectAll stages every declared column as visible.
func (m *Model) SelectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begin()
	for _, c := range m.possible {
		m.staged[c.Accessor] = true
	}
}

// SelectNone stages every declared column as hidden.
func (m *Model) SelectNone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begin()
	for _, c := range m.possible {
		m.staged[c.Accessor] = false
	}
}

// SetSelection replaces the staged selection wholesale.
func (m *Model) SetSelection(accessors []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begin()
	for k := range m.staged {
		m.staged[k] = false
	}
	for _, a := range accessors {
		if _, ok := m.visible[a]; ok {
			m.staged[a] = true
		}
	}
}

// Apply commits the staged selection and persists it keyed by the screen
// route, so it survives remount. A no-op without an open session.
func (m *Model) Apply() error {
	m.mu.Lock()
	if m.staged == nil {
		m.mu.Unlock()
		return nil
	}
	m.visible = m.staged
	m.staged = nil
	accessors := m.visibleAccessors()
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Save(m.route, accessors)
}

// Cancel discards the staged selection.
func (m *Model) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged = nil
}

// visibleAccessors lists the committed visible accessors in declared order.
// Callers hold mu.
func (m *Model) visibleAccessors() []string {
	out := make([]string, 0, len(m.possible))
	for _, c := range m.possible {
		if m.visible[c.Accessor] {
			out = append(out, c.Accessor)
		}
	}
	return out
}
