package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldType enumerates the primitive types a field can carry. The type drives
// form rendering, filter operator sets and sort semantics uniformly.
type FieldType string

const (
	Text   FieldType = "text"
	Number FieldType = "number"
	Date   FieldType = "date"
	Select FieldType = "select"
)

// Option is one selectable label/value pair.
type Option struct {
	Value string
	Label string
}

// Options is a tagged variant: either a static option list or a function
// deriving the list from the current draft record (cascading selects).
// Derived lists are recomputed on every Resolve call, never cached.
type Options struct {
	static []Option
	derive func(Record) []Option
}

// Static builds an option source from a fixed list.
func Static(opts ...Option) Options {
	return Options{static: opts}
}

// Values builds a static option source from raw values, value doubling as label.
func Values(values ...string) Options {
	opts := make([]Option, len(values))
	for i, v := range values {
		opts[i] = Option{Value: v, Label: v}
	}
	return Options{static: opts}
}

// Derived builds an option source computed from the draft record.
func Derived(fn func(Record) []Option) Options {
	return Options{derive: fn}
}

// IsZero reports whether no option source was configured.
func (o Options) IsZero() bool {
	return o.static == nil && o.derive == nil
}

// Resolve returns the concrete option list for the given draft. Static lists
// are returned unchanged; derived lists are recomputed against the draft.
func (o Options) Resolve(draft Record) []Option {
	if o.derive != nil {
		return o.derive(draft)
	}
	return o.static
}

// Contains reports whether value appears in the option list.
func Contains(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Field describes one data attribute: how it is labelled, keyed, typed and,
// for selects, where its options come from. DependsOn names the fields a
// derived option list reads, so edits to those fields reset this one.
type Field struct {
	Label     string
	Name      string
	Type      FieldType
	Options   Options
	DependsOn []string
}

// Schema is the ordered field list of one screen.
type Schema []Field

var (
	ErrEmptySchema   = errors.New("schema has no fields")
	ErrDuplicateName = errors.New("duplicate field name")
	ErrSelectOptions = errors.New("select field without options")
)

// Validate checks the schema invariants: at least one field, unique names,
// and an option source on every select field.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return ErrEmptySchema
	}
	seen := make(map[string]struct{}, len(s))
	for _, f := range s {
		if f.Name == "" {
			return fmt.Errorf("field %q: empty name", f.Label)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("field %q: %w", f.Name, ErrDuplicateName)
		}
		seen[f.Name] = struct{}{}
		if f.Type == Select && f.Options.IsZero() {
			return fmt.Errorf("field %q: %w", f.Name, ErrSelectOptions)
		}
	}
	return nil
}

// Field returns the schema entry with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// TypeOf returns the declared type of a field, defaulting to Text for
// unknown accessors (computed columns behave as text).
func (s Schema) TypeOf(name string) FieldType {
	if f, ok := s.Field(name); ok {
		return f.Type
	}
	return Text
}

// Dependents returns the names of fields whose option lists read the given
// field, in declaration order.
func (s Schema) Dependents(name string) []string {
	var out []string
	for _, f := range s {
		for _, dep := range f.DependsOn {
			if dep == name {
				out = append(out, f.Name)
				break
			}
		}
	}
	return out
}

// Record is one data row: field name to value. Values arrive from JSON, so
// numbers are float64 and everything else string-like. The id field is
// assigned by the backend.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the string form of a field value; nil and missing values
// become the empty string, floats drop a trailing .0.
func (r Record) String(name string) string {
	return Stringify(r[name])
}

// Stringify converts an arbitrary JSON-decoded value to its display string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses the transport forms a date value can arrive in.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DayStart truncates a time to midnight local, the granularity date
// comparisons operate at.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CalendarDate truncates an ISO-8601 value to its plain calendar-date form
// for form editing and display.
func CalendarDate(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// DisplayDate renders a date value as DD-Mon-YYYY for table cells.
// Unparseable values pass through untouched.
func DisplayDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("02-Jan-2006")
}

// NormalizeDates rewrites every date-typed field of the record to its
// calendar-date form. Applied to fetched collections and edit drafts.
func NormalizeDates(s Schema, rec Record) Record {
	for _, f := range s {
		if f.Type != Date {
			continue
		}
		if v, ok := rec[f.Name]; ok {
			rec[f.Name] = CalendarDate(Stringify(v))
		}
	}
	return rec
}
