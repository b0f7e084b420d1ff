// Package query derives the visible slice of a record collection: simple
// full-text filter, structured multi-criteria filter, type-aware stable
// sort, then pagination. Composition order is always filter -> sort -> page.
package query

import (
	"strings"

	"finadmin/internal/schema"
)

// Operator is one advanced-filter comparison. The valid set depends on the
// field type: text fields get the substring family, date fields on/before/after.
type Operator string

const (
	OpContains   Operator = "contains"
	OpEquals     Operator = "equals"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"

	OpOn     Operator = "on"
	OpBefore Operator = "before"
	OpAfter  Operator = "after"
)

var (
	textOperators = []Operator{OpContains, OpEquals, OpStartsWith, OpEndsWith}
	dateOperators = []Operator{OpOn, OpBefore, OpAfter}
)

// OperatorsFor returns the operator set for a field type. Non-date types all
// filter as text.
func OperatorsFor(t schema.FieldType) []Operator {
	if t == schema.Date {
		return dateOperators
	}
	return textOperators
}

// Criterion is one structured predicate: field, operator, comparison value.
// An empty value is vacuously true and never filters.
type Criterion struct {
	Field    string
	Operator Operator
	Value    string
}

// SimpleFilter keeps records where any field's string form contains the
// query, case-insensitively. An empty query is the identity.
func SimpleFilter(records []schema.Record, q string) []schema.Record {
	if q == "" {
		return records
	}
	lower := strings.ToLower(q)
	out := make([]schema.Record, 0, len(records))
	for _, rec := range records {
		for _, v := range rec {
			if strings.Contains(strings.ToLower(schema.Stringify(v)), lower) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// AdvancedFilter keeps records satisfying every criterion. An empty criteria
// list is the identity.
func AdvancedFilter(records []schema.Record, s schema.Schema, criteria []Criterion) []schema.Record {
	if len(criteria) == 0 {
		return records
	}
	out := make([]schema.Record, 0, len(records))
	for _, rec := range records {
		keep := true
		for _, c := range criteria {
			if !Matches(rec, s, c) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}
	return out
}

// Matches evaluates one criterion against one record. An unknown operator
// passes every record: a deliberate permissive default, so a stale saved
// criterion degrades to non-filtering instead of hiding the collection.
func Matches(rec schema.Record, s schema.Schema, c Criterion) bool {
	if c.Value == "" {
		return true
	}
	if s.TypeOf(c.Field) == schema.Date {
		return matchDate(rec.String(c.Field), c)
	}
	return matchText(rec.String(c.Field), c)
}

func matchText(got string, c Criterion) bool {
	lowerGot := strings.ToLower(got)
	lowerWant := strings.ToLower(c.Value)
	switch c.Operator {
	case OpContains:
		return strings.Contains(lowerGot, lowerWant)
	case OpEquals:
		return lowerGot == lowerWant
	case OpStartsWith:
		return strings.HasPrefix(lowerGot, lowerWant)
	case OpEndsWith:
		return strings.HasSuffix(lowerGot, lowerWant)
	}
	return true
}

func matchDate(got string, c Criterion) bool {
	recDate, ok1 := schema.ParseDate(got)
	qryDate, ok2 := schema.ParseDate(c.Value)
	if !ok1 || !ok2 {
		return false
	}
	// Day granularity on both operands: anything below midnight is discarded
	// before comparing.
	rd := schema.DayStart(recDate)
	qd := schema.DayStart(qryDate)
	switch c.Operator {
	case OpOn:
		return rd.Equal(qd)
	case OpBefore:
		return rd.Before(qd)
	case OpAfter:
		return rd.After(qd)
	}
	return true
}
