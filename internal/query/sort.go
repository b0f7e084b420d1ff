package query

import (
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"finadmin/internal/schema"
)

// Order is the sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Toggle flips the direction.
func (o Order) Toggle() Order {
	if o == Asc {
		return Desc
	}
	return Asc
}

// SortState is the single active sort: one field, one direction.
type SortState struct {
	Field string
	Order Order
}

// collator gives locale-aware ordering for plain string comparisons.
var collator = collate.New(language.English)

// Compare orders two records on one field. Date fields compare as epoch
// milliseconds (unparseable dates sort as epoch zero); values that both
// parse as numbers compare numerically; everything else compares as
// collated strings. Missing values normalize to the empty string.
func Compare(a, b schema.Record, field string, t schema.FieldType) int {
	av := a.String(field)
	bv := b.String(field)

	if t == schema.Date {
		return cmpInt64(epochMillis(av), epochMillis(bv))
	}
	af, aerr := strconv.ParseFloat(av, 64)
	bf, berr := strconv.ParseFloat(bv, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return collator.CompareString(av, bv)
}

// Sort orders records in place by one field. The sort is stable: ties keep
// their prior relative order, so repeated application is idempotent.
func Sort(records []schema.Record, state SortState, t schema.FieldType) {
	if state.Field == "" {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		c := Compare(records[i], records[j], state.Field, t)
		if state.Order == Desc {
			return c > 0
		}
		return c < 0
	})
}

func epochMillis(s string) int64 {
	t, ok := schema.ParseDate(s)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
