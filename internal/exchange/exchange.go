// Package exchange converts between the grid's record collection and the
// row/column shape external encoders and import files use. Export always
// reflects the current filtered and sorted view; import routes each row to
// the create or update path by presence of the id field.
package exchange

import (
	"finadmin/internal/columns"
	"finadmin/internal/schema"
)

// Action is the persistence path an import row takes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// RowOp is one routed import row, ready to persist.
type RowOp struct {
	Action Action
	ID     string
	Record schema.Record
}

// RowResult reports the outcome of persisting one import row. Failures are
// recorded, never aborting the rest of the batch.
type RowResult struct {
	Index  int
	Action Action
	ID     string
	Err    error
}

// Headers returns the export header list: one accessor per column, in order.
func Headers(cols []columns.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Accessor
	}
	return out
}

// ExportRows produces one flat object per record keyed by accessor,
// preserving the record order handed in.
func ExportRows(records []schema.Record, cols []columns.Column) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, rec := range records {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c.Accessor] = rec[c.Accessor]
		}
		out[i] = row
	}
	return out
}

// Table flattens the export into ordered scalar rows for an encoder.
func Table(records []schema.Record, cols []columns.Column) (headers []string, rows [][]string) {
	headers = Headers(cols)
	rows = make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = rec.String(c.Accessor)
		}
		rows[i] = row
	}
	return headers, rows
}

// TemplateRow builds one empty-valued object with every export key present,
// for template downloads.
func TemplateRow(cols []columns.Column) map[string]any {
	row := make(map[string]any, len(cols))
	for _, c := range cols {
		row[c.Accessor] = ""
	}
	return row
}

// ImportRows routes raw rows to their persistence path: a non-empty id
// value means update, anything else means create. The id field itself is
// stripped from the outgoing record body.
func ImportRows(rows []map[string]any, idField string) []RowOp {
	ops := make([]RowOp, len(rows))
	for i, raw := range rows {
		rec := make(schema.Record, len(raw))
		for k, v := range raw {
			if k == idField {
				continue
			}
			rec[k] = v
		}
		id := schema.Stringify(raw[idField])
		if id != "" {
			ops[i] = RowOp{Action: ActionUpdate, ID: id, Record: rec}
		} else {
			ops[i] = RowOp{Action: ActionCreate, Record: rec}
		}
	}
	return ops
}
