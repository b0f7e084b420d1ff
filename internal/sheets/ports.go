// Package sheets defines the outbound port for the audit trail: somewhere
// rows can be appended, one per record change.
package sheets

import "context"

type RowAppender interface {
	AppendRow(ctx context.Context, values []any) error
}
