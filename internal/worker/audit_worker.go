// Package worker turns record-change events into audit rows. Each change is
// enriched with the record's current document (when it still exists) and
// appended to the configured sheet.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finadmin/internal/amqp"
	"finadmin/internal/log"
	"finadmin/internal/schema"
	"finadmin/internal/sheets"
	"finadmin/internal/storage"
)

type AuditWorker struct {
	store  *storage.RecordStore
	sheet  sheets.RowAppender
	logger *log.Logger
}

func NewAuditWorker(store *storage.RecordStore, sheet sheets.RowAppender, logger *log.Logger) *AuditWorker {
	return &AuditWorker{
		store:  store,
		sheet:  sheet,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRecordChange appends one audit row for a change event. Deleted
// records audit without a document snapshot.
func (w *AuditWorker) HandleRecordChange(ctx context.Context, change *amqp.RecordChange) error {
	snapshot := ""
	if change.Action != "delete" {
		record, err := w.store.Get(ctx, change.Collection, change.RecordID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// The record may already be gone by the time we process the
			// event; audit the change without its document.
			w.logger.WarnContext(ctx, "record vanished before audit",
				log.FieldCollection, change.Collection,
				log.FieldRecordID, fmt.Sprintf("%d", change.RecordID))
		case err != nil:
			return fmt.Errorf("load record for audit: %w", err)
		default:
			snapshot = summarize(record)
		}
	}

	row := []any{
		change.Timestamp.Format(time.RFC3339),
		change.Collection,
		change.RecordID,
		change.Action,
		snapshot,
	}
	if err := w.sheet.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}

	w.logger.InfoContext(ctx, "audited record change",
		log.FieldCollection, change.Collection,
		log.FieldRecordID, fmt.Sprintf("%d", change.RecordID),
		log.FieldAction, change.Action)
	return nil
}

func summarize(record schema.Record) string {
	doc := record.Clone()
	delete(doc, "id")
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(data)
}
