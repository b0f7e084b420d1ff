package worker

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"finadmin/internal/amqp"
	"finadmin/internal/log"
	"finadmin/internal/schema"
	"finadmin/internal/sheets/memory"
	"finadmin/internal/storage"
)

func testWorker(t *testing.T) (*AuditWorker, *storage.RecordStore, *memory.Appender) {
	t.Helper()
	store, err := storage.NewRecordStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	sheet := memory.New()
	return NewAuditWorker(store, sheet, log.New(log.DefaultConfig())), store, sheet
}

func TestHandleRecordChangeSnapshotsDocument(t *testing.T) {
	w, store, sheet := testWorker(t)
	ctx := context.Background()

	saved, err := store.Create(ctx, "bills", schema.Record{"name": "Water", "amount": "40"})
	if err != nil {
		t.Fatal(err)
	}
	id := int64(saved["id"].(float64))

	if err := w.HandleRecordChange(ctx, amqp.NewRecordChange("bills", id, "create")); err != nil {
		t.Fatal(err)
	}

	rows := sheet.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][1] != "bills" || rows[0][3] != "create" {
		t.Fatalf("row = %v", rows[0])
	}
	snapshot, _ := rows[0][4].(string)
	if !strings.Contains(snapshot, "Water") {
		t.Fatalf("snapshot should carry the document: %q", snapshot)
	}
}

func TestHandleRecordChangeDelete(t *testing.T) {
	w, _, sheet := testWorker(t)

	if err := w.HandleRecordChange(context.Background(), amqp.NewRecordChange("bills", 42, "delete")); err != nil {
		t.Fatal(err)
	}
	rows := sheet.Rows()
	if len(rows) != 1 || rows[0][4] != "" {
		t.Fatalf("delete should audit without a snapshot: %v", rows)
	}
}

func TestHandleRecordChangeVanishedRecord(t *testing.T) {
	w, _, sheet := testWorker(t)

	// Update event for a record that no longer exists should still audit.
	if err := w.HandleRecordChange(context.Background(), amqp.NewRecordChange("bills", 7, "update")); err != nil {
		t.Fatal(err)
	}
	if len(sheet.Rows()) != 1 {
		t.Fatal("vanished record must not drop the audit row")
	}
}
