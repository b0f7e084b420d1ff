package amqp

import (
	"testing"
	"time"
)

func TestNewRecordChange(t *testing.T) {
	change := NewRecordChange("bills", 42, "update")

	if change.Collection != "bills" {
		t.Errorf("Collection = %v, want bills", change.Collection)
	}
	if change.RecordID != 42 {
		t.Errorf("RecordID = %v, want 42", change.RecordID)
	}
	if change.Action != "update" {
		t.Errorf("Action = %v, want update", change.Action)
	}
	if change.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(change.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestRecordChange_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	change := &RecordChange{
		Collection: "members",
		RecordID:   7,
		Action:     "create",
		Timestamp:  timestamp,
	}

	jsonBytes, err := change.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := RecordChangeFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("RecordChangeFromJSON() error = %v", err)
	}

	if parsed.Collection != change.Collection {
		t.Errorf("Parsed Collection = %v, want %v", parsed.Collection, change.Collection)
	}
	if parsed.RecordID != change.RecordID {
		t.Errorf("Parsed RecordID = %v, want %v", parsed.RecordID, change.RecordID)
	}
	if parsed.Action != change.Action {
		t.Errorf("Parsed Action = %v, want %v", parsed.Action, change.Action)
	}
	if !parsed.Timestamp.Equal(change.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, change.Timestamp)
	}
}

func TestRecordChange_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"record_id": "not_a_number", "action": "create"}`)

	if _, err := RecordChangeFromJSON(invalidJSON); err == nil {
		t.Error("RecordChangeFromJSON() should fail with invalid JSON")
	}
}
