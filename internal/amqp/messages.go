package amqp

import (
	"encoding/json"
	"time"
)

// RecordChange announces one mutation of a backend collection. It carries
// just enough for an audit consumer: which collection, which record, what
// happened and when.
type RecordChange struct {
	Collection string    `json:"collection"`
	RecordID   int64     `json:"record_id"`
	Action     string    `json:"action"` // create, update or delete
	Timestamp  time.Time `json:"timestamp"`
}

func NewRecordChange(collection string, recordID int64, action string) *RecordChange {
	return &RecordChange{
		Collection: collection,
		RecordID:   recordID,
		Action:     action,
		Timestamp:  time.Now(),
	}
}

func (m *RecordChange) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangeFromJSON(data []byte) (*RecordChange, error) {
	var msg RecordChange
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
