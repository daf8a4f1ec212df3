package notify

import (
	"encoding/json"
	"time"
)

// ChangedMessage tells the sync worker that local rows changed and a sync
// cycle is worth running. It carries no row data; the worker reads the
// store itself.
type ChangedMessage struct {
	Entity    string    `json:"entity"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangedMessage(entity string, count int) *ChangedMessage {
	return &ChangedMessage{
		Entity:    entity,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangedMessageFromJSON creates a message from JSON bytes
func ChangedMessageFromJSON(data []byte) (*ChangedMessage, error) {
	var msg ChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
