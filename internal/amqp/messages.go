package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// TransactionCreatedMessage announces a newly stored transaction. The worker
// loads the full row itself, so only identifiers travel on the wire.
type TransactionCreatedMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionCreatedMessage(id, userID string, version int64) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:        id,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes and sanity-checks a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.UserID == "" {
		return nil, errors.New("message missing id or user_id")
	}
	return &msg, nil
}
