package amqp

import (
	"encoding/json"
	"time"
)

// RevenueRecomputeMessage asks the worker to recompute one user's yearly
// income aggregate. It only carries coordinates; the worker reads the
// source transactions itself, so a duplicated or stale message is harmless.
type RevenueRecomputeMessage struct {
	UserID    string    `json:"user_id"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRevenueRecomputeMessage(userID string, year int) *RevenueRecomputeMessage {
	return &RevenueRecomputeMessage{
		UserID:    userID,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RevenueRecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func RevenueRecomputeMessageFromJSON(data []byte) (*RevenueRecomputeMessage, error) {
	var msg RevenueRecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
