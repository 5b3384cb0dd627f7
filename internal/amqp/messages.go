package amqp

import (
	"encoding/json"
	"time"
)

// ItemRefreshMessage asks the worker to refresh one item from its source
// shop. Only the ID travels; the worker loads the item from storage.
type ItemRefreshMessage struct {
	ItemID    int64     `json:"item_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewItemRefreshMessage(itemID int64) *ItemRefreshMessage {
	return &ItemRefreshMessage{
		ItemID:    itemID,
		Timestamp: time.Now(),
	}
}

func (m *ItemRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ItemRefreshMessageFromJSON(data []byte) (*ItemRefreshMessage, error) {
	var msg ItemRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
