package amqp

import (
	"testing"
	"time"
)

func TestItemRefreshMessageRoundTrip(t *testing.T) {
	msg := NewItemRefreshMessage(42)
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := ItemRefreshMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ItemID != 42 {
		t.Fatalf("item id = %d, want 42", got.ItemID)
	}
	if !got.Timestamp.Truncate(time.Second).Equal(msg.Timestamp.Truncate(time.Second)) {
		t.Fatalf("timestamp mismatch: %s vs %s", got.Timestamp, msg.Timestamp)
	}
}

func TestItemRefreshMessageFromJSONInvalid(t *testing.T) {
	if _, err := ItemRefreshMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
