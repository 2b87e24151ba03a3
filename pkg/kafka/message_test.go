package kafka

import (
	"testing"
)

func TestMessageBuilder_Build(t *testing.T) {
	msg, err := NewMessage().
		WithKey("booking-123").
		WithValue(map[string]string{"status": "approved"}).
		WithEventType("booking.approved").
		WithSource("bookings").
		Build()
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	if msg.Key != "booking-123" {
		t.Errorf("Key = %q, want booking-123", msg.Key)
	}
	if msg.GetEventType() != "booking.approved" {
		t.Errorf("event type header = %q, want booking.approved", msg.GetEventType())
	}
	if msg.GetEventID() == "" {
		t.Errorf("Build should assign an event id when none is set")
	}
	if msg.Headers[HeaderSchemaVersion] != "1" {
		t.Errorf("schema version = %q, want 1", msg.Headers[HeaderSchemaVersion])
	}

	var decoded map[string]string
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	if decoded["status"] != "approved" {
		t.Errorf("decoded payload = %v, want status=approved", decoded)
	}
}

func TestMessageBuilder_UnmarshalableValue(t *testing.T) {
	_, err := NewMessage().
		WithKey("k").
		WithValue(func() {}). // functions cannot be marshalled
		Build()
	if err == nil {
		t.Fatalf("Build should surface the marshal error")
	}
}
