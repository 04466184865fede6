package bus

import (
	"github.com/vmihailenco/msgpack/v5"
)

// DeliveryIntent is the transient message that propagates a delivery to
// every instance. It is never persisted; semantics are at-least-once, and
// clients dedupe on the notification id.
type DeliveryIntent struct {
	EventID        string `msgpack:"event_id"`
	NotificationID string `msgpack:"notification_id,omitempty"`
	TargetUserID   string `msgpack:"target_user_id,omitempty"`
	Broadcast      bool   `msgpack:"broadcast"`
	EventType      string `msgpack:"event_type"`
	StreamEvent    string `msgpack:"stream_event"`
	Title          string `msgpack:"title,omitempty"`
	Body           string `msgpack:"body,omitempty"`
	Payload        []byte `msgpack:"payload"`
	Priority       int    `msgpack:"priority"`
	Origin         string `msgpack:"origin"`
}

// Encode serializes an intent for the wire.
func (i DeliveryIntent) Encode() ([]byte, error) {
	return msgpack.Marshal(i)
}

// DecodeIntent deserializes a wire message back into an intent.
func DecodeIntent(data []byte) (DeliveryIntent, error) {
	var intent DeliveryIntent
	err := msgpack.Unmarshal(data, &intent)
	return intent, err
}
