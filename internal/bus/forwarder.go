package bus

import (
	"encoding/json"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/stream"
)

// Forwarder bridges intents received from the bus into the local connection
// registry. Intents that originated on this instance are skipped: their
// recipients were already served by the direct local send the dispatcher
// performs before publishing.
func Forwarder(registry *stream.Registry) Handler {
	return func(intent DeliveryIntent) {
		if intent.Origin == registry.InstanceID() {
			return
		}
		if intent.Broadcast {
			registry.Broadcast(intent.StreamEvent, json.RawMessage(intent.Payload))
			return
		}
		registry.SendToUser(intent.TargetUserID, intent.StreamEvent, json.RawMessage(intent.Payload))
	}
}
