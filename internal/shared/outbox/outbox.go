package outbox

import "time"

// Message is an outbox row written in the same transaction as the state
// change it announces. Payload holds the JSON-encoded events.Envelope.
type Message struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}
