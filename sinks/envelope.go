package sinks

import (
	"encoding/json"
	"time"
)

// Envelope is the JSON wrapper the network sinks transport. Session ties all
// events from one sink instance (one process run) together.
type Envelope struct {
	Session string          `json:"session"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// rawPayload turns the emitted payload into a RawMessage. The manager always
// hands over valid JSON; anything else (a sink used directly with junk input)
// is wrapped as a JSON string so envelope marshaling cannot fail.
func rawPayload(payload string) json.RawMessage {
	if json.Valid([]byte(payload)) {
		return json.RawMessage(payload)
	}
	quoted, _ := json.Marshal(payload)
	return quoted
}
