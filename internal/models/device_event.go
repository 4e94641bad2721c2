package models

import "time"

// Event types written to the journal.
const (
	EventHeater    = "HEATER"
	EventReserve   = "RESERVE"
	EventRelease   = "RELEASE"
	EventStatus    = "STATUS"
	EventStop      = "STOP"
	EventRejected  = "REJECTED"
	EventMalformed = "MALFORMED"
	EventUnknown   = "UNKNOWN"
)

// DeviceEvent is a single journal entry describing one processed datagram.
type DeviceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Sender      string    `json:"sender"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
