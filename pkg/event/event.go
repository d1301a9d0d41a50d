package event

import (
	"time"

	"github.com/bottlerocket-os/modota/pkg/marker"
)

// TimeFormat is the layout of every event time the agent emits.
const TimeFormat = "20060102T150405Z"

// now is replaced in tests.
var now = time.Now

// Now returns the current time formatted as an event time.
func Now() string {
	return now().UTC().Format(TimeFormat)
}

// ParseTime parses an event time in TimeFormat.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeFormat, s)
}

// Inbound is a platform event as delivered by the transport. It is consumed
// once by the dispatcher and never modified.
type Inbound struct {
	EventType  marker.EventType
	EventID    string
	ServiceID  string
	EventTime  string
	Parameters map[string]interface{}
}

// Outbound is an event sent to the platform.
type Outbound struct {
	ServiceID string
	EventType marker.EventType
	EventTime string
	// EventID correlates the event with a platform exchange, it is empty for
	// device initiated legacy events.
	EventID string
	Paras   map[string]interface{}
}

// NewOutbound creates an OTA service event stamped with the current time.
func NewOutbound(eventType marker.EventType, eventID string, paras map[string]interface{}) *Outbound {
	return &Outbound{
		ServiceID: marker.ServiceID,
		EventType: eventType,
		EventTime: Now(),
		EventID:   eventID,
		Paras:     paras,
	}
}
