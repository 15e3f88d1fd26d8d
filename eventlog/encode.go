package eventlog

import (
	"encoding/json"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// encodeTransitionEvent renders a TransitionEvent to its durable payload
// form. JSON keeps the stored row human-inspectable in the Postgres
// store and over NATS/Redis streams, at the cost of a few bytes next to
// a binary codec — an acceptable trade for an event log meant to be
// queried directly during incident response.
func encodeTransitionEvent(event fsmtype.TransitionEvent) []byte {
	b, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	return b
}

// DecodeTransitionEvent reverses encodeTransitionEvent.
func DecodeTransitionEvent(payload []byte) (fsmtype.TransitionEvent, error) {
	var event fsmtype.TransitionEvent
	err := json.Unmarshal(payload, &event)
	return event, err
}
