package amqp

import (
	"encoding/json"
	"time"
)

// Mirror event actions.
const (
	ActionUpsert        = "upsert"
	ActionRemove        = "remove"
	ActionRemoveProfile = "remove_profile"
)

// BookingEventMessage is a lightweight mirror notification. It carries only
// identifiers; the worker fetches the current booking state from the
// snapshot store before mirroring.
type BookingEventMessage struct {
	Action    string    `json:"action"`
	Profile   string    `json:"profile"`
	BookingID string    `json:"booking_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBookingUpsertMessage(profile, bookingID string) *BookingEventMessage {
	return &BookingEventMessage{
		Action:    ActionUpsert,
		Profile:   profile,
		BookingID: bookingID,
		Timestamp: time.Now(),
	}
}

func NewBookingRemoveMessage(profile, bookingID string) *BookingEventMessage {
	return &BookingEventMessage{
		Action:    ActionRemove,
		Profile:   profile,
		BookingID: bookingID,
		Timestamp: time.Now(),
	}
}

func NewProfileRemoveMessage(profile string) *BookingEventMessage {
	return &BookingEventMessage{
		Action:    ActionRemoveProfile,
		Profile:   profile,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BookingEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BookingEventMessageFromJSON creates a message from JSON bytes
func BookingEventMessageFromJSON(data []byte) (*BookingEventMessage, error) {
	var msg BookingEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
