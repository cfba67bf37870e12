/*
Package wire defines the JSON message envelope and payload types exchanged over
websocket connections.

Every outbound frame is a Message carrying a type tag, a server-assigned unique
ID, a Unix millisecond timestamp, and a type-specific payload.
*/
package wire

import (
	"time"

	"github.com/google/uuid"
)

// MessageType tags the payload carried by a Message.
type MessageType string

const (
	// TypeRegister is sent by the client to bind its connection to a
	// registered username and refresh its position.
	TypeRegister MessageType = "REGISTER"

	// TypeSend is sent by the client to request nearest-neighbor dispatch
	// of a message from its current position.
	TypeSend MessageType = "SEND"

	// TypeDelivered is sent to the chosen recipient and carries the
	// dispatched message together with the sender's position.
	TypeDelivered MessageType = "DELIVERED"

	// TypeResult acknowledges a client REGISTER or SEND event.
	TypeResult MessageType = "RESULT"

	// TypeError reports a failed client event.
	TypeError MessageType = "ERROR"
)

// Message is the envelope for every websocket frame the server produces.
type Message struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage constructs an envelope with a fresh unique ID and the current time.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// Position mirrors geo.Coordinate on the wire.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RegisterPayload is the client payload for TypeRegister.
type RegisterPayload struct {
	Username  string  `json:"username"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SendPayload is the client payload for TypeSend.
type SendPayload struct {
	Message   string  `json:"message"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DeliveredPayload is delivered to exactly the chosen recipient.
type DeliveredPayload struct {
	Message        string   `json:"message"`
	SenderPosition Position `json:"senderPosition"`
}

// ResultPayload acknowledges a successful client event.
type ResultPayload struct {
	Status     string  `json:"status"`
	Recipient  string  `json:"recipient,omitempty"`
	DistanceKm float64 `json:"distanceKm,omitempty"`
}

// ErrorPayload reports a failed client event.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
