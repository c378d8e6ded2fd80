package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Room event types fanned out to subscribers.
const (
	EventMessage    = "message"
	EventGift       = "gift"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventSystem     = "system"
	EventTyping     = "typing"
)

// Reasons attached to user_left events.
const (
	LeaveManual     = "manual"
	LeaveDisconnect = "disconnect"
	LeaveKicked     = "kicked"
	LeaveBanned     = "banned"
)

// RoomEvent is the immutable canonical event delivered to room subscribers.
// Durable event kinds (message, gift) are persisted by their owning service
// before publish.
type RoomEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	RoomID     string      `json:"roomId"`
	SenderID   string      `json:"senderId,omitempty"`
	SenderName string      `json:"senderName,omitempty"`
	ServerTs   time.Time   `json:"serverTs"`
	Payload    interface{} `json:"payload,omitempty"`
}

// NewRoomEvent stamps id and server timestamp on a room event.
func NewRoomEvent(eventType, roomID, senderID, senderName string, payload interface{}) RoomEvent {
	return RoomEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		ServerTs:   time.Now().UTC(),
		Payload:    payload,
	}
}

// Broadcaster is the narrow fan-out surface domain services depend on.
// The gateway hub is the concrete implementation; services never import the
// gateway so the dependency points one way only.
type Broadcaster interface {
	// PublishRoom delivers the event to every subscriber of the room, on this
	// instance synchronously and on sibling instances via pub/sub.
	PublishRoom(event RoomEvent)
	// SendToUser delivers a direct event to every live connection of the user,
	// across instances.
	SendToUser(userID, event string, data interface{})
}
