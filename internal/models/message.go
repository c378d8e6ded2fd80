package models

// Message delivery states. "sending" exists only on the client; the server
// first observes a message at "sent". Delivered and read are advanced by
// recipient acknowledgements and never regress.
const (
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
	MessageFailed    = "failed"
)

// Message kinds.
const (
	MessageKindText   = "text"
	MessageKindGift   = "gift"
	MessageKindSystem = "system"
)

// MessageModel is a persisted room or private message. Nonce is the client
// correlation id echoed back so the sender can replace its optimistic copy.
type MessageModel struct {
	Base
	RoomID     *string `json:"roomId"     gorm:"index"`
	SenderID   string  `json:"senderId"   gorm:"index;not null"`
	ReceiverID *string `json:"receiverId" gorm:"index"`
	Kind       string  `json:"kind"       gorm:"default:text"`
	Text       string  `json:"text"       gorm:"type:text"`
	Status     string  `json:"status"     gorm:"default:sent;index"`
	Nonce      string  `json:"nonce"`
}

func (MessageModel) TableName() string { return "messages" }
