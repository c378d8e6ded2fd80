package models

// GiftModel is a catalog entry. Price is per unit in the smallest currency
// unit; inactive gifts cannot be sent.
type GiftModel struct {
	Base
	Name   string `json:"name"   gorm:"not null"`
	Icon   string `json:"icon"`
	Price  int64  `json:"price"  gorm:"not null"`
	// No column default, same reason as RoomModel.Active: an inactive gift
	// must be insertable as-is.
	Active bool `json:"active" gorm:"index"`
}

func (GiftModel) TableName() string { return "gifts" }

// GiftSendModel is the immutable ledger fact of one gift settlement. The
// unique idempotency key is the durable duplicate signal: a second insert
// with the same key fails the unique constraint and the engine reports
// DuplicateTransaction without touching any wallet.
type GiftSendModel struct {
	Base
	IdempotencyKey string  `json:"idempotencyKey" gorm:"uniqueIndex;not null"`
	GiftID         string  `json:"giftId"         gorm:"index;not null"`
	SenderID       string  `json:"senderId"       gorm:"index;not null"`
	ReceiverID     string  `json:"receiverId"     gorm:"index;not null"`
	RoomID         *string `json:"roomId"         gorm:"index"`
	Quantity       int     `json:"quantity"       gorm:"not null"`
	TotalPrice     int64   `json:"totalPrice"     gorm:"not null"`
}

func (GiftSendModel) TableName() string { return "gift_sends" }
