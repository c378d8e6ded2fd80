package gift

// SendGiftDTO is the send_gift request body, identical over REST and the
// gateway socket operation.
type SendGiftDTO struct {
	GiftID         string  `json:"giftId"         binding:"required"`
	ReceiverID     string  `json:"receiverId"     binding:"required"`
	RoomID         *string `json:"roomId"`
	Quantity       int     `json:"quantity"`
	IdempotencyKey string  `json:"idempotencyKey" binding:"required"`
}

// SendResult reports a committed settlement back to the sender.
type SendResult struct {
	GiftSendID    string `json:"giftSendId"`
	TotalPrice    int64  `json:"totalPrice"`
	SenderBalance int64  `json:"senderBalance"`
}

// shares is the three-way split of a gift's total price. The three fields
// always sum exactly to the total.
type shares struct {
	receiver int64
	owner    int64
	platform int64
}

// SplitConfig carries the configured revenue percentages.
type SplitConfig struct {
	ReceiverPercent int
	OwnerPercent    int
	PlatformPercent int
}

// split computes the three-way settlement. The integer rounding remainder
// folds into the receiver share so no unit is ever lost or double counted.
// Without an eligible room owner the owner share also folds into the
// receiver; when the owner is the sender it folds into the platform instead
// so a sender can never partially refund themselves.
func split(total int64, cfg SplitConfig, hasOwner, ownerIsReceiver, ownerIsSender bool) shares {
	s := shares{
		receiver: total * int64(cfg.ReceiverPercent) / 100,
		owner:    total * int64(cfg.OwnerPercent) / 100,
		platform: total * int64(cfg.PlatformPercent) / 100,
	}
	s.receiver += total - s.receiver - s.owner - s.platform

	switch {
	case !hasOwner:
		s.receiver += s.owner
		s.owner = 0
	case ownerIsSender:
		s.platform += s.owner
		s.owner = 0
	case ownerIsReceiver:
		s.receiver += s.owner
		s.owner = 0
	}
	return s
}
