package message

// SubmitDTO is a room message submission. Nonce is the client correlation id
// for reconciling the optimistic local copy.
type SubmitDTO struct {
	RoomID string `json:"roomId" binding:"required"`
	Text   string `json:"text"   binding:"required"`
	Nonce  string `json:"nonce"`
}

// SubmitPrivateDTO is a direct message submission.
type SubmitPrivateDTO struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Text       string `json:"text"       binding:"required"`
	Nonce      string `json:"nonce"`
}

// Ack echoes the server-assigned id plus the client nonce after persistence,
// confirming the transition into "sent".
type Ack struct {
	MessageID string `json:"messageId"`
	Nonce     string `json:"nonce,omitempty"`
	Status    string `json:"status"`
}
