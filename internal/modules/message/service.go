package message

import (
	"errors"

	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/pkg/errs"
	"github.com/voxroom/core/internal/pkg/realtime"
	"gorm.io/gorm"
)

// SpeakAuthority answers whether an identity may post in a room right now.
type SpeakAuthority interface {
	CheckSpeak(roomID, userID string) error
}

// Service tracks message delivery lifecycles: persist at "sent", advance to
// "delivered"/"read" on recipient acknowledgements, never regress.
type Service struct {
	db    *gorm.DB
	rooms SpeakAuthority
	bc    realtime.Broadcaster
}

func NewService(db *gorm.DB, rooms SpeakAuthority, bc realtime.Broadcaster) *Service {
	return &Service{db: db, rooms: rooms, bc: bc}
}

// Submit validates membership and mute status, persists the message and fans
// it out to the room. The returned ack carries the client nonce so the
// sender replaces its optimistic placeholder.
func (s *Service) Submit(senderID, senderName string, dto SubmitDTO) (*Ack, error) {
	if err := s.rooms.CheckSpeak(dto.RoomID, senderID); err != nil {
		return nil, err
	}

	roomID := dto.RoomID
	msg := models.MessageModel{
		RoomID:   &roomID,
		SenderID: senderID,
		Kind:     models.MessageKindText,
		Text:     dto.Text,
		Status:   models.MessageSent,
		Nonce:    dto.Nonce,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, errs.StoreUnavailable(err)
	}

	s.bc.PublishRoom(realtime.NewRoomEvent(realtime.EventMessage, roomID, senderID, senderName, map[string]interface{}{
		"messageId": msg.ID,
		"nonce":     msg.Nonce,
		"text":      msg.Text,
		"status":    msg.Status,
	}))

	return &Ack{MessageID: msg.ID, Nonce: msg.Nonce, Status: msg.Status}, nil
}

// SubmitPrivate persists a direct message and pushes it to every live
// connection of the receiver, across instances.
func (s *Service) SubmitPrivate(senderID, senderName string, dto SubmitPrivateDTO) (*Ack, error) {
	if dto.ReceiverID == senderID {
		return nil, errs.ErrInvalidTarget
	}
	var receiver models.UserModel
	if err := s.db.Select("id").First(&receiver, "id = ?", dto.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("receiver")
		}
		return nil, errs.StoreUnavailable(err)
	}

	receiverID := dto.ReceiverID
	msg := models.MessageModel{
		SenderID:   senderID,
		ReceiverID: &receiverID,
		Kind:       models.MessageKindText,
		Text:       dto.Text,
		Status:     models.MessageSent,
		Nonce:      dto.Nonce,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, errs.StoreUnavailable(err)
	}

	s.bc.SendToUser(receiverID, "private_message", map[string]interface{}{
		"messageId":  msg.ID,
		"senderId":   senderID,
		"senderName": senderName,
		"text":       msg.Text,
	})

	return &Ack{MessageID: msg.ID, Nonce: msg.Nonce, Status: msg.Status}, nil
}

// MarkDelivered advances sent -> delivered on a recipient acknowledgement.
// Later states win: acking an already read message changes nothing.
func (s *Service) MarkDelivered(messageID, byUserID string) error {
	return s.advance(messageID, byUserID, models.MessageDelivered, []string{models.MessageSent}, "message_delivered")
}

// MarkRead advances to the terminal read state.
func (s *Service) MarkRead(messageID, byUserID string) error {
	return s.advance(messageID, byUserID, models.MessageRead, []string{models.MessageSent, models.MessageDelivered}, "message_read")
}

func (s *Service) advance(messageID, byUserID, next string, from []string, notifyEvent string) error {
	var msg models.MessageModel
	if err := s.db.First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("message")
		}
		return errs.StoreUnavailable(err)
	}
	if msg.SenderID == byUserID {
		return errs.ErrUnauthorized
	}

	res := s.db.Model(&models.MessageModel{}).
		Where("id = ? AND status IN ?", messageID, from).
		Update("status", next)
	if res.Error != nil {
		return errs.StoreUnavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		// Already at or past the requested state; acks are idempotent.
		return nil
	}

	s.bc.SendToUser(msg.SenderID, notifyEvent, map[string]interface{}{
		"messageId": messageID,
		"status":    next,
	})
	return nil
}

// History returns the room message query, newest first, for pagination.
func (s *Service) History(roomID, userID string) (*gorm.DB, error) {
	if err := s.rooms.CheckSpeak(roomID, userID); err != nil {
		// Muted members may still read.
		if coded, ok := errs.As(err); !ok || coded.Code != errs.CodeMuted {
			return nil, err
		}
	}
	return s.db.Model(&models.MessageModel{}).
		Where("room_id = ?", roomID).
		Order("created_at DESC"), nil
}
