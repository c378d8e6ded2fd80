package room

import (
	"errors"

	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/pkg/errs"
	"gorm.io/gorm"
)

// Service is the room membership/ban/mute authority consulted by presence and
// messaging before any room-scoped operation.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Get loads a room by id.
func (s *Service) Get(id string) (*models.RoomModel, error) {
	var r models.RoomModel
	if err := s.db.First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("room")
		}
		return nil, errs.StoreUnavailable(err)
	}
	return &r, nil
}

// CheckJoin answers "may this identity enter the room": the room must be
// active and the identity a non-banned member.
func (s *Service) CheckJoin(roomID, userID string) error {
	r, err := s.Get(roomID)
	if err != nil {
		return err
	}
	if !r.Active {
		return errs.ErrRoomInactive
	}

	member, err := s.member(roomID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return errs.ErrNotAMember
	}
	if member.Banned {
		return errs.ErrBanned
	}
	return nil
}

// CheckSpeak answers "may this identity post messages in the room".
func (s *Service) CheckSpeak(roomID, userID string) error {
	if err := s.CheckJoin(roomID, userID); err != nil {
		return err
	}
	member, err := s.member(roomID, userID)
	if err != nil {
		return err
	}
	if member != nil && member.Muted {
		return errs.ErrMuted
	}
	return nil
}

// OwnerID returns the room owner for revenue splits, or NotFound when the
// room does not exist.
func (s *Service) OwnerID(roomID string) (string, error) {
	r, err := s.Get(roomID)
	if err != nil {
		return "", err
	}
	return r.OwnerID, nil
}

func (s *Service) member(roomID, userID string) (*models.RoomMemberModel, error) {
	var m models.RoomMemberModel
	err := s.db.First(&m, "room_id = ? AND user_id = ?", roomID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.StoreUnavailable(err)
	}
	return &m, nil
}
