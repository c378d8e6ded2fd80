package models

// RoomModel is a live audio/chat room. OwnerID participates in the gift
// revenue split when gifts are sent with a room context.
type RoomModel struct {
	Base
	Name    string `json:"name"    gorm:"not null"`
	OwnerID string `json:"ownerId" gorm:"index;not null"`
	// No column default: gorm skips zero-value fields on insert when one is
	// set, which would make Active=false unpersistable.
	Active bool `json:"active" gorm:"index"`
}

func (RoomModel) TableName() string { return "rooms" }

// RoomMemberModel records membership plus per-room moderation flags.
type RoomMemberModel struct {
	Base
	RoomID string `json:"roomId" gorm:"uniqueIndex:idx_room_user;not null"`
	UserID string `json:"userId" gorm:"uniqueIndex:idx_room_user;not null"`
	Banned bool   `json:"banned" gorm:"default:false"`
	Muted  bool   `json:"muted"  gorm:"default:false"`
}

func (RoomMemberModel) TableName() string { return "room_members" }
