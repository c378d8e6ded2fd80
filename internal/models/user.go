package models

// User account statuses.
const (
	UserStatusNormal = "normal"
	UserStatusBanned = "banned"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserModel is the identity referenced by connections, presence and wallets.
// Credential issuance lives in an external service; this row only carries
// what the gateway needs to admit or reject an authenticated identity.
type UserModel struct {
	Base
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"   gorm:"default:user"`
	Status   string `json:"status" gorm:"default:normal;index"`
}

func (UserModel) TableName() string { return "users" }

// IsBanned reports whether the account is globally banned.
func (u *UserModel) IsBanned() bool { return u.Status == UserStatusBanned }
