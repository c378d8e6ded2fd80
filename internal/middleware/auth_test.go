package middleware

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/voxroom/core/internal/database"
	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/pkg/jwt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestVerifyIdentity(t *testing.T) {
	db := openTestDB(t)

	user := models.UserModel{Username: "alice", Name: "Alice", Role: models.RoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, err := jwt.Sign(user.ID, user.Role, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	ident, err := VerifyIdentity(db, "Bearer "+token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ident.ID != user.ID || ident.Name != "Alice" || ident.Role != models.RoleUser {
		t.Fatalf("identity = %+v, want alice", ident)
	}
}

func TestVerifyIdentityBanned(t *testing.T) {
	db := openTestDB(t)

	banned := models.UserModel{Username: "mallory", Name: "Mallory", Status: models.UserStatusBanned}
	if err := db.Create(&banned).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, err := jwt.Sign(banned.ID, models.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := VerifyIdentity(db, token); err == nil {
		t.Fatal("banned identity verified")
	}
}

func TestVerifyIdentityRejectsBadTokens(t *testing.T) {
	db := openTestDB(t)

	if _, err := VerifyIdentity(db, ""); err == nil {
		t.Fatal("empty token verified")
	}
	if _, err := VerifyIdentity(db, "not-a-jwt"); err == nil {
		t.Fatal("garbage token verified")
	}

	expired, err := jwt.Sign("u1", models.RoleUser, -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := VerifyIdentity(db, expired); err == nil {
		t.Fatal("expired token verified")
	}
}
