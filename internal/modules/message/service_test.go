package message

import (
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/voxroom/core/internal/database"
	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/pkg/errs"
	"github.com/voxroom/core/internal/pkg/realtime"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	room   []realtime.RoomEvent
	direct []string
}

func (b *recordingBroadcaster) PublishRoom(event realtime.RoomEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.room = append(b.room, event)
}

func (b *recordingBroadcaster) SendToUser(userID, event string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct = append(b.direct, userID+":"+event)
}

type speakGate struct{ err error }

func (g speakGate) CheckSpeak(string, string) error { return g.err }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
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

func TestSubmitPersistsAndAcks(t *testing.T) {
	db := openTestDB(t)
	bc := &recordingBroadcaster{}
	svc := NewService(db, speakGate{}, bc)

	ack, err := svc.Submit("u1", "Alice", SubmitDTO{RoomID: "r1", Text: "hello", Nonce: "n-1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.MessageID == "" || ack.Nonce != "n-1" || ack.Status != models.MessageSent {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	var msg models.MessageModel
	if err := db.First(&msg, "id = ?", ack.MessageID).Error; err != nil {
		t.Fatalf("load message: %v", err)
	}
	if msg.Status != models.MessageSent || msg.Text != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if len(bc.room) != 1 || bc.room[0].Type != realtime.EventMessage {
		t.Fatalf("expected one message event, got %+v", bc.room)
	}
}

func TestSubmitRejectedByAuthority(t *testing.T) {
	db := openTestDB(t)
	bc := &recordingBroadcaster{}

	for _, tc := range []struct {
		name string
		gate error
		want errs.Code
	}{
		{"not a member", errs.ErrNotAMember, errs.CodeNotAMember},
		{"muted", errs.ErrMuted, errs.CodeMuted},
		{"banned", errs.ErrBanned, errs.CodeBanned},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(db, speakGate{err: tc.gate}, bc)
			_, err := svc.Submit("u1", "Alice", SubmitDTO{RoomID: "r1", Text: "hi"})
			if errs.CodeOf(err) != tc.want {
				t.Fatalf("error = %v, want %s", err, tc.want)
			}
		})
	}

	var count int64
	db.Model(&models.MessageModel{}).Count(&count)
	if count != 0 {
		t.Fatalf("messages persisted = %d, want 0", count)
	}
}

func TestSubmitPrivate(t *testing.T) {
	db := openTestDB(t)
	bc := &recordingBroadcaster{}
	svc := NewService(db, speakGate{}, bc)

	receiver := models.UserModel{Username: "bob", Name: "Bob"}
	if err := db.Create(&receiver).Error; err != nil {
		t.Fatalf("create receiver: %v", err)
	}

	if _, err := svc.SubmitPrivate("u1", "Alice", SubmitPrivateDTO{ReceiverID: "u1", Text: "hi"}); errs.CodeOf(err) != errs.CodeInvalidTarget {
		t.Fatalf("self send error = %v, want INVALID_TARGET", err)
	}
	if _, err := svc.SubmitPrivate("u1", "Alice", SubmitPrivateDTO{ReceiverID: "nope", Text: "hi"}); errs.CodeOf(err) != errs.CodeNotFound {
		t.Fatalf("unknown receiver error = %v, want NOT_FOUND", err)
	}

	ack, err := svc.SubmitPrivate("u1", "Alice", SubmitPrivateDTO{ReceiverID: receiver.ID, Text: "psst", Nonce: "n-2"})
	if err != nil {
		t.Fatalf("submit private: %v", err)
	}
	if ack.Status != models.MessageSent || ack.Nonce != "n-2" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if len(bc.direct) != 1 || bc.direct[0] != receiver.ID+":private_message" {
		t.Fatalf("expected private_message push, got %v", bc.direct)
	}
}

func TestDeliveryLifecycle(t *testing.T) {
	db := openTestDB(t)
	bc := &recordingBroadcaster{}
	svc := NewService(db, speakGate{}, bc)

	ack, err := svc.Submit("sender", "Alice", SubmitDTO{RoomID: "r1", Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.MarkDelivered(ack.MessageID, "sender"); errs.CodeOf(err) != errs.CodeUnauthorized {
		t.Fatalf("self ack error = %v, want UNAUTHORIZED", err)
	}

	if err := svc.MarkDelivered(ack.MessageID, "reader"); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if err := svc.MarkRead(ack.MessageID, "reader"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	// Late or repeated acks never regress the status.
	if err := svc.MarkDelivered(ack.MessageID, "reader"); err != nil {
		t.Fatalf("late delivered ack: %v", err)
	}
	var msg models.MessageModel
	if err := db.First(&msg, "id = ?", ack.MessageID).Error; err != nil {
		t.Fatalf("load message: %v", err)
	}
	if msg.Status != models.MessageRead {
		t.Fatalf("status = %s, want read", msg.Status)
	}

	if err := svc.MarkRead("missing", "reader"); errs.CodeOf(err) != errs.CodeNotFound {
		t.Fatalf("missing message error = %v, want NOT_FOUND", err)
	}
}
