package gift

import (
	"context"
	"errors"

	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/modules/wallet"
	"github.com/voxroom/core/internal/pkg/errs"
	"github.com/voxroom/core/internal/pkg/idempotent"
	"github.com/voxroom/core/internal/pkg/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxSettleAttempts bounds optimistic retries when concurrent settlements
// touch the same wallet and the version check loses the race.
const maxSettleAttempts = 3

// errWalletConflict signals a lost version-check update; the whole
// transaction is retried from a fresh read.
var errWalletConflict = errors.New("wallet version conflict")

// RoomOwnerSource resolves a room's owner for the revenue split.
type RoomOwnerSource interface {
	OwnerID(roomID string) (string, error)
}

// Service is the gift transaction engine: it moves value between wallets
// exactly once per idempotency key, under concurrent retries and crashes.
type Service struct {
	db           *gorm.DB
	idem         idempotent.Store
	rooms        RoomOwnerSource
	bc           realtime.Broadcaster
	logger       *zap.Logger
	splitCfg     SplitConfig
	platformUser string
}

func NewService(db *gorm.DB, idem idempotent.Store, rooms RoomOwnerSource, bc realtime.Broadcaster, logger *zap.Logger, splitCfg SplitConfig, platformUser string) *Service {
	return &Service{
		db:           db,
		idem:         idem,
		rooms:        rooms,
		bc:           bc,
		logger:       logger,
		splitCfg:     splitCfg,
		platformUser: platformUser,
	}
}

// Catalog lists active gifts, cheapest first.
func (s *Service) Catalog() ([]models.GiftModel, error) {
	var gifts []models.GiftModel
	if err := s.db.Where("active = ?", true).Order("price ASC").Find(&gifts).Error; err != nil {
		return nil, errs.StoreUnavailable(err)
	}
	return gifts, nil
}

// SendGift settles one gift exactly once per idempotency key.
//
// Failure before commit leaves every wallet untouched and the key unused, so
// a client retry with the same key is safe. A retry after a successful commit
// reports DuplicateTransaction without repeating any mutation.
func (s *Service) SendGift(ctx context.Context, senderID string, dto SendGiftDTO) (*SendResult, error) {
	if dto.Quantity <= 0 {
		dto.Quantity = 1
	}

	// Fast path first, then the durable unique constraint. The fast path may
	// miss (expired TTL, crash before Mark); the gift_sends key never does.
	seen, err := s.idem.Seen(ctx, dto.IdempotencyKey)
	if err != nil {
		s.logger.Warn("idempotency fast path unavailable", zap.Error(err))
	} else if seen {
		return nil, errs.ErrDuplicateTransact
	}
	var existing int64
	if err := s.db.Model(&models.GiftSendModel{}).
		Where("idempotency_key = ?", dto.IdempotencyKey).
		Count(&existing).Error; err != nil {
		return nil, errs.StoreUnavailable(err)
	}
	if existing > 0 {
		return nil, errs.ErrDuplicateTransact
	}

	if dto.ReceiverID == senderID {
		return nil, errs.ErrInvalidTarget
	}

	var gift models.GiftModel
	if err := s.db.First(&gift, "id = ?", dto.GiftID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("gift")
		}
		return nil, errs.StoreUnavailable(err)
	}
	if !gift.Active {
		return nil, errs.ErrInvalidTarget
	}

	var sender, receiver models.UserModel
	if err := s.db.Select("id, name").First(&receiver, "id = ?", dto.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("receiver")
		}
		return nil, errs.StoreUnavailable(err)
	}
	if err := s.db.Select("id, name").First(&sender, "id = ?", senderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("sender")
		}
		return nil, errs.StoreUnavailable(err)
	}

	ownerID := ""
	if dto.RoomID != nil {
		ownerID, err = s.rooms.OwnerID(*dto.RoomID)
		if err != nil {
			return nil, err
		}
	}

	totalPrice := gift.Price * int64(dto.Quantity)
	sh := split(totalPrice, s.splitCfg,
		ownerID != "",
		ownerID == dto.ReceiverID,
		ownerID == senderID,
	)

	var result *SendResult
	for attempt := 0; attempt < maxSettleAttempts; attempt++ {
		result, err = s.settle(senderID, dto, totalPrice, sh, ownerID)
		if !errors.Is(err, errWalletConflict) {
			break
		}
	}
	if err != nil {
		if coded, ok := errs.As(err); ok {
			return nil, coded
		}
		if errors.Is(err, errWalletConflict) {
			return nil, errs.StoreUnavailable(err)
		}
		return nil, errs.StoreUnavailable(err)
	}

	// Post-commit work. A crash here only delays visibility: the ledger is
	// durable, the marker miss is covered by the unique key, and the push is
	// re-derivable from reads.
	if err := s.idem.Mark(ctx, dto.IdempotencyKey); err != nil {
		s.logger.Warn("idempotency mark failed", zap.String("key", dto.IdempotencyKey), zap.Error(err))
	}

	payload := map[string]interface{}{
		"giftSendId": result.GiftSendID,
		"giftId":     gift.ID,
		"giftName":   gift.Name,
		"quantity":   dto.Quantity,
		"totalPrice": totalPrice,
		"receiverId": receiver.ID,
	}
	if dto.RoomID != nil {
		s.bc.PublishRoom(realtime.NewRoomEvent(realtime.EventGift, *dto.RoomID, sender.ID, sender.Name, payload))
	}
	s.bc.SendToUser(receiver.ID, "gift_received", payload)

	return result, nil
}

// settle runs the atomic block: balance check, version-checked wallet
// updates, the GiftSend insert keyed by the idempotency key, and one ledger
// row per balance change. Any error aborts the transaction.
func (s *Service) settle(senderID string, dto SendGiftDTO, totalPrice int64, sh shares, ownerID string) (*SendResult, error) {
	var result SendResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		senderWallet, err := wallet.GetOrCreate(tx, senderID)
		if err != nil {
			return err
		}
		if senderWallet.Balance < totalPrice {
			return errs.ErrInsufficientBalance
		}

		send := models.GiftSendModel{
			IdempotencyKey: dto.IdempotencyKey,
			GiftID:         dto.GiftID,
			SenderID:       senderID,
			ReceiverID:     dto.ReceiverID,
			RoomID:         dto.RoomID,
			Quantity:       dto.Quantity,
			TotalPrice:     totalPrice,
		}
		if err := tx.Create(&send).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.ErrDuplicateTransact
			}
			return err
		}

		if err := applyChange(tx, senderWallet, -totalPrice, send.ID, models.TxKindGiftSend); err != nil {
			return err
		}

		receiverWallet, err := wallet.GetOrCreate(tx, dto.ReceiverID)
		if err != nil {
			return err
		}
		if err := applyChange(tx, receiverWallet, sh.receiver, send.ID, models.TxKindGiftReceive); err != nil {
			return err
		}

		if sh.owner > 0 {
			ownerWallet, err := wallet.GetOrCreate(tx, ownerID)
			if err != nil {
				return err
			}
			if err := applyChange(tx, ownerWallet, sh.owner, send.ID, models.TxKindOwnerShare); err != nil {
				return err
			}
		}

		if sh.platform > 0 {
			platformWallet, err := wallet.GetOrCreate(tx, s.platformUser)
			if err != nil {
				return err
			}
			if err := applyChange(tx, platformWallet, sh.platform, send.ID, models.TxKindPlatformCut); err != nil {
				return err
			}
		}

		result = SendResult{
			GiftSendID:    send.ID,
			TotalPrice:    totalPrice,
			SenderBalance: senderWallet.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// applyChange mutates one wallet through the optimistic version check and
// appends the matching ledger row. RowsAffected==0 means a concurrent
// settlement won the version race; the caller retries the whole transaction.
func applyChange(tx *gorm.DB, w *models.WalletModel, amount int64, referenceID, kind string) error {
	before := w.Balance
	after := before + amount
	if after < 0 {
		return errs.ErrInsufficientBalance
	}

	res := tx.Model(&models.WalletModel{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]interface{}{
			"balance": after,
			"version": w.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errWalletConflict
	}
	w.Balance = after
	w.Version++

	return tx.Create(&models.WalletTransactionModel{
		WalletID:      w.ID,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReferenceID:   referenceID,
		Kind:          kind,
	}).Error
}
