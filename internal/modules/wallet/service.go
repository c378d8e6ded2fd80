package wallet

import (
	"errors"

	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/pkg/errs"
	"gorm.io/gorm"
)

// Service owns wallet reads and lazy creation. Balance mutations happen only
// inside the gift engine's transaction (or an external ledger adjustment).
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// GetByOwner loads a wallet, lazily creating an empty one so first-time users
// always see a zero balance instead of a missing row.
func (s *Service) GetByOwner(ownerID string) (*models.WalletModel, error) {
	w, err := GetOrCreate(s.db, ownerID)
	if err != nil {
		return nil, errs.StoreUnavailable(err)
	}
	return w, nil
}

// Transactions returns the ledger query for an owner's wallet, newest first.
func (s *Service) Transactions(ownerID string) (*gorm.DB, error) {
	w, err := s.GetByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	return s.db.Model(&models.WalletTransactionModel{}).
		Where("wallet_id = ?", w.ID).
		Order("created_at DESC"), nil
}

// GetOrCreate loads or creates a wallet within the given handle, which may be
// an open transaction. Creation races resolve by re-reading the winner's row.
func GetOrCreate(tx *gorm.DB, ownerID string) (*models.WalletModel, error) {
	var w models.WalletModel
	err := tx.First(&w, "owner_id = ?", ownerID).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	w = models.WalletModel{OwnerID: ownerID}
	if createErr := tx.Create(&w).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			if err := tx.First(&w, "owner_id = ?", ownerID).Error; err != nil {
				return nil, err
			}
			return &w, nil
		}
		return nil, createErr
	}
	return &w, nil
}
