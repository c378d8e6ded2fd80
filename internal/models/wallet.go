package models

// WalletModel holds a balance in the smallest currency unit. Version is the
// optimistic concurrency marker: every mutation must run through a
// version-checked update so concurrent settlements never lose a write.
type WalletModel struct {
	Base
	OwnerID string `json:"ownerId" gorm:"uniqueIndex;not null"`
	Balance int64  `json:"balance" gorm:"not null;default:0"`
	Version int64  `json:"-"       gorm:"not null;default:0"`
}

func (WalletModel) TableName() string { return "wallets" }

// Ledger entry kinds.
const (
	TxKindGiftSend    = "gift_send"
	TxKindGiftReceive = "gift_receive"
	TxKindOwnerShare  = "owner_share"
	TxKindPlatformCut = "platform_cut"
	TxKindAdjustment  = "adjustment"
)

// WalletTransactionModel is an append-only ledger row, one per balance change.
// Rows are never updated or deleted.
type WalletTransactionModel struct {
	Base
	WalletID      string `json:"walletId"      gorm:"index;not null"`
	Amount        int64  `json:"amount"        gorm:"not null"`
	BalanceBefore int64  `json:"balanceBefore" gorm:"not null"`
	BalanceAfter  int64  `json:"balanceAfter"  gorm:"not null"`
	ReferenceID   string `json:"referenceId"   gorm:"index"`
	Kind          string `json:"kind"          gorm:"index;not null"`
}

func (WalletTransactionModel) TableName() string { return "wallet_transactions" }
