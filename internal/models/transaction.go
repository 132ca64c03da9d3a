package models

import (
	"time"
)

// Transaction status values. The gateway reports the same set (in varying
// casings); NormalizeStatus maps inbound strings onto these.
const (
	StatusPending    = "PENDING"
	StatusSuccessful = "SUCCESSFUL"
	StatusCancelled  = "CANCELLED"
	StatusFailed     = "FAILED"
	StatusExpired    = "EXPIRED"
)

// Transaction records one purchase attempt from initiation through its
// terminal outcome. Rows are never deleted; the ledger doubles as the
// audit trail.
//
// TempID is generated locally before the gateway assigns its own ids, so it
// is the only reliable key during the redirect window. TransactionID and
// BillLinkID are filled in from the first callback that resolves the row.
type Transaction struct {
	BaseModel

	TempID           string     `json:"temp_id" gorm:"uniqueIndex;not null;size:36"`
	TransactionID    *string    `json:"transaction_id,omitempty" gorm:"uniqueIndex;size:100"`
	BillLinkID       *int64     `json:"bill_link_id,omitempty" gorm:"index"`
	Email            string     `json:"email" gorm:"not null;size:255;index"`
	Name             string     `json:"name" gorm:"size:255"`
	Amount           int64      `json:"amount" gorm:"not null"`
	DiscountedAmount *int64     `json:"discounted_amount,omitempty"`
	ProductName      string     `json:"product_name" gorm:"not null;size:100"`
	VoucherCode      *string    `json:"voucher_code,omitempty" gorm:"size:100"`
	Status           string     `json:"status" gorm:"not null;size:20;default:'PENDING';index"`
	Note             *string    `json:"note,omitempty" gorm:"size:255"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
}

// TableName specifies the table name
func (Transaction) TableName() string {
	return "transactions"
}

// IsTerminal reports whether the transaction has reached a final state.
// Callback processing against a terminal row is a no-op that returns the
// recorded outcome.
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusSuccessful, StatusCancelled, StatusFailed, StatusExpired:
		return true
	}
	return false
}
