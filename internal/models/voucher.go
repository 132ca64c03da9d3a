package models

import (
	"time"
)

// Voucher represents one redemption code in the inventory pool.
// A voucher is claimed at most once per redemption cycle: the allocation
// engine flips used=false -> true with a conditional update, and a release
// (cancellation, failure, expiry) returns it to the available pool.
type Voucher struct {
	BaseModel

	Code             string     `json:"code" gorm:"uniqueIndex;not null;size:100"`
	ProductName      string     `json:"product_name" gorm:"not null;size:100;index"`
	Amount           int64      `json:"amount" gorm:"not null"`
	DiscountedAmount *int64     `json:"discounted_amount,omitempty"`
	Image            string     `json:"image" gorm:"size:500"`
	Used             bool       `json:"used" gorm:"not null;default:false;index"`
	UsedBy           *string    `json:"used_by,omitempty" gorm:"size:255"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
}

// TableName specifies the table name
func (Voucher) TableName() string {
	return "vouchers"
}

// ProductStats aggregates inventory counts for one product.
type ProductStats struct {
	ProductName string `json:"product_name"`
	Total       int64  `json:"total"`
	Available   int64  `json:"available"`
	Used        int64  `json:"used"`
}
