package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductType is what a TON invoice buys.
type ProductType string

const (
	ProductSubscription ProductType = "subscription"
	ProductCourse       ProductType = "course"
)

// InvoiceStatus is the payment lifecycle. Expired invoices are kept for audit.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusConfirmed InvoiceStatus = "confirmed"
	InvoiceStatusExpired   InvoiceStatus = "expired"
)

// Invoice is a pending TON payment. Payload is the opaque comment the payer
// must attach to the on-chain transfer; the payment watcher matches on it.
type Invoice struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	UserID     string          `gorm:"index;not null" json:"user_id"`
	Product    ProductType     `gorm:"not null" json:"product"`
	ProductRef string          `gorm:"not null" json:"product_ref"` // plan or course code
	AmountTON  decimal.Decimal `gorm:"type:decimal(20,9);not null" json:"amount_ton"`
	Payload    string          `gorm:"uniqueIndex;not null" json:"payload"`
	Status     InvoiceStatus   `gorm:"not null;default:'pending';index" json:"status"`

	TxHash      *string    `json:"tx_hash,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`

	Timestamps
}

// Course is a purchasable catalog entry.
type Course struct {
	ID       string          `gorm:"primaryKey;size:36" json:"id"`
	Code     string          `gorm:"uniqueIndex;not null" json:"code"`
	Title    string          `gorm:"not null" json:"title"`
	CoverURL string          `json:"cover_url,omitempty"`
	PriceTON decimal.Decimal `gorm:"type:decimal(20,9);not null" json:"price_ton"`
	Active   bool            `gorm:"default:true;index" json:"active"`

	Timestamps
}

// CoursePurchase grants a user access to a course. Unique per (user, course).
type CoursePurchase struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	UserID     string `gorm:"uniqueIndex:idx_user_course;not null" json:"user_id"`
	CourseCode string `gorm:"uniqueIndex:idx_user_course;not null" json:"course_code"`
	InvoiceID  string `gorm:"index;not null" json:"invoice_id"`

	Timestamps
}
