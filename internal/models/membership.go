package models

import (
	"time"

	"gorm.io/datatypes"
)

// MembershipPackage is a purchasable membership tier.
type MembershipPackage struct {
	ID          uint                        `gorm:"primaryKey" json:"id" yaml:"-"`
	Name        string                      `gorm:"uniqueIndex;not null;size:100" json:"name" yaml:"name"`
	Level       int                         `gorm:"not null;index" json:"level" yaml:"level"`
	Price       float64                     `gorm:"not null" json:"price" yaml:"price"`
	Description string                      `gorm:"type:text" json:"description" yaml:"description"`
	Perks       datatypes.JSONSlice[string] `json:"perks" yaml:"perks"`
}

// TableName specifies the table name for MembershipPackage model.
func (MembershipPackage) TableName() string {
	return "membership_packages"
}

// PriceCents returns the package price in the gateway's minor unit.
func (p *MembershipPackage) PriceCents() int64 {
	return int64(p.Price*100 + 0.5)
}

// Payment is an append-only record of a completed membership charge.
type Payment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"size:255;not null;index" json:"email"`
	Amount        float64   `gorm:"not null" json:"amount"`
	TransactionID string    `gorm:"uniqueIndex;not null;size:255" json:"transaction_id"`
	MembershipID  uint      `gorm:"not null;index" json:"membership_id"`
	PackageName   string    `gorm:"size:100" json:"package_name"`
	PaymentMethod string    `gorm:"size:50" json:"payment_method"`
	PaidAt        time.Time `gorm:"not null" json:"paid_at"`
}

// TableName specifies the table name for Payment model.
func (Payment) TableName() string {
	return "payments"
}
