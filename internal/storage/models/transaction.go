// internal/storage/models/transaction.go
package models

import "time"

// Transaction statuses.
const (
	TransactionPending   = "pending"
	TransactionConfirmed = "confirmed"
	TransactionFailed    = "failed"
)

// Transaction is a submitted on-chain lifecycle transaction.
type Transaction struct {
	BaseModel
	Signature    string     `gorm:"unique;not null;type:varchar(88)"`
	Operation    string     `gorm:"index;not null;type:varchar(50)"`
	Mint         string     `gorm:"index;type:varchar(44)"`
	Payer        string     `gorm:"index;not null;type:varchar(44)"`
	Status       string     `gorm:"not null;type:varchar(20)"`
	ErrorMessage string     `gorm:"type:text"`
	Slot         uint64     `gorm:"default:0"`
	ConfirmedAt  *time.Time `gorm:"index"`
}
