package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction is a ledger row consumed by budget aggregation. Writes to the
// ledger happen in an external service; this model exists for scoped reads.
type Transaction struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	FamilyID    *uint           `gorm:"index" json:"family_id,omitempty"`
	CategoryID  *uint           `json:"category_id,omitempty"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null;index" json:"date"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
