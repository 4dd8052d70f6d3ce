package models

import "time"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
	BudgetPeriodCustom  BudgetPeriod = "custom"
)

// DefaultAlertThreshold is the spent percentage at which a budget is
// considered near its limit when no threshold is set explicitly.
const DefaultAlertThreshold = 80

// Budget represents a spending limit over a rolling or fixed window.
// It is owned by exactly one scope: a user or a family, never both.
type Budget struct {
	Base
	UserID         *uint        `gorm:"index" json:"user_id,omitempty"`
	FamilyID       *uint        `gorm:"index" json:"family_id,omitempty"`
	CategoryID     *uint        `json:"category_id,omitempty"`
	Name           string       `gorm:"not null" json:"name"`
	Amount         int64        `gorm:"type:bigint;not null" json:"amount"`
	Currency       string       `gorm:"size:3;not null" json:"currency"`
	Period         BudgetPeriod `gorm:"not null" json:"period"`
	StartDate      time.Time    `gorm:"not null" json:"start_date"`
	EndDate        *time.Time   `json:"end_date,omitempty"`
	AlertThreshold int          `gorm:"default:80" json:"alert_threshold"`
	IsActive       bool         `gorm:"default:true" json:"is_active"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// FamilyScoped reports whether the budget belongs to a family rather than
// a single user.
func (b *Budget) FamilyScoped() bool {
	return b.FamilyID != nil
}
