package models

import "time"

// AlertKind classifies a budget threshold crossing.
type AlertKind string

const (
	AlertNearLimit  AlertKind = "NEAR_LIMIT"
	AlertOverBudget AlertKind = "OVER_BUDGET"
)

// BudgetAlert records that an alert of a given kind already fired for a
// budget's window. The composite unique index is the deduplication unit:
// a conflicting insert means another evaluation got there first, so the
// alert must not fire again for this window.
type BudgetAlert struct {
	Base
	BudgetID        uint      `gorm:"not null;uniqueIndex:idx_budget_window_kind" json:"budget_id"`
	WindowStart     time.Time `gorm:"not null;uniqueIndex:idx_budget_window_kind" json:"window_start"`
	Kind            AlertKind `gorm:"not null;uniqueIndex:idx_budget_window_kind" json:"kind"`
	SpentPercentage float64   `gorm:"not null" json:"spent_percentage"`
}
