package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a node in the transaction category tree. The tree
// itself is maintained elsewhere; this service only reads it to resolve
// descendants when scoping budget aggregation.
type Category struct {
	Base
	UserID   *uint        `gorm:"index" json:"user_id,omitempty"`
	FamilyID *uint        `gorm:"index" json:"family_id,omitempty"`
	Name     string       `gorm:"not null" json:"name"`
	Type     CategoryType `gorm:"not null" json:"type"`
	ParentID *uint        `json:"parent_id,omitempty"`

	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
