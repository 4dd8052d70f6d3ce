package models

import "time"

// Role represents a member's role within a family.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Rank returns the authority level of a role. Higher ranks may act on
// lower ones; authorization checks compare ranks, never string values.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// AtLeast reports whether the role carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

// Family represents a group of users sharing budgets and a base currency.
// The family owns its member set; deleting a family cascades to members
// and pending invitations.
type Family struct {
	Base
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Currency    string         `gorm:"size:3;not null" json:"currency"`
	CreatedBy   uint           `gorm:"not null" json:"created_by"`
	Members     []FamilyMember `gorm:"foreignKey:FamilyID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Invitations []Invitation   `gorm:"foreignKey:FamilyID;constraint:OnDelete:CASCADE" json:"invitations,omitempty"`
	Budgets     []Budget       `gorm:"foreignKey:FamilyID" json:"budgets,omitempty"`
}

// FamilyMember links a user to a family with a role. A user holds at most
// one member record per family, enforced by the composite unique index.
type FamilyMember struct {
	Base
	FamilyID uint      `gorm:"not null;uniqueIndex:idx_family_user" json:"family_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_family_user" json:"user_id"`
	Role     Role      `gorm:"not null" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
