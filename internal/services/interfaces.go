package services

import (
	"context"
	"time"

	"famfin/internal/models"
	"famfin/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
}

// FamilyServicer defines the contract for family membership logic.
// Role mutations serialize per family so the last-owner invariant holds
// under concurrent calls.
type FamilyServicer interface {
	CreateFamily(creatorID uint, name, description, currency string) (*models.Family, error)
	GetFamily(actorID, familyID uint) (*models.Family, error)
	ListMembers(actorID, familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.FamilyMember], error)
	AddMember(familyID, userID uint, role models.Role) (*models.FamilyMember, error)
	ChangeRole(actorID, familyID, targetUserID uint, newRole models.Role) (*models.FamilyMember, error)
	RemoveMember(actorID, familyID, targetUserID uint) error
	Authorize(userID, familyID uint, required models.Role) (bool, error)
	DeleteFamily(actorID, familyID uint) error
}

// InvitationServicer defines the contract for the invitation workflow.
// Expiry is evaluated lazily on every read; ExpireStale persists it.
type InvitationServicer interface {
	Invite(ctx context.Context, inviterID, familyID uint, email string, role models.Role, message string) (*models.Invitation, error)
	GetByToken(token string) (*models.Invitation, error)
	ListFamilyInvitations(actorID, familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Invitation], error)
	Accept(token string, actingUserID uint) (*models.FamilyMember, error)
	Decline(token string) (*models.Invitation, error)
	Revoke(actorID, invitationID uint) (*models.Invitation, error)
	ExpireStale() (int64, error)
}

// BudgetStatus is the derived consumption snapshot for a budget's current
// window. It is recomputed on every evaluation and never persisted.
type BudgetStatus struct {
	BudgetID        uint       `json:"budget_id"`
	WindowStart     time.Time  `json:"window_start"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	Amount          int64      `json:"amount"`
	SpentAmount     int64      `json:"spent_amount"`
	RemainingAmount int64      `json:"remaining_amount"`
	SpentPercentage float64    `json:"spent_percentage"`
	IsOverBudget    bool       `json:"is_over_budget"`
	IsNearLimit     bool       `json:"is_near_limit"`
	IsActive        bool       `json:"is_active"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(actorID uint, familyID, categoryID *uint, name string, amount int64, currency string, periodKind models.BudgetPeriod, startDate time.Time, endDate *time.Time, alertThreshold int) (*models.Budget, error)
	GetUserBudgets(userID uint, page pagination.PageRequest, isActive *bool, periodKind *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetFamilyBudgets(actorID, familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(actorID, budgetID uint) (*models.Budget, error)
	UpdateBudget(actorID, budgetID uint, name string, amount *int64, alertThreshold *int, endDate *time.Time) (*models.Budget, error)
	DeactivateBudget(actorID, budgetID uint) error
	EvaluateBudget(ctx context.Context, actorID, budgetID uint, asOf time.Time) (*BudgetStatus, error)
}

// CategoryServicer is the read-only category tree lookup consumed when
// scoping budget aggregation.
type CategoryServicer interface {
	GetCategoryByID(categoryID uint) (*models.Category, error)
	DescendantIDs(categoryID uint) ([]uint, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
