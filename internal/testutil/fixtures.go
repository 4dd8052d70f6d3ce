package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"famfin/internal/models"
	"famfin/internal/token"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestFamily creates a family with the given user as its owner.
func CreateTestFamily(t *testing.T, db *gorm.DB, ownerID uint) *models.Family {
	t.Helper()

	family := &models.Family{
		Name:      fmt.Sprintf("Test Family %d", nextID()),
		Currency:  "USD",
		CreatedBy: ownerID,
	}
	if err := db.Create(family).Error; err != nil {
		t.Fatalf("failed to create test family: %v", err)
	}
	CreateTestMember(t, db, family.ID, ownerID, models.RoleOwner)
	return family
}

// CreateTestMember adds a user to a family with the given role.
func CreateTestMember(t *testing.T, db *gorm.DB, familyID, userID uint, role models.Role) *models.FamilyMember {
	t.Helper()

	member := &models.FamilyMember{
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test family member: %v", err)
	}
	return member
}

// CreateTestCategory creates an expense category owned by the user.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: &userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   models.CategoryTypeExpense,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestChildCategory creates a category under the given parent.
func CreateTestChildCategory(t *testing.T, db *gorm.DB, parent *models.Category) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:   parent.UserID,
		FamilyID: parent.FamilyID,
		Name:     fmt.Sprintf("Test Subcategory %d", nextID()),
		Type:     parent.Type,
		ParentID: &parent.ID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test child category: %v", err)
	}
	return category
}

// CreateTestBudget creates an active monthly budget owned by the user.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID uint, amount int64, startDate time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:         &userID,
		Name:           fmt.Sprintf("Test Budget %d", nextID()),
		Amount:         amount,
		Currency:       "USD",
		Period:         models.BudgetPeriodMonthly,
		StartDate:      startDate,
		AlertThreshold: models.DefaultAlertThreshold,
		IsActive:       true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestFamilyBudget creates an active monthly budget owned by the family.
func CreateTestFamilyBudget(t *testing.T, db *gorm.DB, familyID uint, amount int64, startDate time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		FamilyID:       &familyID,
		Name:           fmt.Sprintf("Test Family Budget %d", nextID()),
		Amount:         amount,
		Currency:       "USD",
		Period:         models.BudgetPeriodMonthly,
		StartDate:      startDate,
		AlertThreshold: models.DefaultAlertThreshold,
		IsActive:       true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test family budget: %v", err)
	}
	return budget
}

// CreateTestExpense creates a personal expense transaction in USD.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID uint, amount int64, date time.Time) *models.Transaction {
	t.Helper()
	return CreateTestTransaction(t, db, &models.Transaction{
		UserID:   userID,
		Type:     models.TransactionTypeExpense,
		Amount:   amount,
		Currency: "USD",
		Date:     date,
	})
}

// CreateTestTransaction persists the given transaction as-is.
func CreateTestTransaction(t *testing.T, db *gorm.DB, tx *models.Transaction) *models.Transaction {
	t.Helper()

	if tx.Description == "" {
		tx.Description = fmt.Sprintf("Test Transaction %d", nextID())
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestInvitation creates a pending invitation valid for seven days.
func CreateTestInvitation(t *testing.T, db *gorm.DB, familyID, inviterID uint, email string) *models.Invitation {
	t.Helper()
	return createInvitation(t, db, familyID, inviterID, email, time.Now().UTC().Add(7*24*time.Hour))
}

// CreateTestExpiredInvitation creates a pending invitation whose TTL has
// already passed.
func CreateTestExpiredInvitation(t *testing.T, db *gorm.DB, familyID, inviterID uint, email string) *models.Invitation {
	t.Helper()
	return createInvitation(t, db, familyID, inviterID, email, time.Now().UTC().Add(-time.Hour))
}

func createInvitation(t *testing.T, db *gorm.DB, familyID, inviterID uint, email string, expiresAt time.Time) *models.Invitation {
	t.Helper()

	tok, err := token.New()
	if err != nil {
		t.Fatalf("failed to generate invitation token: %v", err)
	}

	invitation := &models.Invitation{
		FamilyID:  familyID,
		InviterID: inviterID,
		Email:     email,
		Role:      models.RoleMember,
		Token:     tok,
		Status:    models.InvitationPending,
		ExpiresAt: expiresAt,
	}
	if err := db.Create(invitation).Error; err != nil {
		t.Fatalf("failed to create test invitation: %v", err)
	}
	return invitation
}
