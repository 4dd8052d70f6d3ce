package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "famfin/internal/errors"
	"famfin/internal/logger"
	"famfin/internal/models"
	"famfin/internal/notify"
	"famfin/internal/pagination"
	"famfin/internal/period"
)

// budgetService handles budget-related business logic: ownership-scoped
// CRUD plus on-demand evaluation of spend against the current window.
type budgetService struct {
	db         *gorm.DB
	families   FamilyServicer
	categories CategoryServicer
	notifier   notify.Notifier
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, families FamilyServicer, categories CategoryServicer, notifier notify.Notifier) BudgetServicer {
	return &budgetService{db: db, families: families, categories: categories, notifier: notifier}
}

// CreateBudget creates a budget owned by the actor or by a family the
// actor administers. For non-custom periods the end date is derived from
// the window, so a provided one is not stored.
func (s *budgetService) CreateBudget(
	actorID uint,
	familyID, categoryID *uint,
	name string,
	amount int64,
	currency string,
	periodKind models.BudgetPeriod,
	startDate time.Time,
	endDate *time.Time,
	alertThreshold int,
) (*models.Budget, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be positive")
	}
	if alertThreshold == 0 {
		alertThreshold = models.DefaultAlertThreshold
	}
	if alertThreshold < 1 || alertThreshold > 100 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 1 and 100")
	}
	if periodKind != models.BudgetPeriodCustom {
		endDate = nil
	}

	// Validates the period kind and rejects custom ranges that end
	// before they start.
	if _, err := period.Current(periodKind, startDate, endDate, startDate); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		CategoryID:     categoryID,
		Name:           name,
		Amount:         amount,
		Currency:       currency,
		Period:         periodKind,
		StartDate:      startDate,
		EndDate:        endDate,
		AlertThreshold: alertThreshold,
		IsActive:       true,
	}

	if familyID != nil {
		ok, err := s.families.Authorize(actorID, *familyID, models.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.ErrForbidden
		}
		budget.FamilyID = familyID
	} else {
		owner := actorID
		budget.UserID = &owner
	}

	if categoryID != nil {
		if _, err := s.categories.GetCategoryByID(*categoryID); err != nil {
			return nil, err
		}
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// GetUserBudgets returns a paginated list of the user's personal budgets
// with optional filters.
func (s *budgetService) GetUserBudgets(
	userID uint,
	page pagination.PageRequest,
	isActive *bool,
	periodKind *models.BudgetPeriod,
) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if periodKind != nil {
		base = base.Where("period = ?", *periodKind)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetFamilyBudgets returns a family's budgets to any of its members.
func (s *budgetService) GetFamilyBudgets(actorID, familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	ok, err := s.families.Authorize(actorID, familyID, models.RoleMember)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("family_id = ?", familyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID returns a budget the actor may see: their own, or one
// belonging to a family they are a member of. Anything else reads as
// not found.
func (s *budgetService) GetBudgetByID(actorID, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").First(&budget, budgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if budget.FamilyScoped() {
		ok, err := s.families.Authorize(actorID, *budget.FamilyID, models.RoleMember)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.ErrBudgetNotFound
		}
	} else if budget.UserID == nil || *budget.UserID != actorID {
		return nil, apperrors.ErrBudgetNotFound
	}

	return &budget, nil
}

// UpdateBudget updates a budget's mutable fields. Family budgets require
// admin authority.
func (s *budgetService) UpdateBudget(
	actorID, budgetID uint,
	name string,
	amount *int64,
	alertThreshold *int,
	endDate *time.Time,
) (*models.Budget, error) {
	budget, err := s.getEditable(actorID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be positive")
		}
		updates["amount"] = *amount
	}
	if alertThreshold != nil {
		if *alertThreshold < 1 || *alertThreshold > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 1 and 100")
		}
		updates["alert_threshold"] = *alertThreshold
	}
	if endDate != nil {
		if budget.Period != models.BudgetPeriodCustom {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date applies only to custom periods")
		}
		if _, err := period.Current(budget.Period, budget.StartDate, endDate, budget.StartDate); err != nil {
			return nil, err
		}
		updates["end_date"] = endDate
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return budget, nil
}

// DeactivateBudget soft-deactivates a budget. Transactions may still
// reference its category and window, so budgets are never hard-deleted.
func (s *budgetService) DeactivateBudget(actorID, budgetID uint) error {
	budget, err := s.getEditable(actorID, budgetID)
	if err != nil {
		return err
	}
	if err := s.db.Model(budget).Update("is_active", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// EvaluateBudget computes the budget's status against the window that
// applies at asOf: current-window spend, remaining amount, percentage,
// and the over/near-limit flags. The first evaluation to cross a
// threshold within a window emits an alert event; subsequent ones do not.
func (s *budgetService) EvaluateBudget(ctx context.Context, actorID, budgetID uint, asOf time.Time) (*BudgetStatus, error) {
	budget, err := s.GetBudgetByID(actorID, budgetID)
	if err != nil {
		return nil, err
	}

	window, err := period.Current(budget.Period, budget.StartDate, budget.EndDate, asOf)
	if err != nil {
		return nil, err
	}

	spent, err := s.sumExpenses(ctx, budget, window)
	if err != nil {
		return nil, err
	}

	var percentage float64
	if budget.Amount > 0 {
		percentage = float64(spent) / float64(budget.Amount) * 100
	}

	status := &BudgetStatus{
		BudgetID:        budget.ID,
		WindowStart:     window.Start,
		Amount:          budget.Amount,
		SpentAmount:     spent,
		RemainingAmount: budget.Amount - spent,
		SpentPercentage: percentage,
		IsOverBudget:    spent > budget.Amount,
		IsNearLimit:     false,
		IsActive:        budget.IsActive,
	}
	if window.Bounded() {
		end := window.End
		status.WindowEnd = &end
	}
	if !status.IsOverBudget && percentage >= float64(budget.AlertThreshold) {
		status.IsNearLimit = true
	}

	if status.IsOverBudget {
		s.maybeAlert(ctx, budget, window, models.AlertOverBudget, percentage)
	} else if status.IsNearLimit {
		s.maybeAlert(ctx, budget, window, models.AlertNearLimit, percentage)
	}

	return status, nil
}

// sumExpenses aggregates expense transactions matching the budget's
// scope, category subtree, and currency inside the window. Transactions
// in another currency are excluded rather than converted. An empty
// result is zero spend, never an error.
func (s *budgetService) sumExpenses(ctx context.Context, budget *models.Budget, window period.Window) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("type = ? AND currency = ?", models.TransactionTypeExpense, budget.Currency).
		Where("date >= ?", window.Start)
	if window.Bounded() {
		q = q.Where("date < ?", window.End)
	}

	if budget.FamilyScoped() {
		q = q.Where("family_id = ?", *budget.FamilyID)
	} else {
		q = q.Where("user_id = ? AND family_id IS NULL", *budget.UserID)
	}

	if budget.CategoryID != nil {
		ids, err := s.categories.DescendantIDs(*budget.CategoryID)
		if err != nil {
			return 0, err
		}
		q = q.Where("category_id IN ?", ids)
	}

	var spent int64
	if err := q.Scan(&spent).Error; err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return 0, apperrors.Wrap(apperrors.ErrUnavailable, err)
		}
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return spent, nil
}

// maybeAlert emits an alert event unless one of this kind already fired
// for the budget's window. The unique index on budget_alerts makes the
// insert the atomic claim: a conflicting insert means another evaluation
// already notified, including one in a different process.
func (s *budgetService) maybeAlert(ctx context.Context, budget *models.Budget, window period.Window, kind models.AlertKind, percentage float64) {
	alert := &models.BudgetAlert{
		BudgetID:        budget.ID,
		WindowStart:     window.Start,
		Kind:            kind,
		SpentPercentage: percentage,
	}

	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(alert)
	if res.Error != nil {
		logger.Get().Errorw("failed to record budget alert",
			"error", res.Error,
			"budget_id", budget.ID,
			"kind", kind,
		)
		return
	}
	if res.RowsAffected == 0 {
		return
	}

	s.notifier.BudgetAlert(ctx, notify.BudgetAlertEvent{
		BudgetID:        budget.ID,
		UserID:          budget.UserID,
		FamilyID:        budget.FamilyID,
		Kind:            kind,
		SpentPercentage: percentage,
		WindowStart:     window.Start,
	})
}

// getEditable fetches a budget the actor may modify: their own, or a
// family budget where they hold admin authority.
func (s *budgetService) getEditable(actorID, budgetID uint) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(actorID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.FamilyScoped() {
		ok, err := s.families.Authorize(actorID, *budget.FamilyID, models.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.ErrForbidden
		}
	}
	return budget, nil
}
