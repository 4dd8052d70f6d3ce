package services

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	apperrors "famfin/internal/errors"
	"famfin/internal/models"
	"famfin/internal/pagination"
)

// familyService owns family/member/role relationships and answers
// authorization queries. Role mutations for a family run under a keyed
// mutex plus a transaction, so concurrent removals can never leave a
// family without an owner.
type familyService struct {
	db    *gorm.DB
	locks sync.Map // familyID -> *sync.Mutex
}

// NewFamilyService creates a new FamilyServicer.
func NewFamilyService(db *gorm.DB) FamilyServicer {
	return &familyService{db: db}
}

// lockFamily serializes role mutations for one family and returns the
// unlock function.
func (s *familyService) lockFamily(familyID uint) func() {
	v, _ := s.locks.LoadOrStore(familyID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateFamily creates a family with the creator as its owner. The family
// row and the owner membership commit as one unit.
func (s *familyService) CreateFamily(creatorID uint, name, description, currency string) (*models.Family, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "family name is required")
	}

	family := &models.Family{
		Name:        name,
		Description: description,
		Currency:    currency,
		CreatedBy:   creatorID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(family).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member := &models.FamilyMember{
			FamilyID: family.ID,
			UserID:   creatorID,
			Role:     models.RoleOwner,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		family.Members = []models.FamilyMember{*member}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return family, nil
}

// GetFamily returns a family if the actor is one of its members.
func (s *familyService) GetFamily(actorID, familyID uint) (*models.Family, error) {
	if _, err := s.memberOf(s.db, familyID, actorID); err != nil {
		return nil, err
	}

	var family models.Family
	if err := s.db.First(&family, familyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFamilyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &family, nil
}

// ListMembers returns a paginated list of a family's members. Any member
// may list the roster.
func (s *familyService) ListMembers(actorID, familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.FamilyMember], error) {
	if _, err := s.memberOf(s.db, familyID, actorID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.FamilyMember{}).Where("family_id = ?", familyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var members []models.FamilyMember
	if err := base.Preload("User").Scopes(pagination.Paginate(page)).Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(members, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// AddMember attaches a user to a family. Callers are responsible for
// authorization; the invitation workflow is the normal entry point.
func (s *familyService) AddMember(familyID, userID uint, role models.Role) (*models.FamilyMember, error) {
	if role.Rank() == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown role")
	}

	var family models.Family
	if err := s.db.First(&family, familyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFamilyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := s.db.Model(&models.FamilyMember{}).
		Where("family_id = ? AND user_id = ?", familyID, userID).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateMember
	}

	member := &models.FamilyMember{
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	if err := s.db.Create(member).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return member, nil
}

// ChangeRole updates a member's role. Owners may change anyone; admins may
// only act on members below their own rank and may not grant a rank above
// their own. Demoting the last owner fails with LastOwnerViolation.
func (s *familyService) ChangeRole(actorID, familyID, targetUserID uint, newRole models.Role) (*models.FamilyMember, error) {
	if newRole.Rank() == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown role")
	}

	unlock := s.lockFamily(familyID)
	defer unlock()

	var target *models.FamilyMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		actor, err := s.memberOf(tx, familyID, actorID)
		if err != nil {
			return err
		}
		target, err = s.memberOf(tx, familyID, targetUserID)
		if err != nil {
			return err
		}

		if !s.mayAssign(actor, target, newRole) {
			return apperrors.ErrForbidden
		}

		if target.Role == models.RoleOwner && newRole != models.RoleOwner {
			owners, err := s.countOwners(tx, familyID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return apperrors.ErrLastOwnerViolation
			}
		}

		if err := tx.Model(target).Update("role", newRole).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		target.Role = newRole
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// RemoveMember detaches a user from a family. Members may remove
// themselves; otherwise the actor must outrank the target. Removing the
// sole owner always fails with LastOwnerViolation.
func (s *familyService) RemoveMember(actorID, familyID, targetUserID uint) error {
	unlock := s.lockFamily(familyID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		actor, err := s.memberOf(tx, familyID, actorID)
		if err != nil {
			return err
		}
		target, err := s.memberOf(tx, familyID, targetUserID)
		if err != nil {
			return err
		}

		selfRemoval := actorID == targetUserID
		if !selfRemoval {
			if !actor.Role.AtLeast(models.RoleAdmin) || actor.Role.Rank() <= target.Role.Rank() {
				return apperrors.ErrForbidden
			}
		}

		if target.Role == models.RoleOwner {
			owners, err := s.countOwners(tx, familyID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return apperrors.ErrLastOwnerViolation
			}
		}

		if err := tx.Delete(target).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// Authorize reports whether the user's role in the family carries at
// least the required authority. A non-member is simply not authorized.
func (s *familyService) Authorize(userID, familyID uint, required models.Role) (bool, error) {
	member, err := s.memberOf(s.db, familyID, userID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrMemberNotFound.Code {
			return false, nil
		}
		return false, err
	}
	return member.Role.AtLeast(required), nil
}

// DeleteFamily removes a family with its member set and unresolved
// invitations, and deactivates its budgets. Owner only.
func (s *familyService) DeleteFamily(actorID, familyID uint) error {
	unlock := s.lockFamily(familyID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		actor, err := s.memberOf(tx, familyID, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleOwner {
			return apperrors.ErrForbidden
		}

		if err := tx.Where("family_id = ?", familyID).Delete(&models.FamilyMember{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Invitation{}).
			Where("family_id = ? AND status = ?", familyID, models.InvitationPending).
			Update("status", models.InvitationRevoked).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Budget{}).
			Where("family_id = ?", familyID).
			Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Family{}, familyID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// memberOf loads the membership record for (family, user).
func (s *familyService) memberOf(tx *gorm.DB, familyID, userID uint) (*models.FamilyMember, error) {
	var member models.FamilyMember
	err := tx.Where("family_id = ? AND user_id = ?", familyID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// mayAssign encodes the role-change rule: owners act freely, admins act
// only below their rank and cannot grant above it, members not at all.
func (s *familyService) mayAssign(actor, target *models.FamilyMember, newRole models.Role) bool {
	if actor.Role == models.RoleOwner {
		return true
	}
	if actor.Role != models.RoleAdmin {
		return false
	}
	return target.Role.Rank() < actor.Role.Rank() && newRole.Rank() <= actor.Role.Rank()
}

// countOwners counts members holding the owner role.
func (s *familyService) countOwners(tx *gorm.DB, familyID uint) (int64, error) {
	var owners int64
	err := tx.Model(&models.FamilyMember{}).
		Where("family_id = ? AND role = ?", familyID, models.RoleOwner).
		Count(&owners).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return owners, nil
}
