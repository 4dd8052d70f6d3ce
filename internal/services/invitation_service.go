package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "famfin/internal/errors"
	"famfin/internal/models"
	"famfin/internal/notify"
	"famfin/internal/pagination"
	"famfin/internal/token"
)

// invitationTTL is the fixed offset from creation to expiry.
const invitationTTL = 7 * 24 * time.Hour

// invitationService runs the invitation workflow. Stored status only
// changes through resolve operations or the sweep; every read path maps
// stale PENDING rows to EXPIRED on the fly.
type invitationService struct {
	db       *gorm.DB
	families FamilyServicer
	users    UserServicer
	notifier notify.Notifier
}

// NewInvitationService creates a new InvitationServicer.
func NewInvitationService(db *gorm.DB, families FamilyServicer, users UserServicer, notifier notify.Notifier) InvitationServicer {
	return &invitationService{db: db, families: families, users: users, notifier: notifier}
}

// Invite issues a pending invitation and emits a delivery event. The
// inviter needs admin authority; ownership is never granted by invitation.
func (s *invitationService) Invite(ctx context.Context, inviterID, familyID uint, email string, role models.Role, message string) (*models.Invitation, error) {
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invitations may only grant admin or member roles")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invitee email is required")
	}

	ok, err := s.families.Authorize(inviterID, familyID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}

	var family models.Family
	if err := s.db.First(&family, familyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFamilyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.checkNotMember(familyID, email); err != nil {
		return nil, err
	}

	now := time.Now()
	var pending int64
	err = s.db.Model(&models.Invitation{}).
		Where("family_id = ? AND email = ? AND status = ? AND expires_at > ?",
			familyID, email, models.InvitationPending, now).
		Count(&pending).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if pending > 0 {
		return nil, apperrors.ErrDuplicateInvitation
	}

	tok, err := token.New()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	invitation := &models.Invitation{
		FamilyID:  familyID,
		InviterID: inviterID,
		Email:     email,
		Role:      role,
		Token:     tok,
		Status:    models.InvitationPending,
		Message:   message,
		ExpiresAt: now.Add(invitationTTL),
	}
	if err := s.db.Create(invitation).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.notifier.InvitationCreated(ctx, notify.InvitationEvent{
		InvitationID: invitation.ID,
		FamilyID:     familyID,
		FamilyName:   family.Name,
		Email:        email,
		Token:        tok,
		Message:      message,
		ExpiresAt:    invitation.ExpiresAt,
	})

	return invitation, nil
}

// GetByToken resolves an invitation for the accept page. The returned
// status reflects expiry as of now without writing anything back.
func (s *invitationService) GetByToken(tok string) (*models.Invitation, error) {
	invitation, err := s.findByToken(tok)
	if err != nil {
		return nil, err
	}
	invitation.Status = invitation.EffectiveStatus(time.Now())
	return invitation, nil
}

// ListFamilyInvitations returns a family's invitations for admins, with
// lazily evaluated statuses.
func (s *invitationService) ListFamilyInvitations(actorID, familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Invitation], error) {
	ok, err := s.families.Authorize(actorID, familyID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	base := s.db.Model(&models.Invitation{}).Where("family_id = ?", familyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var invitations []models.Invitation
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&invitations).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	for i := range invitations {
		invitations[i].Status = invitations[i].EffectiveStatus(now)
	}

	result := pagination.NewPageResponse(invitations, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Accept redeems a token for the acting user. The PENDING→ACCEPTED
// transition is a compare-and-swap, so of two concurrent accepts exactly
// one succeeds and the other fails with INVALID_STATE. The status change
// and the membership row commit together.
func (s *invitationService) Accept(tok string, actingUserID uint) (*models.FamilyMember, error) {
	invitation, err := s.findByToken(tok)
	if err != nil {
		return nil, err
	}
	if err := s.checkResolvable(invitation); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(actingUserID)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(user.Email) != invitation.Email {
		return nil, apperrors.ErrEmailMismatch
	}

	var member *models.FamilyMember
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.FamilyMember{}).
			Where("family_id = ? AND user_id = ?", invitation.FamilyID, actingUserID).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateMember
		}

		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
			Update("status", models.InvitationAccepted)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrInvitationResolved
		}

		member = &models.FamilyMember{
			FamilyID: invitation.FamilyID,
			UserID:   actingUserID,
			Role:     invitation.Role,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Decline marks a pending invitation as declined.
func (s *invitationService) Decline(tok string) (*models.Invitation, error) {
	invitation, err := s.findByToken(tok)
	if err != nil {
		return nil, err
	}
	if err := s.checkResolvable(invitation); err != nil {
		return nil, err
	}
	return s.resolve(invitation, models.InvitationDeclined)
}

// Revoke withdraws a pending invitation. The inviter or any family admin
// may revoke.
func (s *invitationService) Revoke(actorID, invitationID uint) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := s.db.First(&invitation, invitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvitationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if actorID != invitation.InviterID {
		ok, err := s.families.Authorize(actorID, invitation.FamilyID, models.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.ErrForbidden
		}
	}

	if err := s.checkResolvable(&invitation); err != nil {
		return nil, err
	}
	return s.resolve(&invitation, models.InvitationRevoked)
}

// ExpireStale persists EXPIRED for pending invitations past their TTL and
// returns how many rows it wrote. Safe to run repeatedly.
func (s *invitationService) ExpireStale() (int64, error) {
	res := s.db.Model(&models.Invitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationPending, time.Now()).
		Update("status", models.InvitationExpired)
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}

// findByToken rejects malformed tokens before touching the database.
func (s *invitationService) findByToken(tok string) (*models.Invitation, error) {
	if !token.IsValid(tok) {
		return nil, apperrors.ErrInvitationNotFound
	}
	var invitation models.Invitation
	if err := s.db.Where("token = ?", tok).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvitationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &invitation, nil
}

// checkResolvable rejects transitions out of expired or terminal states.
func (s *invitationService) checkResolvable(invitation *models.Invitation) error {
	switch invitation.EffectiveStatus(time.Now()) {
	case models.InvitationPending:
		return nil
	case models.InvitationExpired:
		return apperrors.ErrInvitationExpired
	default:
		return apperrors.ErrInvitationResolved
	}
}

// resolve applies a terminal transition with the same compare-and-swap
// used by Accept.
func (s *invitationService) resolve(invitation *models.Invitation, status models.InvitationStatus) (*models.Invitation, error) {
	res := s.db.Model(&models.Invitation{}).
		Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
		Update("status", status)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrInvitationResolved
	}
	invitation.Status = status
	return invitation, nil
}

// checkNotMember fails with ALREADY_MEMBER when the email resolves to an
// existing member of the family.
func (s *invitationService) checkNotMember(familyID uint, email string) error {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrUserNotFound.Code {
			return nil
		}
		return err
	}

	var count int64
	if err := s.db.Model(&models.FamilyMember{}).
		Where("family_id = ? AND user_id = ?", familyID, user.ID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrAlreadyMember
	}
	return nil
}
