package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "famfin/internal/errors"
	"famfin/internal/models"
	"famfin/internal/pagination"
	"famfin/internal/services"
)

// --- mock invitation service ---

type mockInvitationService struct {
	inviteFn                func(ctx context.Context, inviterID, familyID uint, email string, role models.Role, message string) (*models.Invitation, error)
	getByTokenFn            func(token string) (*models.Invitation, error)
	listFamilyInvitationsFn func(actorID, familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Invitation], error)
	acceptFn                func(token string, actingUserID uint) (*models.FamilyMember, error)
	declineFn               func(token string) (*models.Invitation, error)
	revokeFn                func(actorID, invitationID uint) (*models.Invitation, error)
	expireStaleFn           func() (int64, error)
}

func (m *mockInvitationService) Invite(ctx context.Context, inviterID, familyID uint, email string, role models.Role, message string) (*models.Invitation, error) {
	if m.inviteFn != nil {
		return m.inviteFn(ctx, inviterID, familyID, email, role, message)
	}
	return &models.Invitation{}, nil
}

func (m *mockInvitationService) GetByToken(token string) (*models.Invitation, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(token)
	}
	return &models.Invitation{}, nil
}

func (m *mockInvitationService) ListFamilyInvitations(actorID, familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Invitation], error) {
	if m.listFamilyInvitationsFn != nil {
		return m.listFamilyInvitationsFn(actorID, familyID, page)
	}
	resp := pagination.NewPageResponse([]models.Invitation{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockInvitationService) Accept(token string, actingUserID uint) (*models.FamilyMember, error) {
	if m.acceptFn != nil {
		return m.acceptFn(token, actingUserID)
	}
	return &models.FamilyMember{}, nil
}

func (m *mockInvitationService) Decline(token string) (*models.Invitation, error) {
	if m.declineFn != nil {
		return m.declineFn(token)
	}
	return &models.Invitation{}, nil
}

func (m *mockInvitationService) Revoke(actorID, invitationID uint) (*models.Invitation, error) {
	if m.revokeFn != nil {
		return m.revokeFn(actorID, invitationID)
	}
	return &models.Invitation{}, nil
}

func (m *mockInvitationService) ExpireStale() (int64, error) {
	if m.expireStaleFn != nil {
		return m.expireStaleFn()
	}
	return 0, nil
}

var _ services.InvitationServicer = (*mockInvitationService)(nil)

func setupInvitationRouter(handler *InvitationHandler) *gin.Engine {
	r := gin.New()
	r.GET("/invitations/:token", handler.GetInvitation)
	r.POST("/invitations/:token/decline", handler.Decline)
	auth := r.Group("", injectUserID(1))
	auth.POST("/families/:id/invitations", handler.Invite)
	auth.GET("/families/:id/invitations", handler.ListInvitations)
	auth.DELETE("/families/:id/invitations/:invitationID", handler.Revoke)
	auth.POST("/invitations/:token/accept", handler.Accept)
	return r
}

func TestInvitationHandler_Invite(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockInvitationService{
			inviteFn: func(_ context.Context, inviterID, familyID uint, email string, role models.Role, _ string) (*models.Invitation, error) {
				if inviterID != 1 || familyID != 5 {
					t.Errorf("unexpected arguments: inviter=%d family=%d", inviterID, familyID)
				}
				return &models.Invitation{
					Base:     models.Base{ID: 1},
					FamilyID: familyID,
					Email:    email,
					Role:     role,
					Status:   models.InvitationPending,
				}, nil
			},
		}
		handler := NewInvitationHandler(svc, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "POST", "/families/5/invitations", `{"email":"invitee@test.com","role":"member"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		invitation := result["invitation"].(map[string]interface{})
		if invitation["status"] != "pending" {
			t.Errorf("expected pending, got %v", invitation["status"])
		}
		if _, leaked := invitation["Token"]; leaked {
			t.Error("token must not appear in the response payload")
		}
	})

	t.Run("returns 400 on owner role", func(t *testing.T) {
		handler := NewInvitationHandler(&mockInvitationService{}, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "POST", "/families/5/invitations", `{"email":"invitee@test.com","role":"owner"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 409 on duplicate pending", func(t *testing.T) {
		svc := &mockInvitationService{
			inviteFn: func(_ context.Context, _, _ uint, _ string, _ models.Role, _ string) (*models.Invitation, error) {
				return nil, apperrors.ErrDuplicateInvitation
			},
		}
		handler := NewInvitationHandler(svc, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "POST", "/families/5/invitations", `{"email":"invitee@test.com","role":"member"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_PENDING")
	})
}

func TestInvitationHandler_GetInvitation(t *testing.T) {
	t.Run("returns 404 on unknown token", func(t *testing.T) {
		svc := &mockInvitationService{
			getByTokenFn: func(string) (*models.Invitation, error) {
				return nil, apperrors.ErrInvitationNotFound
			},
		}
		handler := NewInvitationHandler(svc, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "GET", "/invitations/sometoken", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestInvitationHandler_Accept(t *testing.T) {
	t.Run("returns 200 with membership", func(t *testing.T) {
		svc := &mockInvitationService{
			acceptFn: func(_ string, actingUserID uint) (*models.FamilyMember, error) {
				return &models.FamilyMember{
					Base:     models.Base{ID: 2},
					FamilyID: 5,
					UserID:   actingUserID,
					Role:     models.RoleMember,
				}, nil
			},
		}
		handler := NewInvitationHandler(svc, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "POST", "/invitations/sometoken/accept", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		member := result["member"].(map[string]interface{})
		if member["family_id"].(float64) != 5 {
			t.Errorf("expected family 5, got %v", member["family_id"])
		}
	})

	t.Run("returns 410 on expired invitation", func(t *testing.T) {
		svc := &mockInvitationService{
			acceptFn: func(string, uint) (*models.FamilyMember, error) {
				return nil, apperrors.ErrInvitationExpired
			},
		}
		handler := NewInvitationHandler(svc, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "POST", "/invitations/sometoken/accept", "")

		if rec.Code != http.StatusGone {
			t.Fatalf("expected 410, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVITATION_EXPIRED")
	})

	t.Run("returns 409 on resolved invitation", func(t *testing.T) {
		svc := &mockInvitationService{
			acceptFn: func(string, uint) (*models.FamilyMember, error) {
				return nil, apperrors.ErrInvitationResolved
			},
		}
		handler := NewInvitationHandler(svc, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "POST", "/invitations/sometoken/accept", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_STATE")
	})

	t.Run("returns 403 on email mismatch", func(t *testing.T) {
		svc := &mockInvitationService{
			acceptFn: func(string, uint) (*models.FamilyMember, error) {
				return nil, apperrors.ErrEmailMismatch
			},
		}
		handler := NewInvitationHandler(svc, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "POST", "/invitations/sometoken/accept", "")

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestInvitationHandler_Revoke(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		svc := &mockInvitationService{
			revokeFn: func(actorID, invitationID uint) (*models.Invitation, error) {
				if invitationID != 9 {
					t.Errorf("expected invitation 9, got %d", invitationID)
				}
				return &models.Invitation{
					Base:   models.Base{ID: invitationID},
					Status: models.InvitationRevoked,
				}, nil
			},
		}
		handler := NewInvitationHandler(svc, &mockAuditService{})
		r := setupInvitationRouter(handler)

		rec := doRequest(r, "DELETE", "/families/5/invitations/9", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		invitation := result["invitation"].(map[string]interface{})
		if invitation["status"] != "revoked" {
			t.Errorf("expected revoked, got %v", invitation["status"])
		}
	})
}
