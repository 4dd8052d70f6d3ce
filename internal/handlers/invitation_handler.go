package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famfin/internal/errors"
	"famfin/internal/models"
	"famfin/internal/pagination"
	"famfin/internal/services"
)

// InvitationHandler handles the invitation workflow.
type InvitationHandler struct {
	invitationService services.InvitationServicer
	auditService      services.AuditServicer
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationService services.InvitationServicer, auditService services.AuditServicer) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService, auditService: auditService}
}

// InviteRequest represents the request payload for issuing an invitation.
type InviteRequest struct {
	Email   string      `json:"email" binding:"required,email,max=255"`
	Role    models.Role `json:"role" binding:"required,assignable_role"`
	Message string      `json:"message" binding:"max=500"`
}

// Invite handles issuing a new invitation.
// @Summary     Invite a user to a family
// @Description Issue a time-bounded invitation to an email address
// @Tags        invitations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int           true "Family ID"
// @Param       request body InviteRequest true "Invitation details"
// @Success     201 {object} models.Invitation "Invitation created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin authority required"
// @Failure     409 {object} ErrorResponse "Duplicate pending invitation or already a member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{id}/invitations [post]
func (h *InvitationHandler) Invite(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	invitation, err := h.invitationService.Invite(c.Request.Context(), userID, familyID, req.Email, req.Role, req.Message)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "INVITE", "invitation", invitation.ID, c.ClientIP(),
		map[string]interface{}{"family_id": familyID, "email": req.Email, "role": req.Role})

	c.JSON(http.StatusCreated, gin.H{"invitation": invitation})
}

// ListInvitations handles listing a family's invitations.
// @Summary     List family invitations
// @Description Get a paginated list of a family's invitations, newest first
// @Tags        invitations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  int true  "Family ID"
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Invitation] "Paginated invitations"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin authority required"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{id}/invitations [get]
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.invitationService.ListFamilyInvitations(userID, familyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetInvitation handles resolving an invitation token for the accept page.
// @Summary     Get invitation by token
// @Description Resolve an invitation token to its details and current status
// @Tags        invitations
// @Accept      json
// @Produce     json
// @Param       token path string true "Invitation token"
// @Success     200 {object} models.Invitation "Invitation details"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /invitations/{token} [get]
func (h *InvitationHandler) GetInvitation(c *gin.Context) {
	invitation, err := h.invitationService.GetByToken(c.Param("token"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitation": invitation})
}

// Accept handles redeeming an invitation token.
// @Summary     Accept an invitation
// @Description Redeem an invitation token and join the family
// @Tags        invitations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       token path string true "Invitation token"
// @Success     200 {object} models.FamilyMember "Membership created"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Email mismatch"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Failure     409 {object} ErrorResponse "Already resolved or already a member"
// @Failure     410 {object} ErrorResponse "Invitation expired"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /invitations/{token}/accept [post]
func (h *InvitationHandler) Accept(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	member, err := h.invitationService.Accept(c.Param("token"), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ACCEPT_INVITATION", "family_member", member.ID, c.ClientIP(),
		map[string]interface{}{"family_id": member.FamilyID, "role": member.Role})

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// Decline handles declining an invitation.
// @Summary     Decline an invitation
// @Description Decline an invitation by token
// @Tags        invitations
// @Accept      json
// @Produce     json
// @Param       token path string true "Invitation token"
// @Success     200 {object} models.Invitation "Invitation declined"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Failure     409 {object} ErrorResponse "Already resolved"
// @Failure     410 {object} ErrorResponse "Invitation expired"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /invitations/{token}/decline [post]
func (h *InvitationHandler) Decline(c *gin.Context) {
	invitation, err := h.invitationService.Decline(c.Param("token"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitation": invitation})
}

// Revoke handles withdrawing a pending invitation.
// @Summary     Revoke an invitation
// @Description Withdraw a pending invitation; inviter or family admin only
// @Tags        invitations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path int true "Family ID"
// @Param       invitationID path int true "Invitation ID"
// @Success     200 {object} models.Invitation "Invitation revoked"
// @Failure     400 {object} ErrorResponse "Invalid invitation ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not the inviter or an admin"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Failure     409 {object} ErrorResponse "Already resolved"
// @Failure     410 {object} ErrorResponse "Invitation expired"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{id}/invitations/{invitationID} [delete]
func (h *InvitationHandler) Revoke(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	invitationID, err := parsePathID(c, "invitationID")
	if err != nil {
		respondWithError(c, err)
		return
	}

	invitation, err := h.invitationService.Revoke(userID, invitationID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REVOKE_INVITATION", "invitation", invitation.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"invitation": invitation})
}
