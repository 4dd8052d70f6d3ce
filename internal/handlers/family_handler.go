package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famfin/internal/errors"
	"famfin/internal/models"
	"famfin/internal/pagination"
	"famfin/internal/services"
)

// FamilyHandler handles family and membership requests.
type FamilyHandler struct {
	familyService services.FamilyServicer
	auditService  services.AuditServicer
}

// NewFamilyHandler creates a new FamilyHandler.
func NewFamilyHandler(familyService services.FamilyServicer, auditService services.AuditServicer) *FamilyHandler {
	return &FamilyHandler{familyService: familyService, auditService: auditService}
}

// CreateFamilyRequest represents the request payload for creating a family.
type CreateFamilyRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	Currency    string `json:"currency" binding:"required,iso4217"`
}

// ChangeRoleRequest represents the request payload for changing a member's role.
type ChangeRoleRequest struct {
	Role models.Role `json:"role" binding:"required,family_role"`
}

// CreateFamily handles the creation of a new family.
// @Summary     Create a family
// @Description Create a new family with the authenticated user as owner
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateFamilyRequest true "Family details"
// @Success     201 {object} models.Family "Family created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families [post]
func (h *FamilyHandler) CreateFamily(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	family, err := h.familyService.CreateFamily(userID, req.Name, req.Description, req.Currency)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_FAMILY", "family", family.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "currency": req.Currency})

	c.JSON(http.StatusCreated, gin.H{"family": family})
}

// GetFamily handles retrieving a family.
// @Summary     Get family by ID
// @Description Get a family the authenticated user belongs to
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Family ID"
// @Success     200 {object} models.Family "Family details"
// @Failure     400 {object} ErrorResponse "Invalid family ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Family not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{id} [get]
func (h *FamilyHandler) GetFamily(c *gin.Context) {
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

	family, err := h.familyService.GetFamily(userID, familyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"family": family})
}

// ListMembers handles listing a family's members.
// @Summary     List family members
// @Description Get a paginated list of a family's members
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  int true  "Family ID"
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.FamilyMember] "Paginated members"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Not a member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{id}/members [get]
func (h *FamilyHandler) ListMembers(c *gin.Context) {
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

	result, err := h.familyService.ListMembers(userID, familyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ChangeRole handles changing a member's role.
// @Summary     Change a member's role
// @Description Change a family member's role, subject to rank rules
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int               true "Family ID"
// @Param       userID  path int               true "Target user ID"
// @Param       request body ChangeRoleRequest true "New role"
// @Success     200 {object} models.FamilyMember "Updated membership"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Insufficient rank"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Failure     409 {object} ErrorResponse "Last owner violation"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{id}/members/{userID} [put]
func (h *FamilyHandler) ChangeRole(c *gin.Context) {
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
	targetID, err := parsePathID(c, "userID")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.familyService.ChangeRole(userID, familyID, targetID, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CHANGE_ROLE", "family_member", member.ID, c.ClientIP(),
		map[string]interface{}{"family_id": familyID, "target_user_id": targetID, "role": req.Role})

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// RemoveMember handles removing a member from a family.
// @Summary     Remove a family member
// @Description Remove a member from a family; members may remove themselves
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id     path int true "Family ID"
// @Param       userID path int true "Target user ID"
// @Success     204 "Member removed"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Insufficient rank"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Failure     409 {object} ErrorResponse "Last owner violation"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{id}/members/{userID} [delete]
func (h *FamilyHandler) RemoveMember(c *gin.Context) {
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
	targetID, err := parsePathID(c, "userID")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.familyService.RemoveMember(userID, familyID, targetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REMOVE_MEMBER", "family", familyID, c.ClientIP(),
		map[string]interface{}{"target_user_id": targetID})

	c.Status(http.StatusNoContent)
}

// DeleteFamily handles deleting a family.
// @Summary     Delete a family
// @Description Delete a family, its memberships, and pending invitations
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Family ID"
// @Success     204 "Family deleted"
// @Failure     400 {object} ErrorResponse "Invalid family ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Owner only"
// @Failure     404 {object} ErrorResponse "Family not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{id} [delete]
func (h *FamilyHandler) DeleteFamily(c *gin.Context) {
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

	if err := h.familyService.DeleteFamily(userID, familyID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_FAMILY", "family", familyID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
