package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/services"
	"github.com/eems-edu/examiner-service/internal/utils"
)

type InviteHandler struct {
	BaseHandler
	service services.InviteService
}

func NewInviteHandler(service services.InviteService, logger utils.Logger) *InviteHandler {
	return &InviteHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== OWNER-SIDE ENDPOINTS =====

// CreateInvite sends an examiner invitation for an approved exam
// @Summary Create an invitation
// @Description Invite an external examiner by email; the response carries the one-time response URL
// @Tags invites
// @Accept json
// @Produce json
// @Param request body services.CreateInviteRequest true "Invitation request"
// @Success 201 {object} services.InviteResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Exam not found"
// @Failure 422 {object} ErrorResponse "Exam is not approved"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /invites [post]
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	var req services.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	response, err := h.service.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetInvite retrieves an invitation by ID
// @Summary Get an invitation by ID
// @Description Visible to the invite creator, the exam owner and coordinators
// @Tags invites
// @Produce json
// @Param id path int true "Invitation ID"
// @Success 200 {object} services.InviteResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /invites/{id} [get]
func (h *InviteHandler) GetInvite(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	response, err := h.service.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListInvites lists invitations with filters
// @Summary List invitations
// @Description Non-coordinators only see invitations they created
// @Tags invites
// @Produce json
// @Param exam_id query int false "Filter by exam"
// @Param status query string false "Filter by status"
// @Param email query string false "Filter by recipient email"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.InviteListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /invites [get]
func (h *InviteHandler) ListInvites(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filters := h.parseInviteFilters(c)

	response, err := h.service.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ===== TOKEN-KEYED PUBLIC ENDPOINTS =====

// GetInviteByToken shows the public view of an invitation
// @Summary View an invitation by token
// @Description Public endpoint; the token is the only credential
// @Tags invites
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} services.InvitePublicView
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /invites/{token} [get]
func (h *InviteHandler) GetInviteByToken(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Invitation not found",
		})
		return
	}

	view, err := h.service.GetByToken(c.Request.Context(), token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// RespondInvite accepts or declines an invitation
// @Summary Respond to an invitation
// @Description Public endpoint; repeated responses return the stored outcome unchanged
// @Tags invites
// @Accept json
// @Produce json
// @Param token path string true "Invitation token"
// @Param request body services.RespondInviteRequest true "Accept or decline"
// @Success 200 {object} services.RespondInviteResult
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 410 {object} ErrorResponse "Invitation expired"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /invites/{token}/respond [post]
func (h *InviteHandler) RespondInvite(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Invitation not found",
		})
		return
	}

	var req services.RespondInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	result, err := h.service.Respond(c.Request.Context(), token, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ===== HELPERS =====

func (h *InviteHandler) parseInviteFilters(c *gin.Context) repositories.InviteFilters {
	filters := repositories.InviteFilters{}
	filters.Limit, filters.Offset = parsePagination(c)

	if examIDStr := c.Query("exam_id"); examIDStr != "" {
		if examID, err := strconv.ParseUint(examIDStr, 10, 32); err == nil {
			id := uint(examID)
			filters.ExamID = &id
		}
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.InviteStatus(statusStr)
		filters.Status = &status
	}

	if email := strings.TrimSpace(c.Query("email")); email != "" {
		email = strings.ToLower(email)
		filters.Email = &email
	}

	if createdBy := strings.TrimSpace(c.Query("created_by")); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	return filters
}

func (h *InviteHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrInviteNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Invitation not found",
		})
	case errors.Is(err, services.ErrInviteExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Message: "Invitation has expired",
		})
	case errors.Is(err, services.ErrInviteAlreadyResponded):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Invitation has already been responded to",
		})
	case errors.Is(err, services.ErrExamNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Exam not found",
		})
	case errors.Is(err, services.ErrExamNotApproved):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Exam is not approved",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized access",
		})
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrInsufficientPermissions):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Forbidden - insufficient permissions",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
