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

type UserHandler struct {
	BaseHandler
	service services.UserService
}

func NewUserHandler(service services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== REGISTRATION AND PROFILE =====

// RegisterUser registers the authenticated Casdoor account locally
// @Summary Register a user
// @Description Create a local registration in pending status for the authenticated account
// @Tags users
// @Accept json
// @Produce json
// @Param request body services.RegisterUserRequest true "Registration request"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 422 {object} ErrorResponse "Unknown college"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/register [post]
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var req services.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	// Registration is keyed by the Casdoor subject, present even before a
	// local user record exists.
	casdoorID := c.GetString("casdoor_id")
	if casdoorID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req, casdoorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetProfile returns the caller's own user record
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not registered"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the caller's own profile fields
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body services.UpdateProfileRequest true "Profile update request"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not registered"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
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

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ===== DIRECTORY AND VERIFICATION =====

// ListUsers lists users with filters
// @Summary List users
// @Description List users; college-scoped roles only see their own college
// @Tags users
// @Produce json
// @Param q query string false "Search by name or email"
// @Param status query string false "Filter by verification status"
// @Param role query string false "Filter by role"
// @Param college_id query int false "Filter by college (coordinators only)"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.UserListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filters := h.parseUserFilters(c)

	response, err := h.service.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetUser retrieves a user by ID
// @Summary Get a user by ID
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid id parameter",
		})
		return
	}

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ReviewUser verifies or rejects a pending registration
// @Summary Review a registration
// @Description Verify or reject a pending user; coordinators only
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body services.ReviewUserRequest true "Review verdict"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden - coordinator role required"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 422 {object} ErrorResponse "Registration already reviewed"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/{id}/review [put]
func (h *UserHandler) ReviewUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid id parameter",
		})
		return
	}

	var req services.ReviewUserRequest
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

	user, err := h.service.Review(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a rejected registration
// @Summary Delete a user
// @Description Remove a rejected registration; coordinators only
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 422 {object} ErrorResponse "User is not rejected"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid id parameter",
		})
		return
	}

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "User deleted successfully",
	})
}

// ===== HELPERS =====

func (h *UserHandler) parseUserFilters(c *gin.Context) repositories.UserFilters {
	filters := repositories.UserFilters{
		Query: strings.TrimSpace(c.Query("q")),
	}
	filters.Limit, filters.Offset = parsePagination(c)

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.VerificationStatus(statusStr)
		filters.Status = &status
	}

	if roleStr := c.Query("role"); roleStr != "" {
		role := models.UserRole(roleStr)
		filters.Role = &role
	}

	if collegeIDStr := c.Query("college_id"); collegeIDStr != "" {
		if collegeID, err := strconv.ParseUint(collegeIDStr, 10, 32); err == nil {
			id := uint(collegeID)
			filters.CollegeID = &id
		}
	}

	return filters
}

func (h *UserHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Email is already registered",
		})
	case errors.Is(err, services.ErrCollegeNotFound):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Unknown college",
		})
	case errors.Is(err, services.ErrUserNotRejected):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Only rejected registrations can be removed",
		})
	case errors.Is(err, services.ErrUserNotReviewed):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Registration is still pending review",
		})
	case errors.Is(err, services.ErrUserNotVerified):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "User is not verified",
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
