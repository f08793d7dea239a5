package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/services"
	"github.com/eems-edu/examiner-service/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	service services.ExamService
}

func NewExamHandler(service services.ExamService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== CORE CRUD ENDPOINTS =====

// CreateExam creates a new exam
// @Summary Create a new exam
// @Description Create a new exam in pending status, scoped to the creator's college
// @Tags exams
// @Accept json
// @Produce json
// @Param request body services.CreateExamRequest true "Exam creation request"
// @Success 201 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden - user not verified"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req services.CreateExamRequest
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

// GetExam retrieves an exam by ID
// @Summary Get an exam by ID
// @Description Retrieve an exam the caller is allowed to see
// @Tags exams
// @Produce json
// @Param id path int true "Exam ID"
// @Success 200 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden - exam belongs to another college"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
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

// GetExamWithDetails retrieves an exam with schedule, assignments and invites
// @Summary Get an exam by ID with details
// @Description Retrieve an exam with its schedule, examiner assignments and invitations
// @Tags exams
// @Produce json
// @Param id path int true "Exam ID"
// @Success 200 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams/{id}/details [get]
func (h *ExamHandler) GetExamWithDetails(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	response, err := h.service.GetByIDWithDetails(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateExam updates an exam
// @Summary Update an exam
// @Description Update an exam; owners may edit while pending, coordinators at any time
// @Tags exams
// @Accept json
// @Produce json
// @Param id path int true "Exam ID"
// @Param request body services.UpdateExamRequest true "Exam update request"
// @Success 200 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 422 {object} ErrorResponse "Business rule violation"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams/{id} [put]
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateExamRequest
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

	response, err := h.service.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// DeleteExam deletes an exam
// @Summary Delete an exam
// @Description Delete an exam; approved exams with outstanding invitations cannot be removed
// @Tags exams
// @Produce json
// @Param id path int true "Exam ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 422 {object} ErrorResponse "Business rule violation"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams/{id} [delete]
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
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
		Message: "Exam deleted successfully",
	})
}

// ===== LIST ENDPOINTS =====

// ListExams lists exams with filters
// @Summary List exams
// @Description List exams visible to the caller, filtered and paginated
// @Tags exams
// @Produce json
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Param college_id query int false "Filter by college (coordinators only)"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.ExamListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filters := h.parseExamFilters(c)

	response, err := h.service.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetVisibleExams returns the caller's merged exam view
// @Summary Get visible exams
// @Description Assigned exams first, then college exams, then recruitable exams for teachers
// @Tags exams
// @Produce json
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.ExamListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams/visible [get]
func (h *ExamHandler) GetVisibleExams(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filters := h.parseExamFilters(c)

	response, err := h.service.GetVisibleExams(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ===== APPROVAL WORKFLOW =====

// ReviewExam approves or rejects a pending exam
// @Summary Review an exam
// @Description Approve or reject a pending exam; coordinators only
// @Tags exams
// @Accept json
// @Produce json
// @Param id path int true "Exam ID"
// @Param request body services.ReviewExamRequest true "Review verdict"
// @Success 200 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden - coordinator role required"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 422 {object} ErrorResponse "Exam is not pending review"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams/{id}/review [put]
func (h *ExamHandler) ReviewExam(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ReviewExamRequest
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

	response, err := h.service.Review(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ===== EXAMINER ASSIGNMENT =====

// AssignExaminer assigns an examiner to an approved exam
// @Summary Assign an examiner
// @Description Assign a verified user as examiner on an approved exam
// @Tags exams
// @Accept json
// @Produce json
// @Param id path int true "Exam ID"
// @Param request body services.AssignExaminerRequest true "Examiner assignment request"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "Already assigned"
// @Failure 422 {object} ErrorResponse "Exam is not approved"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams/{id}/examiners [post]
func (h *ExamHandler) AssignExaminer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.AssignExaminerRequest
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

	if err := h.service.AssignExaminer(c.Request.Context(), id, &req, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Examiner assigned successfully",
	})
}

// UnassignExaminer removes an examiner assignment
// @Summary Unassign an examiner
// @Description Remove a user's examiner assignment from an exam
// @Tags exams
// @Produce json
// @Param id path int true "Exam ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found / not assigned"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /exams/{id}/examiners/{user_id} [delete]
func (h *ExamHandler) UnassignExaminer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	targetID := strings.TrimSpace(c.Param("user_id"))
	if targetID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid user_id parameter",
		})
		return
	}

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.service.UnassignExaminer(c.Request.Context(), id, targetID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Examiner unassigned successfully",
	})
}

// ===== HELPERS =====

func (h *ExamHandler) parseExamFilters(c *gin.Context) repositories.ExamFilters {
	filters := repositories.ExamFilters{}
	filters.Limit, filters.Offset = parsePagination(c)

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ExamStatus(statusStr)
		filters.Status = &status
	}

	if collegeIDStr := c.Query("college_id"); collegeIDStr != "" {
		if collegeID, err := strconv.ParseUint(collegeIDStr, 10, 32); err == nil {
			id := uint(collegeID)
			filters.CollegeID = &id
		}
	}

	if departmentIDStr := c.Query("department_id"); departmentIDStr != "" {
		if departmentID, err := strconv.ParseUint(departmentIDStr, 10, 32); err == nil {
			id := uint(departmentID)
			filters.DepartmentID = &id
		}
	}

	if createdBy := strings.TrimSpace(c.Query("created_by")); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	if dateFromStr := c.Query("date_from"); dateFromStr != "" {
		if dateFrom, err := time.Parse(time.RFC3339, dateFromStr); err == nil {
			filters.DateFrom = &dateFrom
		}
	}

	if dateToStr := c.Query("date_to"); dateToStr != "" {
		if dateTo, err := time.Parse(time.RFC3339, dateToStr); err == nil {
			filters.DateTo = &dateTo
		}
	}

	filters.UpcomingOnly = c.Query("upcoming_only") == "true"
	filters.SortBy = c.Query("sort_by")
	filters.SortOrder = c.Query("sort_order")

	return filters
}

func (h *ExamHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
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

	// Handle specific exam errors
	switch {
	case errors.Is(err, services.ErrExamNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Exam not found",
		})
	case errors.Is(err, services.ErrExamAccessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied to exam",
		})
	case errors.Is(err, services.ErrExamNotEditable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Exam cannot be edited in its current status",
		})
	case errors.Is(err, services.ErrExamNotDeletable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Exam cannot be deleted",
		})
	case errors.Is(err, services.ErrExamNotPending):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Exam is not pending review",
		})
	case errors.Is(err, services.ErrExamNotApproved):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Exam is not approved",
		})
	case errors.Is(err, services.ErrAssignmentExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "User is already assigned to this exam",
		})
	case errors.Is(err, services.ErrAssignmentMissing):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User is not assigned to this exam",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrUserNotVerified):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "User is not verified",
		})
	// Generic errors
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
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
