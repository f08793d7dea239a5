package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eems-edu/examiner-service/internal/services"
	"github.com/eems-edu/examiner-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	BaseHandler
	service services.ReportService
	exams   *ExamHandler
	invites *InviteHandler
}

func NewReportHandler(service services.ReportService, exams *ExamHandler, invites *InviteHandler, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		exams:       exams,
		invites:     invites,
	}
}

// GetDashboardStats returns role-scoped dashboard statistics
// @Summary Get dashboard statistics
// @Description College-scoped roles receive their own college's numbers; coordinators receive system-wide breakdowns
// @Tags reports
// @Produce json
// @Success 200 {object} models.DashboardStats
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports/dashboard [get]
func (h *ReportHandler) GetDashboardStats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	stats, err := h.service.GetDashboardStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportExams streams an xlsx export of exams
// @Summary Export exams as xlsx
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Filter by status"
// @Param college_id query int false "Filter by college (coordinators only)"
// @Success 200 {file} binary
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports/exams.xlsx [get]
func (h *ReportHandler) ExportExams(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Exports are unpaginated; the service reads everything in scope.
	filters := h.exams.parseExamFilters(c)
	filters.Limit = 0
	filters.Offset = 0

	content, filename, err := h.service.ExportExams(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, content)
}

// ExportInvites streams an xlsx export of invitations
// @Summary Export invitations as xlsx
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param exam_id query int false "Filter by exam"
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports/invites.xlsx [get]
func (h *ReportHandler) ExportInvites(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filters := h.invites.parseInviteFilters(c)
	filters.Limit = 0
	filters.Offset = 0

	content, filename, err := h.service.ExportInvites(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, content)
}

func (h *ReportHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized access",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
