package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/services"
	"github.com/eems-edu/examiner-service/internal/utils"
)

type NotificationHandler struct {
	BaseHandler
	service services.NotificationService
}

func NewNotificationHandler(service services.NotificationService, logger utils.Logger) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListNotifications lists the caller's notifications
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Param type query string false "Filter by notification type"
// @Param unread_only query bool false "Only unread notifications"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.NotificationListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filters := repositories.NotificationFilters{
		UnreadOnly: c.Query("unread_only") == "true",
	}
	filters.Limit, filters.Offset = parsePagination(c)
	if typeStr := c.Query("type"); typeStr != "" {
		ntype := models.NotificationType(typeStr)
		filters.Type = &ntype
	}

	response, err := h.service.List(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetUnreadCount returns the caller's unread notification count
// @Summary Count unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /notifications/unread [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	count, err := h.service.CountUnread(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks one notification as read
// @Summary Mark a notification as read
// @Description Owner-scoped; marking someone else's notification is a silent no-op
// @Tags notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Notification marked as read",
	})
}

// MarkAllRead marks every unread notification of the caller as read
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "All notifications marked as read",
	})
}

func (h *NotificationHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Notification not found",
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
