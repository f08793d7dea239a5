package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eems-edu/examiner-service/internal/utils"
)

// ===== SHARED HANDLER TYPES =====

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogError logs an error with the request-scoped logger when available.
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	logger := utils.GetContextLogger(c, h.logger)
	logger.Error(msg, "error", err, "path", c.Request.URL.Path, "method", c.Request.Method)
}

// ===== SHARED PARSING HELPERS =====

// parseIDParam parses a numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return uint(id), true
}

// parseIntQuery parses an integer query parameter, falling back to def on
// absence or garbage.
func parseIntQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

// parsePagination returns limit/offset from page/size query parameters.
// Size is capped so a single request cannot pull the whole table.
func parsePagination(c *gin.Context) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := parseIntQuery(c, "size", 20)
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return size, (page - 1) * size
}

// requireUserID pulls the authenticated user ID from context, writing a 401
// when the auth middleware has not set it (unregistered or missing token).
func requireUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}

	return id, true
}
