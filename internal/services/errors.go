package services

import (
	"errors"
	"fmt"

	"github.com/eems-edu/examiner-service/internal/repositories"
)

// ===== SENTINEL ERRORS =====

var (
	// Exam domain
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamAccessDenied  = errors.New("access denied to exam")
	ErrExamNotEditable   = errors.New("exam cannot be edited in current status")
	ErrExamNotDeletable  = errors.New("exam cannot be deleted")
	ErrExamNotPending    = errors.New("exam is not pending review")
	ErrExamNotApproved   = errors.New("exam is not approved")
	ErrAssignmentExists  = errors.New("user is already assigned to this exam")
	ErrAssignmentMissing = errors.New("user is not assigned to this exam")

	// Invitation domain
	ErrInviteNotFound         = errors.New("invitation not found")
	ErrInviteAlreadyResponded = errors.New("invitation has already been responded to")
	ErrInviteExpired          = errors.New("invitation has expired")

	// User domain
	ErrUserNotFound     = errors.New("user not found")
	ErrUserNotVerified  = errors.New("user is not verified")
	ErrUserNotRejected  = errors.New("user is not rejected")
	ErrDuplicateEmail   = errors.New("email is already registered")
	ErrUserNotReviewed  = errors.New("user registration is still pending review")

	// Notification domain
	ErrNotificationNotFound = errors.New("notification not found")

	// Org domain
	ErrCollegeNotFound = errors.New("college not found")

	// Generic
	ErrValidationFailed        = errors.New("validation failed")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

// ===== STRUCTURED ERRORS =====

// PermissionError captures who tried to do what to which resource, and why
// it was denied.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError represents a domain rule violation with structured
// context for the API response.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// mapNotFound converts repository not-found errors into the given sentinel,
// leaving other errors untouched.
func mapNotFound(err, sentinel error) error {
	if repositories.IsNotFoundError(err) {
		return sentinel
	}
	return err
}
