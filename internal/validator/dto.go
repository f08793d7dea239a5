package validator

import (
	"time"

	"github.com/eems-edu/examiner-service/internal/models"
)

// ExamCreateRequest represents the request structure for scheduling exams
type ExamCreateRequest struct {
	Title           string     `json:"title" validate:"required,min=1,max=200"`
	Subject         string     `json:"subject" validate:"required,max=100"`
	Description     *string    `json:"description" validate:"omitempty,max=2000"`
	ExamDate        time.Time  `json:"exam_date" validate:"required,future_date"`
	DurationMinutes int        `json:"duration_minutes" validate:"required,exam_duration"`
	Venue           *string    `json:"venue" validate:"omitempty,max=200"`
	DepartmentID    *uint      `json:"department_id"`
	Session         string     `json:"session" validate:"omitempty,oneof=morning afternoon evening"`
}

// ExamUpdateRequest represents the request structure for updating exams
type ExamUpdateRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Subject         *string    `json:"subject" validate:"omitempty,max=100"`
	Description     *string    `json:"description" validate:"omitempty,max=2000"`
	ExamDate        *time.Time `json:"exam_date" validate:"omitempty,future_date"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,exam_duration"`
	Venue           *string    `json:"venue" validate:"omitempty,max=200"`
	DepartmentID    *uint      `json:"department_id"`
}

// ExamReviewRequest carries an approve/reject decision
type ExamReviewRequest struct {
	Status models.ExamStatus `json:"status" validate:"required,oneof=approved rejected"`
	Note   *string           `json:"note" validate:"omitempty,max=500"`
}

// UserRegisterRequest represents a new examiner registration
type UserRegisterRequest struct {
	FullName     string  `json:"full_name" validate:"required,min=2,max=100"`
	Email        string  `json:"email" validate:"required,email,max=255"`
	Post         string  `json:"post" validate:"required,max=100"`
	CollegeID    uint    `json:"college_id" validate:"required"`
	DepartmentID *uint   `json:"department_id"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
}

// UserReviewRequest carries a verify/reject decision on a registration
type UserReviewRequest struct {
	Status models.VerificationStatus `json:"status" validate:"required,oneof=verified rejected"`
}

// InviteCreateRequest invites an external examiner to an exam
type InviteCreateRequest struct {
	ExamID      uint    `json:"exam_id" validate:"required"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	InvitedRole *string `json:"invited_role" validate:"omitempty,max=100,user_role"`
	TTLHours    *int    `json:"ttl_hours" validate:"omitempty,min=1,max=720"`
}

// InviteResponseRequest is the public accept/decline payload keyed by token
type InviteResponseRequest struct {
	Response     models.InviteStatus `json:"response" validate:"required,oneof=accepted declined"`
	Comment      *string             `json:"comment" validate:"omitempty,max=1000"`
	Availability *string             `json:"availability" validate:"omitempty,max=200"`
}

// AssignExaminerRequest grants a user cross-college access to an exam
type AssignExaminerRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
