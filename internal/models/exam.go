package models

import (
	"time"

	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamStatusPending  ExamStatus = "pending"
	ExamStatusApproved ExamStatus = "approved"
	ExamStatusRejected ExamStatus = "rejected"
)

// ExamSource tags how a visible exam relates to the viewing user. "assigned"
// means an ExamAssignment row grants access; "available" means the exam is in
// reach through the user's own college or cross-college recruitment.
type ExamSource string

const (
	ExamSourceAssigned  ExamSource = "assigned"
	ExamSourceAvailable ExamSource = "available"
)

type Exam struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Title           string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Subject         string     `json:"subject" gorm:"not null;size:100" validate:"required,max=100"`
	Description     *string    `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	ExamDate        time.Time  `json:"exam_date" gorm:"not null;index"`
	DurationMinutes int        `json:"duration_minutes" gorm:"not null" validate:"required,min=30,max=480"`
	Venue           *string    `json:"venue" gorm:"size:200"`
	Status          ExamStatus `json:"status" gorm:"not null;size:20;default:pending;index" validate:"omitempty,oneof=pending approved rejected"`

	CollegeID    uint  `json:"college_id" gorm:"not null;index"`
	DepartmentID *uint `json:"department_id" gorm:"index"`

	// Approval metadata
	ReviewedBy *string    `json:"reviewed_by" gorm:"size:255"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	ReviewNote *string    `json:"review_note" gorm:"size:500"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	College     College          `json:"college" gorm:"foreignKey:CollegeID"`
	Department  *Department      `json:"department" gorm:"foreignKey:DepartmentID"`
	Creator     User             `json:"creator" gorm:"foreignKey:CreatedBy"`
	Schedule    *ExamSchedule    `json:"schedule" gorm:"foreignKey:ExamID"`
	Assignments []ExamAssignment `json:"assignments,omitempty" gorm:"foreignKey:ExamID"`
	Invites     []ExamInvite     `json:"invites,omitempty" gorm:"foreignKey:ExamID"`

	// Computed fields (not stored)
	AssignmentCount int `json:"assignment_count" gorm:"-"`
	InviteCount     int `json:"invite_count" gorm:"-"`
}

// ExamSchedule carries the session-level timetable row for an exam. It is
// written in the same transaction that creates the exam.
type ExamSchedule struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ExamID    uint      `json:"exam_id" gorm:"not null;uniqueIndex"`
	StartsAt  time.Time `json:"starts_at" gorm:"not null;index"`
	EndsAt    time.Time `json:"ends_at" gorm:"not null"`
	Session   string    `json:"session" gorm:"size:20;default:morning"` // morning / afternoon / evening
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExamAssignment links a user to an exam as an assigned examiner. It is the
// only way a college-scoped user gains access to an exam outside their own
// college.
type ExamAssignment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ExamID     uint      `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_exam_user"`
	UserID     string    `json:"user_id" gorm:"not null;index;size:255;uniqueIndex:idx_exam_user"`
	AssignedBy string    `json:"assigned_by" gorm:"not null;size:255"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	Exam Exam `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (Exam) TableName() string {
	return "exams"
}

func (ExamSchedule) TableName() string {
	return "exam_schedules"
}

func (ExamAssignment) TableName() string {
	return "exam_assignments"
}
