package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	Status       *models.ExamStatus `json:"status"`
	CollegeID    *uint              `json:"college_id"`
	DepartmentID *uint              `json:"department_id"`
	CreatedBy    *string            `json:"created_by"`
	DateFrom     *time.Time         `json:"date_from"`
	DateTo       *time.Time         `json:"date_to"`
	UpcomingOnly bool               `json:"upcoming_only"`
	Limit        int                `json:"limit"`
	Offset       int                `json:"offset"`
	SortBy       string             `json:"sort_by"`    // "exam_date", "created_at", "title"
	SortOrder    string             `json:"sort_order"` // "asc", "desc"
}

type InviteFilters struct {
	ExamID    *uint                `json:"exam_id"`
	Status    *models.InviteStatus `json:"status"`
	Email     *string              `json:"email"`
	CreatedBy *string              `json:"created_by"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
}

type NotificationFilters struct {
	Type       *models.NotificationType `json:"type"`
	UnreadOnly bool                     `json:"unread_only"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
}

// ===== DOMAIN REPOSITORY INTERFACES =====

type ExamRepository interface {
	// Create persists the exam together with its schedule row in one
	// transaction.
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam, schedule *models.ExamSchedule) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// List applies the given filters plus the college scope for the role.
	List(ctx context.Context, tx *gorm.DB, role models.UserRole, collegeID uint, filters ExamFilters) ([]*models.Exam, int64, error)
	ListAssigned(ctx context.Context, tx *gorm.DB, userID string, filters ExamFilters) ([]*models.Exam, error)
	ListRecruitable(ctx context.Context, tx *gorm.DB, userID string, excludeCollegeID uint, now time.Time) ([]*models.Exam, error)

	CountByStatus(ctx context.Context, tx *gorm.DB, scope func(*gorm.DB) *gorm.DB) (map[models.ExamStatus]int64, error)
	CountByCollege(ctx context.Context, tx *gorm.DB) ([]models.CollegeExamCount, error)
	CountUpcoming(ctx context.Context, tx *gorm.DB, scope func(*gorm.DB) *gorm.DB, now time.Time) (int64, error)
}

type ExamAssignmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *models.ExamAssignment) error
	Delete(ctx context.Context, tx *gorm.DB, examID uint, userID string) error
	Exists(ctx context.Context, tx *gorm.DB, examID uint, userID string) (bool, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamAssignment, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.ExamAssignment, error)
}

type InviteRepository interface {
	Create(ctx context.Context, tx *gorm.DB, invite *models.ExamInvite) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamInvite, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.ExamInvite, error)
	List(ctx context.Context, tx *gorm.DB, filters InviteFilters) ([]*models.ExamInvite, int64, error)

	// MarkResponded transitions the invite from pending to the given terminal
	// status. It must be a guarded single-statement update: zero rows affected
	// means the invite was no longer pending.
	MarkResponded(ctx context.Context, tx *gorm.DB, id uint, status models.InviteStatus, comment, availability *string, respondedAt time.Time) (bool, error)

	CountByStatus(ctx context.Context, tx *gorm.DB) ([]models.InviteStatusCount, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, notification *models.Notification) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters NotificationFilters) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, tx *gorm.DB, userID string) (int64, error)

	// MarkRead sets read_at only when the notification belongs to userID;
	// otherwise it is a silent no-op.
	MarkRead(ctx context.Context, tx *gorm.DB, id uint, userID string, readAt time.Time) error
	MarkAllRead(ctx context.Context, tx *gorm.DB, userID string, readAt time.Time) error
}

type CollegeRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.College, error)
	List(ctx context.Context, tx *gorm.DB) ([]*models.College, error)
	ListDepartments(ctx context.Context, tx *gorm.DB, collegeID uint) ([]*models.Department, error)
}
