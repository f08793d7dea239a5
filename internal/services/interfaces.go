package services

import (
	"context"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateExamRequest = validator.ExamCreateRequest
type UpdateExamRequest = validator.ExamUpdateRequest
type ReviewExamRequest = validator.ExamReviewRequest
type RegisterUserRequest = validator.UserRegisterRequest
type ReviewUserRequest = validator.UserReviewRequest
type CreateInviteRequest = validator.InviteCreateRequest
type RespondInviteRequest = validator.InviteResponseRequest
type AssignExaminerRequest = validator.AssignExaminerRequest
type ValidationErrors = validator.ValidationErrors

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=2,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

type ExamResponse struct {
	*models.Exam
	Source    models.ExamSource `json:"source,omitempty"`
	CanEdit   bool              `json:"can_edit"`
	CanDelete bool              `json:"can_delete"`
	CanReview bool              `json:"can_review"`
}

type ExamListResponse struct {
	Exams []*ExamResponse `json:"exams"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// InviteResponse is the owner-side view of an invitation. ResponseURL is only
// populated on creation; the raw token is never echoed afterwards.
type InviteResponse struct {
	*models.ExamInvite
	ResponseURL string `json:"response_url,omitempty"`
}

type InviteListResponse struct {
	Invites []*InviteResponse `json:"invites"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
}

// InvitePublicView is what the token-keyed public endpoint exposes: enough
// for the recipient to decide, nothing about other invitees or internals.
type InvitePublicView struct {
	ExamTitle   string              `json:"exam_title"`
	Subject     string              `json:"subject"`
	ExamDate    string              `json:"exam_date"`
	Venue       *string             `json:"venue,omitempty"`
	CollegeName string              `json:"college_name"`
	Status      models.InviteStatus `json:"status"`
	Expired     bool                `json:"expired"`
}

// RespondInviteResult reports the outcome of an accept/decline call.
// AlreadyResponded means the invite had left pending before this call; the
// carried invite reflects the stored outcome, not the request.
type RespondInviteResult struct {
	Invite           *models.ExamInvite `json:"invite"`
	AlreadyResponded bool               `json:"already_responded"`
}

type NotificationListResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int64                  `json:"total"`
	Unread        int64                  `json:"unread"`
}

// ===== SERVICE INTERFACES =====

type ExamService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*ExamResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*ExamResponse, error)
	GetByIDWithDetails(ctx context.Context, id uint, userID string) (*ExamResponse, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*ExamResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	List(ctx context.Context, filters repositories.ExamFilters, userID string) (*ExamListResponse, error)
	GetVisibleExams(ctx context.Context, userID string, filters repositories.ExamFilters) (*ExamListResponse, error)

	// Approval workflow
	Review(ctx context.Context, id uint, req *ReviewExamRequest, reviewerID string) (*ExamResponse, error)

	// Examiner assignment
	AssignExaminer(ctx context.Context, examID uint, req *AssignExaminerRequest, assignerID string) error
	UnassignExaminer(ctx context.Context, examID uint, userID string, assignerID string) error

	// Permission checks
	CanAccess(ctx context.Context, examID uint, userID string) (bool, error)
	CanEdit(ctx context.Context, examID uint, userID string) (bool, error)
	CanDelete(ctx context.Context, examID uint, userID string) (bool, error)
}

type UserService interface {
	Register(ctx context.Context, req *RegisterUserRequest, casdoorID string) (*models.User, error)
	GetByID(ctx context.Context, id string, requesterID string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters, requesterID string) (*UserListResponse, error)

	// Verification workflow
	Review(ctx context.Context, id string, req *ReviewUserRequest, reviewerID string) (*models.User, error)

	// Delete removes a registration; only rejected users may be removed.
	Delete(ctx context.Context, id string, requesterID string) error
}

type InviteService interface {
	Create(ctx context.Context, req *CreateInviteRequest, creatorID string) (*InviteResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*InviteResponse, error)
	List(ctx context.Context, filters repositories.InviteFilters, userID string) (*InviteListResponse, error)

	// Token-keyed public operations
	GetByToken(ctx context.Context, token string) (*InvitePublicView, error)
	Respond(ctx context.Context, token string, req *RespondInviteRequest) (*RespondInviteResult, error)
}

type NotificationService interface {
	// Send persists and publishes a notification. Callers treat failures as
	// non-fatal: log and continue.
	Send(ctx context.Context, userID string, ntype models.NotificationType, title, message string, data map[string]interface{}) error

	List(ctx context.Context, userID string, filters repositories.NotificationFilters) (*NotificationListResponse, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id uint, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type ReportService interface {
	GetDashboardStats(ctx context.Context, userID string) (*models.DashboardStats, error)

	// Export operations return the file content and a suggested filename.
	ExportExams(ctx context.Context, filters repositories.ExamFilters, userID string) ([]byte, string, error)
	ExportInvites(ctx context.Context, filters repositories.InviteFilters, userID string) ([]byte, string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Exam() ExamService
	User() UserService
	Invite() InviteService
	Notification() NotificationService
	Report() ReportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
