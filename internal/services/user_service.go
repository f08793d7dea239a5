package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/events"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	notifier  NotificationService
}

func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, notifier NotificationService) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		notifier:  notifier,
	}
}

// Register creates a local user record for an authenticated identity. The
// record starts pending and stays invisible to the workflow until a
// coordinator verifies it. The free-text post is kept verbatim; the canonical
// role is derived from it and only ever widened by an explicit re-review.
func (s *userService) Register(ctx context.Context, req *RegisterUserRequest, casdoorID string) (*models.User, error) {
	s.logger.Info("Registering user", "casdoor_id", casdoorID, "email", req.Email)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.User().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("email check failed: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	if _, err := s.repo.College().GetByID(ctx, nil, req.CollegeID); err != nil {
		return nil, mapNotFound(err, ErrCollegeNotFound)
	}

	user := &models.User{
		ID:           casdoorID,
		FullName:     req.FullName,
		Email:        email,
		Post:         req.Post,
		Role:         models.NormalizeRole(req.Post),
		CollegeID:    req.CollegeID,
		DepartmentID: req.DepartmentID,
		Status:       models.VerificationPending,
		Phone:        req.Phone,
	}

	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventUserRegistered, map[string]interface{}{
		"user_id":    user.ID,
		"college_id": user.CollegeID,
		"role":       user.Role,
	}))

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id string, requesterID string) (*models.User, error) {
	requester, err := s.getUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	// College-scoped roles only see users of their own college.
	if requester.Role.IsCollegeScoped() && requester.ID != user.ID && requester.CollegeID != user.CollegeID {
		return nil, NewPermissionError(requesterID, 0, "user", "read", "user belongs to another college")
	}

	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

func (s *userService) List(ctx context.Context, filters repositories.UserFilters, requesterID string) (*UserListResponse, error) {
	requester, err := s.getUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	// Scoped roles are pinned to their own college regardless of the filter.
	if requester.Role.IsCollegeScoped() {
		filters.CollegeID = &requester.CollegeID
	}

	users, total, err := s.repo.User().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &UserListResponse{
		Users: users,
		Total: total,
		Page:  pageFromOffset(filters.Offset, filters.Limit),
		Size:  filters.Limit,
	}, nil
}

// ===== VERIFICATION WORKFLOW =====

func (s *userService) Review(ctx context.Context, id string, req *ReviewUserRequest, reviewerID string) (*models.User, error) {
	s.logger.Info("Reviewing user registration", "user_id", id, "reviewer_id", reviewerID, "decision", req.Status)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	reviewer, err := s.getUser(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer.Role.IsCoordinator() {
		return nil, NewPermissionError(reviewerID, 0, "user", "review", "insufficient role permissions")
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status != models.VerificationPending {
		return nil, NewBusinessRuleError(
			"USER-ALREADY-REVIEWED",
			fmt.Sprintf("registration has already been %s", user.Status),
			map[string]interface{}{"user_id": user.ID, "status": user.Status},
		)
	}

	now := time.Now()
	if err := s.repo.User().SetStatus(ctx, nil, id, req.Status, reviewerID, now); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	user.Status = req.Status
	user.VerifiedBy = &reviewerID
	user.VerifiedAt = &now

	s.publishEvent(ctx, events.NewEvent(events.EventUserReviewed, events.UserReviewedEvent{
		UserID:     user.ID,
		Status:     string(user.Status),
		ReviewedBy: reviewerID,
	}))

	ntype := models.NotificationUserVerified
	verdict := "approved"
	if req.Status == models.VerificationRejected {
		ntype = models.NotificationUserRejected
		verdict = "rejected"
	}
	s.notify(ctx, user.ID, ntype,
		fmt.Sprintf("Registration %s", verdict),
		fmt.Sprintf("Your examiner registration has been %s", verdict),
		map[string]interface{}{"user_id": user.ID},
	)

	return user, nil
}

// Delete hard-removes a registration. Only rejected users can be removed and
// only by a coordinator; verified users must go through deactivation instead.
func (s *userService) Delete(ctx context.Context, id string, requesterID string) error {
	s.logger.Info("Deleting user", "user_id", id, "requester_id", requesterID)

	requester, err := s.getUser(ctx, requesterID)
	if err != nil {
		return err
	}
	if !requester.Role.IsCoordinator() {
		return NewPermissionError(requesterID, 0, "user", "delete", "insufficient role permissions")
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Status != models.VerificationRejected {
		return ErrUserNotRejected
	}

	if err := s.repo.User().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

// ===== INTERNAL HELPERS =====

func (s *userService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) publishEvent(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "type", event.Type, "error", err)
	}
}

func (s *userService) notify(ctx context.Context, userID string, ntype models.NotificationType, title, message string, data map[string]interface{}) {
	if err := s.notifier.Send(ctx, userID, ntype, title, message, data); err != nil {
		s.logger.Warn("Failed to send notification", "user_id", userID, "type", ntype, "error", err)
	}
}
