package services

import (
	"context"

	"github.com/eems-edu/examiner-service/internal/events"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

// ===== PERMISSION CHECKS =====

func (s *examService) CanAccess(ctx context.Context, examID uint, userID string) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	return s.canAccessExam(ctx, exam, user)
}

func (s *examService) CanEdit(ctx context.Context, examID uint, userID string) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	return s.canEditExam(exam, user), nil
}

func (s *examService) CanDelete(ctx context.Context, examID uint, userID string) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	return s.canDeleteExam(exam, user), nil
}

// canAccessExam decides visibility: coordinators see everything, everyone
// sees their own college, and a cross-college exam is reachable only through
// an assignment row.
func (s *examService) canAccessExam(ctx context.Context, exam *models.Exam, user *models.User) (bool, error) {
	if user.Role.IsCoordinator() {
		return true, nil
	}
	if exam.CollegeID == user.CollegeID {
		return true, nil
	}
	return s.repo.ExamAssignment().Exists(ctx, nil, exam.ID, user.ID)
}

// canEditExam: coordinators always; owners only while the exam is pending.
func (s *examService) canEditExam(exam *models.Exam, user *models.User) bool {
	if user.Role.IsCoordinator() {
		return true
	}
	return exam.CreatedBy == user.ID && exam.Status == models.ExamStatusPending
}

func (s *examService) canDeleteExam(exam *models.Exam, user *models.User) bool {
	if user.Role.IsCoordinator() {
		return true
	}
	return exam.CreatedBy == user.ID && exam.Status == models.ExamStatusPending
}

// ===== INTERNAL HELPERS =====

func (s *examService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *examService) getVerifiedUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.VerificationVerified {
		return nil, ErrUserNotVerified
	}
	return user, nil
}

func (s *examService) buildExamResponse(ctx context.Context, exam *models.Exam, viewer *models.User) *ExamResponse {
	resp := &ExamResponse{
		Exam:      exam,
		CanEdit:   s.canEditExam(exam, viewer),
		CanDelete: s.canDeleteExam(exam, viewer),
		CanReview: viewer.Role.IsCoordinator() && exam.Status == models.ExamStatusPending,
	}
	if exam.CollegeID == viewer.CollegeID || viewer.Role.IsCoordinator() {
		resp.Source = models.ExamSourceAvailable
	} else {
		resp.Source = models.ExamSourceAssigned
	}
	return resp
}

func applyExamUpdate(exam *models.Exam, req *UpdateExamRequest) {
	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Subject != nil {
		exam.Subject = *req.Subject
	}
	if req.Description != nil {
		exam.Description = req.Description
	}
	if req.ExamDate != nil {
		exam.ExamDate = *req.ExamDate
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.Venue != nil {
		exam.Venue = req.Venue
	}
	if req.DepartmentID != nil {
		exam.DepartmentID = req.DepartmentID
	}
}

// publishEvent emits a domain event; failures are logged, never fatal.
func (s *examService) publishEvent(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "type", event.Type, "error", err)
	}
}

func pageFromOffset(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}

// notify records a notification for the user; failures are logged and
// swallowed so the primary action never fails on a side effect.
func (s *examService) notify(ctx context.Context, userID string, ntype models.NotificationType, title, message string, data map[string]interface{}) {
	if err := s.notifier.Send(ctx, userID, ntype, title, message, data); err != nil {
		s.logger.Warn("Failed to send notification", "user_id", userID, "type", ntype, "error", err)
	}
}
