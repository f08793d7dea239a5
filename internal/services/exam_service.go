package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/events"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	notifier  NotificationService
}

func NewExamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, notifier NotificationService) ExamService {
	return &examService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		notifier:  notifier,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*ExamResponse, error) {
	s.logger.Info("Creating exam", "creator_id", creatorID, "title", req.Title)

	// Validate request with business rules
	if errs := s.validator.GetBusinessValidator().ValidateExamCreate(req); len(errs) > 0 {
		return nil, errs
	}

	creator, err := s.getVerifiedUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:           req.Title,
		Subject:         req.Subject,
		Description:     req.Description,
		ExamDate:        req.ExamDate,
		DurationMinutes: req.DurationMinutes,
		Venue:           req.Venue,
		Status:          models.ExamStatusPending,
		CollegeID:       creator.CollegeID,
		DepartmentID:    req.DepartmentID,
		CreatedBy:       creator.ID,
	}
	if exam.DepartmentID == nil {
		exam.DepartmentID = creator.DepartmentID
	}

	session := req.Session
	if session == "" {
		session = "morning"
	}
	schedule := &models.ExamSchedule{
		StartsAt: req.ExamDate,
		EndsAt:   req.ExamDate.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Session:  session,
	}

	// Exam and schedule rows are written in a single transaction; a schedule
	// must never exist without its exam and vice versa.
	if err := s.repo.Exam().Create(ctx, nil, exam, schedule); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventExamCreated, map[string]interface{}{
		"exam_id":    exam.ID,
		"college_id": exam.CollegeID,
		"created_by": exam.CreatedBy,
	}))

	return s.buildExamResponse(ctx, exam, creator), nil
}

func (s *examService) GetByID(ctx context.Context, id uint, userID string) (*ExamResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound)
	}

	allowed, err := s.canAccessExam(ctx, exam, user)
	if err != nil {
		return nil, fmt.Errorf("access check failed: %w", err)
	}
	if !allowed {
		return nil, NewPermissionError(userID, id, "exam", "read", "exam belongs to another college")
	}

	return s.buildExamResponse(ctx, exam, user), nil
}

func (s *examService) GetByIDWithDetails(ctx context.Context, id uint, userID string) (*ExamResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound)
	}

	allowed, err := s.canAccessExam(ctx, exam, user)
	if err != nil {
		return nil, fmt.Errorf("access check failed: %w", err)
	}
	if !allowed {
		return nil, NewPermissionError(userID, id, "exam", "read", "exam belongs to another college")
	}

	return s.buildExamResponse(ctx, exam, user), nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*ExamResponse, error) {
	s.logger.Info("Updating exam", "exam_id", id, "user_id", userID)

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound)
	}

	if !s.canEditExam(exam, user) {
		return nil, NewPermissionError(userID, id, "exam", "update", "not owner or insufficient permissions")
	}

	if errs := s.validator.GetBusinessValidator().ValidateExamUpdate(req, exam); len(errs) > 0 {
		return nil, errs
	}

	applyExamUpdate(exam, req)

	if err := s.repo.Exam().Update(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	return s.buildExamResponse(ctx, exam, user), nil
}

func (s *examService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting exam", "exam_id", id, "user_id", userID)

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	exam, err := s.repo.Exam().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, ErrExamNotFound)
	}

	if !s.canDeleteExam(exam, user) {
		return NewPermissionError(userID, id, "exam", "delete", "not owner or insufficient permissions")
	}

	if errs := s.validator.GetBusinessValidator().ValidateDeletePermission(exam.InviteCount, exam.Status); len(errs) > 0 {
		return errs
	}

	if err := s.repo.Exam().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	return nil
}

// ===== LIST OPERATIONS =====

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters, userID string) (*ExamListResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	exams, total, err := s.repo.Exam().List(ctx, nil, user.Role, user.CollegeID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	responses := make([]*ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, s.buildExamResponse(ctx, exam, user))
	}

	return &ExamListResponse{
		Exams: responses,
		Total: total,
		Page:  pageFromOffset(filters.Offset, filters.Limit),
		Size:  filters.Limit,
	}, nil
}

// GetVisibleExams merges the exams reachable through the caller's college,
// their assignments, and (for teachers) cross-college recruitment. An exam
// reachable both ways is reported once with source "assigned".
func (s *examService) GetVisibleExams(ctx context.Context, userID string, filters repositories.ExamFilters) (*ExamListResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	assigned, err := s.repo.Exam().ListAssigned(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned exams: %w", err)
	}

	available, _, err := s.repo.Exam().List(ctx, nil, user.Role, user.CollegeID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	seen := make(map[uint]bool, len(assigned))
	responses := make([]*ExamResponse, 0, len(assigned)+len(available))

	for _, exam := range assigned {
		seen[exam.ID] = true
		resp := s.buildExamResponse(ctx, exam, user)
		resp.Source = models.ExamSourceAssigned
		responses = append(responses, resp)
	}
	for _, exam := range available {
		if seen[exam.ID] {
			continue
		}
		seen[exam.ID] = true
		resp := s.buildExamResponse(ctx, exam, user)
		resp.Source = models.ExamSourceAvailable
		responses = append(responses, resp)
	}

	// Teachers also see upcoming approved exams from other colleges they are
	// not yet assigned to, so they can be recruited.
	if user.Role == models.RoleTeacher {
		recruitable, err := s.repo.Exam().ListRecruitable(ctx, nil, userID, user.CollegeID, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to list recruitable exams: %w", err)
		}
		for _, exam := range recruitable {
			if seen[exam.ID] {
				continue
			}
			seen[exam.ID] = true
			resp := s.buildExamResponse(ctx, exam, user)
			resp.Source = models.ExamSourceAvailable
			responses = append(responses, resp)
		}
	}

	return &ExamListResponse{
		Exams: responses,
		Total: int64(len(responses)),
		Page:  pageFromOffset(filters.Offset, filters.Limit),
		Size:  filters.Limit,
	}, nil
}

// ===== APPROVAL WORKFLOW =====

func (s *examService) Review(ctx context.Context, id uint, req *ReviewExamRequest, reviewerID string) (*ExamResponse, error) {
	s.logger.Info("Reviewing exam", "exam_id", id, "reviewer_id", reviewerID, "decision", req.Status)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	reviewer, err := s.getUser(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer.Role.IsCoordinator() {
		return nil, NewPermissionError(reviewerID, id, "exam", "review", "insufficient role permissions")
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound)
	}

	if errs := s.validator.GetBusinessValidator().ValidateStatusTransition(exam.Status, req.Status); len(errs) > 0 {
		return nil, errs
	}

	now := time.Now()
	exam.Status = req.Status
	exam.ReviewedBy = &reviewer.ID
	exam.ReviewedAt = &now
	exam.ReviewNote = req.Note

	if err := s.repo.Exam().Update(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam status: %w", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventExamReviewed, events.ExamReviewedEvent{
		ExamID:     exam.ID,
		Status:     string(exam.Status),
		ReviewedBy: reviewer.ID,
	}))

	ntype := models.NotificationExamApproved
	verdict := "approved"
	if exam.Status == models.ExamStatusRejected {
		ntype = models.NotificationExamRejected
		verdict = "rejected"
	}
	s.notify(ctx, exam.CreatedBy, ntype,
		fmt.Sprintf("Exam %s", verdict),
		fmt.Sprintf("Your exam %q has been %s", exam.Title, verdict),
		map[string]interface{}{"exam_id": exam.ID},
	)

	return s.buildExamResponse(ctx, exam, reviewer), nil
}

// ===== EXAMINER ASSIGNMENT =====

func (s *examService) AssignExaminer(ctx context.Context, examID uint, req *AssignExaminerRequest, assignerID string) error {
	s.logger.Info("Assigning examiner", "exam_id", examID, "user_id", req.UserID, "assigner_id", assignerID)

	if err := s.validator.Validate(req); err != nil {
		return err
	}

	assigner, err := s.getUser(ctx, assignerID)
	if err != nil {
		return err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		return mapNotFound(err, ErrExamNotFound)
	}

	if !assigner.Role.IsCoordinator() && exam.CreatedBy != assignerID {
		return NewPermissionError(assignerID, examID, "exam", "assign", "not owner or insufficient permissions")
	}
	if exam.Status != models.ExamStatusApproved {
		return ErrExamNotApproved
	}

	target, err := s.getVerifiedUser(ctx, req.UserID)
	if err != nil {
		return err
	}

	exists, err := s.repo.ExamAssignment().Exists(ctx, nil, examID, target.ID)
	if err != nil {
		return fmt.Errorf("assignment check failed: %w", err)
	}
	if exists {
		return ErrAssignmentExists
	}

	assignment := &models.ExamAssignment{
		ExamID:     examID,
		UserID:     target.ID,
		AssignedBy: assignerID,
	}
	if err := s.repo.ExamAssignment().Create(ctx, nil, assignment); err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventExamAssigned, map[string]interface{}{
		"exam_id":     examID,
		"user_id":     target.ID,
		"assigned_by": assignerID,
	}))

	s.notify(ctx, target.ID, models.NotificationExamAssigned,
		"Assigned as examiner",
		fmt.Sprintf("You have been assigned as an examiner for %q", exam.Title),
		map[string]interface{}{"exam_id": examID},
	)

	return nil
}

func (s *examService) UnassignExaminer(ctx context.Context, examID uint, userID string, assignerID string) error {
	s.logger.Info("Removing examiner assignment", "exam_id", examID, "user_id", userID, "assigner_id", assignerID)

	assigner, err := s.getUser(ctx, assignerID)
	if err != nil {
		return err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		return mapNotFound(err, ErrExamNotFound)
	}

	if !assigner.Role.IsCoordinator() && exam.CreatedBy != assignerID {
		return NewPermissionError(assignerID, examID, "exam", "unassign", "not owner or insufficient permissions")
	}

	exists, err := s.repo.ExamAssignment().Exists(ctx, nil, examID, userID)
	if err != nil {
		return fmt.Errorf("assignment check failed: %w", err)
	}
	if !exists {
		return ErrAssignmentMissing
	}

	if err := s.repo.ExamAssignment().Delete(ctx, nil, examID, userID); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	return nil
}
