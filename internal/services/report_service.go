package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/repositories/postgres"
)

type reportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ReportService {
	return &reportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// GetDashboardStats aggregates workload counters for the caller's scope:
// coordinators get the whole system including the per-college breakdown,
// everyone else gets their own college only.
func (s *reportService) GetDashboardStats(ctx context.Context, userID string) (*models.DashboardStats, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	scope := postgres.CollegeScope(user.Role, user.CollegeID)

	byStatus, err := s.repo.Exam().CountByStatus(ctx, nil, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count exams by status: %w", err)
	}

	upcoming, err := s.repo.Exam().CountUpcoming(ctx, nil, scope, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming exams: %w", err)
	}

	stats := &models.DashboardStats{
		PendingExams:  byStatus[models.ExamStatusPending],
		ApprovedExams: byStatus[models.ExamStatusApproved],
		RejectedExams: byStatus[models.ExamStatusRejected],
		UpcomingExams: upcoming,
	}
	stats.TotalExams = stats.PendingExams + stats.ApprovedExams + stats.RejectedExams

	if user.Role.IsCoordinator() {
		userCounts, err := s.repo.User().CountByStatus(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to count users by status: %w", err)
		}
		stats.PendingUsers = userCounts[models.VerificationPending]
		stats.VerifiedUsers = userCounts[models.VerificationVerified]

		byCollege, err := s.repo.Exam().CountByCollege(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to count exams by college: %w", err)
		}
		stats.ByCollege = byCollege

		inviteOutcomes, err := s.repo.Invite().CountByStatus(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to count invites by status: %w", err)
		}
		stats.InviteOutcomes = inviteOutcomes
		for _, outcome := range inviteOutcomes {
			if outcome.Status == models.InviteStatusPending {
				stats.PendingInvites = outcome.Count
			}
		}
	}

	return stats, nil
}

// ExportExams writes the caller's visible exam schedule to an xlsx workbook.
func (s *reportService) ExportExams(ctx context.Context, filters repositories.ExamFilters, userID string) ([]byte, string, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		return nil, "", mapNotFound(err, ErrUserNotFound)
	}

	// Export is unpaginated: the workbook is the full visible set.
	filters.Limit = 0
	filters.Offset = 0

	exams, _, err := s.repo.Exam().List(ctx, nil, user.Role, user.CollegeID, filters)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list exams: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Exams"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Title", "Subject", "Date", "Duration (min)", "Venue", "Status", "College", "Created By", "Reviewed By"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, exam := range exams {
		venue := ""
		if exam.Venue != nil {
			venue = *exam.Venue
		}
		reviewedBy := ""
		if exam.ReviewedBy != nil {
			reviewedBy = *exam.ReviewedBy
		}
		values := []interface{}{
			exam.ID,
			exam.Title,
			exam.Subject,
			exam.ExamDate.Format("2006-01-02 15:04"),
			exam.DurationMinutes,
			venue,
			string(exam.Status),
			exam.College.Name,
			exam.CreatedBy,
			reviewedBy,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("exams-%s.xlsx", time.Now().Format("2006-01-02"))
	s.logger.Info("Exported exams report", "user_id", userID, "rows", len(exams))

	return buf.Bytes(), filename, nil
}

// ExportInvites writes invitation outcomes to an xlsx workbook. Coordinators
// export everything; other callers only their own invitations.
func (s *reportService) ExportInvites(ctx context.Context, filters repositories.InviteFilters, userID string) ([]byte, string, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		return nil, "", mapNotFound(err, ErrUserNotFound)
	}

	if !user.Role.IsCoordinator() {
		filters.CreatedBy = &userID
	}
	filters.Limit = 0
	filters.Offset = 0

	invites, _, err := s.repo.Invite().List(ctx, nil, filters)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list invites: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invites"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Exam", "Email", "Invited Role", "Status", "Responded At", "Expires At", "Comment"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, invite := range invites {
		respondedAt := ""
		if invite.RespondedAt != nil {
			respondedAt = invite.RespondedAt.Format("2006-01-02 15:04")
		}
		comment := ""
		if invite.Comment != nil {
			comment = *invite.Comment
		}
		values := []interface{}{
			invite.ID,
			invite.Exam.Title,
			invite.Email,
			string(invite.InvitedRole),
			string(invite.Status),
			respondedAt,
			invite.ExpiresAt.Format("2006-01-02 15:04"),
			comment,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("invites-%s.xlsx", time.Now().Format("2006-01-02"))
	s.logger.Info("Exported invites report", "user_id", userID, "rows", len(invites))

	return buf.Bytes(), filename, nil
}
