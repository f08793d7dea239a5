package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

func TestReportService_GetDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	admin := env.addUser("admin", models.RoleAdmin, 1, models.VerificationVerified)
	teacher := env.addUser("teacher", models.RoleTeacher, 1, models.VerificationVerified)
	env.addUser("pending", models.RoleTeacher, 1, models.VerificationPending)

	future := time.Now().Add(30 * 24 * time.Hour)
	env.addExam(1, teacher.ID, models.ExamStatusPending, future)
	env.addExam(1, teacher.ID, models.ExamStatusApproved, future)
	env.addExam(1, teacher.ID, models.ExamStatusRejected, time.Now().Add(-time.Hour))

	t.Run("coordinator sees full breakdown", func(t *testing.T) {
		stats, err := env.reports.GetDashboardStats(ctx, admin.ID)
		if err != nil {
			t.Fatalf("GetDashboardStats failed: %v", err)
		}
		if stats.TotalExams != 3 {
			t.Errorf("total = %d, want 3", stats.TotalExams)
		}
		if stats.PendingExams != 1 || stats.ApprovedExams != 1 || stats.RejectedExams != 1 {
			t.Errorf("status breakdown = %d/%d/%d", stats.PendingExams, stats.ApprovedExams, stats.RejectedExams)
		}
		if stats.UpcomingExams != 2 {
			t.Errorf("upcoming = %d, want 2", stats.UpcomingExams)
		}
		if stats.PendingUsers != 1 {
			t.Errorf("pending users = %d, want 1", stats.PendingUsers)
		}
		if len(stats.ByCollege) != 1 {
			t.Errorf("per-college breakdown missing")
		}
	})

	t.Run("scoped caller gets no cross-college breakdown", func(t *testing.T) {
		stats, err := env.reports.GetDashboardStats(ctx, teacher.ID)
		if err != nil {
			t.Fatalf("GetDashboardStats failed: %v", err)
		}
		if stats.ByCollege != nil {
			t.Error("per-college breakdown leaked to scoped role")
		}
		if stats.PendingUsers != 0 {
			t.Error("user verification queue leaked to scoped role")
		}
	})
}

func TestReportService_ExportExams(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	teacher := env.addUser("teacher", models.RoleTeacher, 1, models.VerificationVerified)
	env.addExam(1, teacher.ID, models.ExamStatusApproved, time.Now().Add(30*24*time.Hour))

	content, filename, err := env.reports.ExportExams(ctx, repositories.ExamFilters{}, teacher.ID)
	if err != nil {
		t.Fatalf("ExportExams failed: %v", err)
	}
	if filename == "" {
		t.Error("empty filename")
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(content, []byte("PK")) {
		t.Error("content is not a zip-based workbook")
	}
}
