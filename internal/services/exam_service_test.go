package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

func TestExamService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	creator := env.addUser("creator", models.RoleTeacher, 1, models.VerificationVerified)
	env.addUser("pending", models.RoleTeacher, 1, models.VerificationPending)

	t.Run("verified user creates pending exam with schedule", func(t *testing.T) {
		resp, err := env.exams.Create(ctx, &CreateExamRequest{
			Title:           "Mathematics Final",
			Subject:         "Mathematics",
			ExamDate:        time.Now().Add(30 * 24 * time.Hour),
			DurationMinutes: 180,
		}, creator.ID)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if resp.Status != models.ExamStatusPending {
			t.Errorf("new exam status = %s, want pending", resp.Status)
		}
		if resp.CollegeID != creator.CollegeID {
			t.Errorf("exam college = %d, want creator's college %d", resp.CollegeID, creator.CollegeID)
		}
		if resp.Schedule == nil {
			t.Fatal("schedule not created with exam")
		}
		if got := resp.Schedule.EndsAt.Sub(resp.Schedule.StartsAt); got != 180*time.Minute {
			t.Errorf("schedule window = %v, want 180m", got)
		}
		if !resp.CanEdit {
			t.Error("creator should be able to edit a pending exam")
		}
	})

	t.Run("unverified user rejected", func(t *testing.T) {
		_, err := env.exams.Create(ctx, &CreateExamRequest{
			Title:           "Physics Final",
			Subject:         "Physics",
			ExamDate:        time.Now().Add(30 * 24 * time.Hour),
			DurationMinutes: 120,
		}, "pending")
		if !errors.Is(err, ErrUserNotVerified) {
			t.Errorf("expected ErrUserNotVerified, got %v", err)
		}
	})

	t.Run("past exam date rejected", func(t *testing.T) {
		_, err := env.exams.Create(ctx, &CreateExamRequest{
			Title:           "History Final",
			Subject:         "History",
			ExamDate:        time.Now().Add(-time.Hour),
			DurationMinutes: 120,
		}, creator.ID)
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("expected ValidationErrors, got %v", err)
		}
	})
}

func TestExamService_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	env.addCollege(2, "South College")

	teacher := env.addUser("teacher1", models.RoleTeacher, 1, models.VerificationVerified)
	principal := env.addUser("principal2", models.RolePrincipal, 2, models.VerificationVerified)
	admin := env.addUser("admin", models.RoleAdmin, 1, models.VerificationVerified)

	future := time.Now().Add(60 * 24 * time.Hour)
	ownExam := env.addExam(1, teacher.ID, models.ExamStatusApproved, future)
	otherExam := env.addExam(2, principal.ID, models.ExamStatusApproved, future)
	otherPending := env.addExam(2, principal.ID, models.ExamStatusPending, future)

	t.Run("coordinator sees every exam", func(t *testing.T) {
		resp, err := env.exams.List(ctx, repositories.ExamFilters{}, admin.ID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(resp.Exams) != 3 {
			t.Errorf("admin sees %d exams, want 3", len(resp.Exams))
		}
	})

	t.Run("scoped role sees own college only", func(t *testing.T) {
		resp, err := env.exams.List(ctx, repositories.ExamFilters{}, principal.ID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		for _, exam := range resp.Exams {
			if exam.CollegeID != principal.CollegeID {
				t.Errorf("principal sees exam of college %d", exam.CollegeID)
			}
		}
		if len(resp.Exams) != 2 {
			t.Errorf("principal sees %d exams, want 2", len(resp.Exams))
		}
	})

	t.Run("cross-college exam hidden without assignment", func(t *testing.T) {
		_, err := env.exams.GetByID(ctx, otherExam.ID, teacher.ID)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})

	t.Run("assignment opens cross-college access", func(t *testing.T) {
		env.repo.assignments = append(env.repo.assignments, &models.ExamAssignment{
			ID: 99, ExamID: otherPending.ID, UserID: teacher.ID, AssignedBy: admin.ID,
		})

		resp, err := env.exams.GetByID(ctx, otherPending.ID, teacher.ID)
		if err != nil {
			t.Fatalf("GetByID with assignment failed: %v", err)
		}
		if resp.Source != models.ExamSourceAssigned {
			t.Errorf("source = %s, want assigned", resp.Source)
		}
	})

	t.Run("visible exams merges assigned and available", func(t *testing.T) {
		resp, err := env.exams.GetVisibleExams(ctx, teacher.ID, repositories.ExamFilters{})
		if err != nil {
			t.Fatalf("GetVisibleExams failed: %v", err)
		}

		sources := make(map[uint]models.ExamSource)
		for _, exam := range resp.Exams {
			if _, dup := sources[exam.ID]; dup {
				t.Errorf("exam %d listed twice", exam.ID)
			}
			sources[exam.ID] = exam.Source
		}

		if sources[ownExam.ID] != models.ExamSourceAvailable {
			t.Errorf("own-college exam source = %s, want available", sources[ownExam.ID])
		}
		if sources[otherPending.ID] != models.ExamSourceAssigned {
			t.Errorf("assigned exam source = %s, want assigned", sources[otherPending.ID])
		}
		// otherExam is approved, upcoming, cross-college and unassigned:
		// recruitable for teachers.
		if sources[otherExam.ID] != models.ExamSourceAvailable {
			t.Errorf("recruitable exam source = %s, want available", sources[otherExam.ID])
		}
	})

	t.Run("recruitable exams hidden from non-teachers", func(t *testing.T) {
		resp, err := env.exams.GetVisibleExams(ctx, principal.ID, repositories.ExamFilters{})
		if err != nil {
			t.Fatalf("GetVisibleExams failed: %v", err)
		}
		for _, exam := range resp.Exams {
			if exam.ID == ownExam.ID {
				t.Error("principal of college 2 sees college 1 exam without assignment")
			}
		}
	})
}

func TestExamService_Review(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	creator := env.addUser("creator", models.RoleHOD, 1, models.VerificationVerified)
	vp := env.addUser("vp", models.RoleVicePrincipal, 1, models.VerificationVerified)
	env.addUser("teacher", models.RoleTeacher, 1, models.VerificationVerified)

	future := time.Now().Add(30 * 24 * time.Hour)

	t.Run("coordinator approves pending exam", func(t *testing.T) {
		exam := env.addExam(1, creator.ID, models.ExamStatusPending, future)

		resp, err := env.exams.Review(ctx, exam.ID, &ReviewExamRequest{
			Status: models.ExamStatusApproved,
			Note:   strptr("Schedule confirmed"),
		}, vp.ID)
		if err != nil {
			t.Fatalf("Review failed: %v", err)
		}
		if resp.Status != models.ExamStatusApproved {
			t.Errorf("status = %s, want approved", resp.Status)
		}
		if resp.ReviewedBy == nil || *resp.ReviewedBy != vp.ID {
			t.Error("reviewer not recorded")
		}
		if resp.ReviewedAt == nil {
			t.Error("review timestamp not recorded")
		}

		// Creator is notified of the decision.
		unread, _ := env.notifications.CountUnread(ctx, creator.ID)
		if unread == 0 {
			t.Error("creator not notified of approval")
		}
	})

	t.Run("non-coordinator cannot review", func(t *testing.T) {
		exam := env.addExam(1, creator.ID, models.ExamStatusPending, future)

		_, err := env.exams.Review(ctx, exam.ID, &ReviewExamRequest{Status: models.ExamStatusApproved}, "teacher")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})

	t.Run("reviewed exam cannot be reviewed again", func(t *testing.T) {
		exam := env.addExam(1, creator.ID, models.ExamStatusRejected, future)

		_, err := env.exams.Review(ctx, exam.ID, &ReviewExamRequest{Status: models.ExamStatusApproved}, vp.ID)
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("expected status transition error, got %v", err)
		}
	})
}

func TestExamService_AssignExaminer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	env.addCollege(2, "South College")
	owner := env.addUser("owner", models.RoleHOD, 1, models.VerificationVerified)
	examiner := env.addUser("examiner", models.RoleTeacher, 2, models.VerificationVerified)
	env.addUser("unverified", models.RoleTeacher, 2, models.VerificationPending)

	future := time.Now().Add(30 * 24 * time.Hour)
	approved := env.addExam(1, owner.ID, models.ExamStatusApproved, future)
	pending := env.addExam(1, owner.ID, models.ExamStatusPending, future)

	t.Run("owner assigns verified cross-college examiner", func(t *testing.T) {
		err := env.exams.AssignExaminer(ctx, approved.ID, &AssignExaminerRequest{UserID: examiner.ID}, owner.ID)
		if err != nil {
			t.Fatalf("AssignExaminer failed: %v", err)
		}

		// Assignment opens access for the examiner.
		if _, err := env.exams.GetByID(ctx, approved.ID, examiner.ID); err != nil {
			t.Errorf("examiner cannot access assigned exam: %v", err)
		}
	})

	t.Run("duplicate assignment rejected", func(t *testing.T) {
		err := env.exams.AssignExaminer(ctx, approved.ID, &AssignExaminerRequest{UserID: examiner.ID}, owner.ID)
		if !errors.Is(err, ErrAssignmentExists) {
			t.Errorf("expected ErrAssignmentExists, got %v", err)
		}
	})

	t.Run("unapproved exam cannot take assignments", func(t *testing.T) {
		err := env.exams.AssignExaminer(ctx, pending.ID, &AssignExaminerRequest{UserID: examiner.ID}, owner.ID)
		if !errors.Is(err, ErrExamNotApproved) {
			t.Errorf("expected ErrExamNotApproved, got %v", err)
		}
	})

	t.Run("unverified examiner rejected", func(t *testing.T) {
		err := env.exams.AssignExaminer(ctx, approved.ID, &AssignExaminerRequest{UserID: "unverified"}, owner.ID)
		if !errors.Is(err, ErrUserNotVerified) {
			t.Errorf("expected ErrUserNotVerified, got %v", err)
		}
	})

	t.Run("unassign restores the college boundary", func(t *testing.T) {
		if err := env.exams.UnassignExaminer(ctx, approved.ID, examiner.ID, owner.ID); err != nil {
			t.Fatalf("UnassignExaminer failed: %v", err)
		}
		// The exam is approved, upcoming and cross-college, so it stays
		// reachable through recruitment; direct access must still work for
		// coordinators but the assignment row is gone.
		exists, _ := env.repo.ExamAssignment().Exists(ctx, nil, approved.ID, examiner.ID)
		if exists {
			t.Error("assignment row survived unassign")
		}
	})
}

func TestExamService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	owner := env.addUser("owner", models.RoleHOD, 1, models.VerificationVerified)
	peer := env.addUser("peer", models.RoleTeacher, 1, models.VerificationVerified)
	admin := env.addUser("admin", models.RoleAdmin, 1, models.VerificationVerified)

	future := time.Now().Add(30 * 24 * time.Hour)

	t.Run("owner edits pending exam", func(t *testing.T) {
		exam := env.addExam(1, owner.ID, models.ExamStatusPending, future)

		resp, err := env.exams.Update(ctx, exam.ID, &UpdateExamRequest{Title: strptr("Revised Title")}, owner.ID)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if resp.Title != "Revised Title" {
			t.Errorf("title = %q", resp.Title)
		}
	})

	t.Run("peer cannot edit someone else's exam", func(t *testing.T) {
		exam := env.addExam(1, owner.ID, models.ExamStatusPending, future)

		_, err := env.exams.Update(ctx, exam.ID, &UpdateExamRequest{Title: strptr("Hijacked")}, peer.ID)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})

	t.Run("owner cannot move date of approved exam", func(t *testing.T) {
		exam := env.addExam(1, owner.ID, models.ExamStatusApproved, future)

		_, err := env.exams.Update(ctx, exam.ID, &UpdateExamRequest{ExamDate: timeptr(future.Add(24 * time.Hour))}, owner.ID)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected PermissionError for approved exam edit, got %v", err)
		}
	})

	t.Run("coordinator deletes approved exam without invites", func(t *testing.T) {
		exam := env.addExam(1, owner.ID, models.ExamStatusApproved, future)

		if err := env.exams.Delete(ctx, exam.ID, admin.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := env.exams.GetByID(ctx, exam.ID, admin.ID); !errors.Is(err, ErrExamNotFound) {
			t.Errorf("deleted exam still readable: %v", err)
		}
	})

	t.Run("approved exam with invites cannot be deleted", func(t *testing.T) {
		exam := env.addExam(1, owner.ID, models.ExamStatusApproved, future)
		env.addInvite(exam.ID, "token-del", "x@other.edu", owner.ID, future)

		err := env.exams.Delete(ctx, exam.ID, admin.ID)
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("expected delete-permission validation error, got %v", err)
		}
	})
}

func timeptr(t time.Time) *time.Time { return &t }
