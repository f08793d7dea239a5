package services

import (
	"context"
	"errors"
	"testing"

	"github.com/eems-edu/examiner-service/internal/events"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

func TestUserService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")

	t.Run("registration starts pending with derived role", func(t *testing.T) {
		user, err := env.users.Register(ctx, &RegisterUserRequest{
			FullName:  "Asha Verma",
			Email:     "Asha.Verma@North.edu",
			Post:      "Vice-Principal",
			CollegeID: 1,
		}, "casdoor-sub-1")
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.Status != models.VerificationPending {
			t.Errorf("status = %s, want pending", user.Status)
		}
		if user.Role != models.RoleVicePrincipal {
			t.Errorf("role = %s, want vice_principal", user.Role)
		}
		if user.Post != "Vice-Principal" {
			t.Errorf("raw post not preserved: %q", user.Post)
		}
		if user.Email != "asha.verma@north.edu" {
			t.Errorf("email not normalized: %q", user.Email)
		}
	})

	t.Run("unknown post falls back to teacher", func(t *testing.T) {
		user, err := env.users.Register(ctx, &RegisterUserRequest{
			FullName:  "Dev Kulkarni",
			Email:     "dev@north.edu",
			Post:      "Grand Overseer of Examinations",
			CollegeID: 1,
		}, "casdoor-sub-2")
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.Role != models.RoleTeacher {
			t.Errorf("unrecognized post mapped to %s, want teacher", user.Role)
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := env.users.Register(ctx, &RegisterUserRequest{
			FullName:  "Asha Clone",
			Email:     "asha.verma@north.edu",
			Post:      "Teacher",
			CollegeID: 1,
		}, "casdoor-sub-3")
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("unknown college rejected", func(t *testing.T) {
		_, err := env.users.Register(ctx, &RegisterUserRequest{
			FullName:  "Lost Soul",
			Email:     "lost@nowhere.edu",
			Post:      "Teacher",
			CollegeID: 42,
		}, "casdoor-sub-4")
		if !errors.Is(err, ErrCollegeNotFound) {
			t.Errorf("expected ErrCollegeNotFound, got %v", err)
		}
	})

	t.Run("registration event published", func(t *testing.T) {
		env.publisher.ClearEvents()
		if _, err := env.users.Register(ctx, &RegisterUserRequest{
			FullName:  "Event User",
			Email:     "event@north.edu",
			Post:      "HOD",
			CollegeID: 1,
		}, "casdoor-sub-5"); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		published := env.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventUserRegistered {
			t.Errorf("expected one user.registered event, got %v", published)
		}
	})
}

func TestUserService_Review(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	admin := env.addUser("admin", models.RoleAdmin, 1, models.VerificationVerified)
	env.addUser("teacher", models.RoleTeacher, 1, models.VerificationVerified)

	t.Run("coordinator verifies pending registration", func(t *testing.T) {
		candidate := env.addUser("candidate", models.RoleTeacher, 1, models.VerificationPending)

		user, err := env.users.Review(ctx, candidate.ID, &ReviewUserRequest{Status: models.VerificationVerified}, admin.ID)
		if err != nil {
			t.Fatalf("Review failed: %v", err)
		}
		if user.Status != models.VerificationVerified {
			t.Errorf("status = %s, want verified", user.Status)
		}
		if user.VerifiedBy == nil || *user.VerifiedBy != admin.ID {
			t.Error("reviewer not recorded")
		}

		unread, _ := env.notifications.CountUnread(ctx, candidate.ID)
		if unread == 0 {
			t.Error("candidate not notified of verification")
		}
	})

	t.Run("non-coordinator cannot review", func(t *testing.T) {
		candidate := env.addUser("candidate2", models.RoleTeacher, 1, models.VerificationPending)

		_, err := env.users.Review(ctx, candidate.ID, &ReviewUserRequest{Status: models.VerificationVerified}, "teacher")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})

	t.Run("already reviewed registration rejected", func(t *testing.T) {
		verified := env.addUser("done", models.RoleTeacher, 1, models.VerificationVerified)

		_, err := env.users.Review(ctx, verified.ID, &ReviewUserRequest{Status: models.VerificationRejected}, admin.ID)
		var ruleErr *BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Errorf("expected BusinessRuleError, got %v", err)
		}
	})
}

func TestUserService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	admin := env.addUser("admin", models.RoleAdmin, 1, models.VerificationVerified)
	env.addUser("teacher", models.RoleTeacher, 1, models.VerificationVerified)

	t.Run("rejected user can be removed by coordinator", func(t *testing.T) {
		rejected := env.addUser("rejected", models.RoleTeacher, 1, models.VerificationRejected)

		if err := env.users.Delete(ctx, rejected.ID, admin.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := env.users.GetProfile(ctx, rejected.ID); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("deleted user still readable: %v", err)
		}
	})

	t.Run("verified user cannot be removed", func(t *testing.T) {
		verified := env.addUser("keeper", models.RoleTeacher, 1, models.VerificationVerified)

		if err := env.users.Delete(ctx, verified.ID, admin.ID); !errors.Is(err, ErrUserNotRejected) {
			t.Errorf("expected ErrUserNotRejected, got %v", err)
		}
	})

	t.Run("non-coordinator cannot remove", func(t *testing.T) {
		rejected := env.addUser("rejected2", models.RoleTeacher, 1, models.VerificationRejected)

		err := env.users.Delete(ctx, rejected.ID, "teacher")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})
}

func TestUserService_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addCollege(1, "North College")
	env.addCollege(2, "South College")
	admin := env.addUser("admin", models.RoleAdmin, 1, models.VerificationVerified)
	hod := env.addUser("hod1", models.RoleHOD, 1, models.VerificationVerified)
	env.addUser("t1", models.RoleTeacher, 1, models.VerificationVerified)
	env.addUser("t2", models.RoleTeacher, 2, models.VerificationVerified)

	t.Run("coordinator lists across colleges", func(t *testing.T) {
		resp, err := env.users.List(ctx, repositories.UserFilters{}, admin.ID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if resp.Total != 4 {
			t.Errorf("admin sees %d users, want 4", resp.Total)
		}
	})

	t.Run("scoped role pinned to own college", func(t *testing.T) {
		otherCollege := uint(2)
		resp, err := env.users.List(ctx, repositories.UserFilters{CollegeID: &otherCollege}, hod.ID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		for _, u := range resp.Users {
			if u.CollegeID != hod.CollegeID {
				t.Errorf("hod sees user of college %d", u.CollegeID)
			}
		}
	})
}
