package services

import (
	"context"
	"testing"

	"github.com/eems-edu/examiner-service/internal/events"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

func TestNotificationService_Send(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.notifications.Send(ctx, "user-1", models.NotificationExamApproved,
		"Exam approved", "Your exam has been approved",
		map[string]interface{}{"exam_id": 7})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	resp, err := env.notifications.List(ctx, "user-1", repositories.NotificationFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.Total != 1 || resp.Unread != 1 {
		t.Errorf("total=%d unread=%d, want 1/1", resp.Total, resp.Unread)
	}
	if resp.Notifications[0].Type != models.NotificationExamApproved {
		t.Errorf("type = %s", resp.Notifications[0].Type)
	}
	if len(resp.Notifications[0].Data) == 0 {
		t.Error("structured payload not stored")
	}

	published := env.publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventNotification {
		t.Errorf("expected one notification.created event, got %d", len(published))
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.notifications.Send(ctx, "owner", models.NotificationInviteResponded, "Responded", "", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	resp, _ := env.notifications.List(ctx, "owner", repositories.NotificationFilters{})
	id := resp.Notifications[0].ID

	t.Run("owner marks read", func(t *testing.T) {
		if err := env.notifications.MarkRead(ctx, id, "owner"); err != nil {
			t.Fatalf("MarkRead failed: %v", err)
		}
		unread, _ := env.notifications.CountUnread(ctx, "owner")
		if unread != 0 {
			t.Errorf("unread = %d after MarkRead", unread)
		}
	})

	t.Run("foreign notification is a silent no-op", func(t *testing.T) {
		if err := env.notifications.Send(ctx, "owner", models.NotificationInviteResponded, "Another", "", nil); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		resp, _ := env.notifications.List(ctx, "owner", repositories.NotificationFilters{UnreadOnly: true})
		target := resp.Notifications[0].ID

		// A different user touching it must neither error nor flip the flag.
		if err := env.notifications.MarkRead(ctx, target, "intruder"); err != nil {
			t.Fatalf("MarkRead for non-owner should not error: %v", err)
		}
		unread, _ := env.notifications.CountUnread(ctx, "owner")
		if unread != 1 {
			t.Errorf("unread = %d, foreign MarkRead must not change state", unread)
		}
	})
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := env.notifications.Send(ctx, "busy", models.NotificationExamAssigned, "Assigned", "", nil); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	if err := env.notifications.Send(ctx, "other", models.NotificationExamAssigned, "Assigned", "", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if err := env.notifications.MarkAllRead(ctx, "busy"); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}

	unread, _ := env.notifications.CountUnread(ctx, "busy")
	if unread != 0 {
		t.Errorf("busy unread = %d, want 0", unread)
	}
	otherUnread, _ := env.notifications.CountUnread(ctx, "other")
	if otherUnread != 1 {
		t.Errorf("other user's notifications affected: unread = %d", otherUnread)
	}
}
