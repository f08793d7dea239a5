package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published on the examiner topic.
const (
	EventInviteCreated   = "invite.created"
	EventInviteResponded = "invite.responded"
	EventExamCreated     = "exam.created"
	EventExamReviewed    = "exam.reviewed"
	EventExamAssigned    = "exam.assigned"
	EventUserRegistered  = "user.registered"
	EventUserReviewed    = "user.reviewed"
	EventNotification    = "notification.created"
)

// Source identifies this service in every published event.
const Source = "examiner-service"

// Event is the envelope for all domain events.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with a fresh ID and timestamp.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    Source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events. Implementations must be safe for
// concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type InviteRespondedEvent struct {
	InviteID uint   `json:"invite_id"`
	ExamID   uint   `json:"exam_id"`
	Status   string `json:"status"`
	Email    string `json:"email"`
}

type ExamReviewedEvent struct {
	ExamID     uint   `json:"exam_id"`
	Status     string `json:"status"`
	ReviewedBy string `json:"reviewed_by"`
}

type UserReviewedEvent struct {
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
	ReviewedBy string `json:"reviewed_by"`
}

type NotificationCreatedEvent struct {
	NotificationID uint   `json:"notification_id"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
}
