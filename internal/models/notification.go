package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationInviteResponded NotificationType = "invite_responded"
	NotificationInviteCreated   NotificationType = "invite_created"
	NotificationExamApproved    NotificationType = "exam_approved"
	NotificationExamRejected    NotificationType = "exam_rejected"
	NotificationExamAssigned    NotificationType = "exam_assigned"
	NotificationUserVerified    NotificationType = "user_verified"
	NotificationUserRejected    NotificationType = "user_rejected"
)

// Notification is an append-only per-user message with read/unread state.
// Rows are best-effort side effects of the primary action and never part of
// its transaction.
type Notification struct {
	ID      uint             `json:"id" gorm:"primaryKey"`
	UserID  string           `json:"user_id" gorm:"not null;index;size:255"`
	Type    NotificationType `json:"type" gorm:"not null;index;size:40"`
	Title   string           `json:"title" gorm:"not null;size:255"`
	Message string           `json:"message" gorm:"type:text"`

	// Structured payload, e.g. {"exam_id": 12, "invite_id": 7}
	Data datatypes.JSON `json:"data" gorm:"type:jsonb"`

	ReadAt    *time.Time `json:"read_at" gorm:"index"`
	CreatedAt time.Time  `json:"created_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

func (Notification) TableName() string {
	return "notifications"
}
