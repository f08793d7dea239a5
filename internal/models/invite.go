package models

import "time"

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
)

// ExamInvite is a token-keyed invitation asking an external examiner to
// accept or decline an exam. The token is the sole credential for the public
// response endpoint; status moves away from pending exactly once.
type ExamInvite struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	ExamID      uint         `json:"exam_id" gorm:"not null;index"`
	Token       string       `json:"-" gorm:"uniqueIndex;not null;size:64"`
	Email       string       `json:"email" gorm:"not null;size:255;index"`
	InvitedRole UserRole     `json:"invited_role" gorm:"not null;size:20;default:teacher"`
	Status      InviteStatus `json:"status" gorm:"not null;size:20;default:pending;index"`

	// Response payload, set on the single pending -> accepted/declined
	// transition.
	Comment      *string    `json:"comment" gorm:"size:1000"`
	Availability *string    `json:"availability" gorm:"size:200"`
	RespondedAt  *time.Time `json:"responded_at"`

	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`

	CreatedBy string    `json:"created_by" gorm:"not null;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam Exam `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
}

// IsExpired reports whether the invite can no longer be responded to because
// its deadline passed while still pending.
func (i *ExamInvite) IsExpired(now time.Time) bool {
	return i.Status == InviteStatusPending && now.After(i.ExpiresAt)
}

func (ExamInvite) TableName() string {
	return "exam_invites"
}
