package models

// ===== DASHBOARD DTOs =====

type DashboardStats struct {
	TotalExams     int64                `json:"total_exams"`
	PendingExams   int64                `json:"pending_exams"`
	ApprovedExams  int64                `json:"approved_exams"`
	RejectedExams  int64                `json:"rejected_exams"`
	UpcomingExams  int64                `json:"upcoming_exams"`
	PendingUsers   int64                `json:"pending_users"`
	VerifiedUsers  int64                `json:"verified_users"`
	PendingInvites int64                `json:"pending_invites"`
	ByCollege      []CollegeExamCount   `json:"by_college"`
	InviteOutcomes []InviteStatusCount  `json:"invite_outcomes"`
}

type CollegeExamCount struct {
	CollegeID   uint   `json:"college_id"`
	CollegeName string `json:"college_name"`
	ExamCount   int64  `json:"exam_count"`
}

type InviteStatusCount struct {
	Status InviteStatus `json:"status"`
	Count  int64        `json:"count"`
}
