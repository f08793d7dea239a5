package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

// mockRepository is an in-memory Repository for service tests. No locking:
// tests drive it from a single goroutine.
type mockRepository struct {
	users         map[string]*models.User
	colleges      map[uint]*models.College
	exams         map[uint]*models.Exam
	assignments   []*models.ExamAssignment
	invites       map[uint]*models.ExamInvite
	notifications map[uint]*models.Notification

	nextExamID         uint
	nextInviteID       uint
	nextNotificationID uint
	nextAssignmentID   uint
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:              make(map[string]*models.User),
		colleges:           make(map[uint]*models.College),
		exams:              make(map[uint]*models.Exam),
		invites:            make(map[uint]*models.ExamInvite),
		notifications:      make(map[uint]*models.Notification),
		nextExamID:         1,
		nextInviteID:       1,
		nextNotificationID: 1,
		nextAssignmentID:   1,
	}
}

func (m *mockRepository) Exam() repositories.ExamRepository                     { return &mockExamRepo{m} }
func (m *mockRepository) ExamAssignment() repositories.ExamAssignmentRepository { return &mockAssignmentRepo{m} }
func (m *mockRepository) Invite() repositories.InviteRepository                 { return &mockInviteRepo{m} }
func (m *mockRepository) Notification() repositories.NotificationRepository     { return &mockNotificationRepo{m} }
func (m *mockRepository) User() repositories.UserRepository                     { return &mockUserRepo{m} }
func (m *mockRepository) College() repositories.CollegeRepository               { return &mockCollegeRepo{m} }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== USERS =====

type mockUserRepo struct{ m *mockRepository }

func (r *mockUserRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	for _, u := range r.m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.m.users[user.ID] = user
	return nil
}

func (r *mockUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	user, ok := r.m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	for _, u := range r.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if _, ok := r.m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.users[user.ID] = user
	return nil
}

func (r *mockUserRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	if _, ok := r.m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.m.users, id)
	return nil
}

func (r *mockUserRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range r.m.users {
		if filters.Status != nil && u.Status != *filters.Status {
			continue
		}
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		if filters.CollegeID != nil && u.CollegeID != *filters.CollegeID {
			continue
		}
		if filters.Query != "" && !strings.Contains(strings.ToLower(u.FullName+u.Email), strings.ToLower(filters.Query)) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *mockUserRepo) SetStatus(ctx context.Context, tx *gorm.DB, id string, status models.VerificationStatus, reviewerID string, at time.Time) error {
	user, ok := r.m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Status = status
	user.VerifiedBy = &reviewerID
	user.VerifiedAt = &at
	return nil
}

func (r *mockUserRepo) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	for _, u := range r.m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockUserRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[models.VerificationStatus]int64, error) {
	out := make(map[models.VerificationStatus]int64)
	for _, u := range r.m.users {
		out[u.Status]++
	}
	return out, nil
}

// ===== COLLEGES =====

type mockCollegeRepo struct{ m *mockRepository }

func (r *mockCollegeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.College, error) {
	college, ok := r.m.colleges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return college, nil
}

func (r *mockCollegeRepo) List(ctx context.Context, tx *gorm.DB) ([]*models.College, error) {
	var out []*models.College
	for _, c := range r.m.colleges {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockCollegeRepo) ListDepartments(ctx context.Context, tx *gorm.DB, collegeID uint) ([]*models.Department, error) {
	return nil, nil
}

// ===== EXAMS =====

type mockExamRepo struct{ m *mockRepository }

func (r *mockExamRepo) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam, schedule *models.ExamSchedule) error {
	exam.ID = r.m.nextExamID
	r.m.nextExamID++
	if college, ok := r.m.colleges[exam.CollegeID]; ok {
		exam.College = *college
	}
	schedule.ExamID = exam.ID
	exam.Schedule = schedule
	r.m.exams[exam.ID] = exam
	return nil
}

func (r *mockExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	exam, ok := r.m.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (r *mockExamRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	exam, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	count := 0
	for _, inv := range r.m.invites {
		if inv.ExamID == id {
			count++
		}
	}
	exam.InviteCount = count
	return exam, nil
}

func (r *mockExamRepo) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if _, ok := r.m.exams[exam.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.exams[exam.ID] = exam
	return nil
}

func (r *mockExamRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	if _, ok := r.m.exams[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.m.exams, id)
	return nil
}

func (r *mockExamRepo) List(ctx context.Context, tx *gorm.DB, role models.UserRole, collegeID uint, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var out []*models.Exam
	for _, exam := range r.m.exams {
		if role.IsCollegeScoped() && exam.CollegeID != collegeID {
			continue
		}
		if filters.Status != nil && exam.Status != *filters.Status {
			continue
		}
		if filters.CreatedBy != nil && exam.CreatedBy != *filters.CreatedBy {
			continue
		}
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *mockExamRepo) ListAssigned(ctx context.Context, tx *gorm.DB, userID string, filters repositories.ExamFilters) ([]*models.Exam, error) {
	var out []*models.Exam
	for _, a := range r.m.assignments {
		if a.UserID != userID {
			continue
		}
		if exam, ok := r.m.exams[a.ExamID]; ok {
			out = append(out, exam)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockExamRepo) ListRecruitable(ctx context.Context, tx *gorm.DB, userID string, excludeCollegeID uint, now time.Time) ([]*models.Exam, error) {
	assigned := make(map[uint]bool)
	for _, a := range r.m.assignments {
		if a.UserID == userID {
			assigned[a.ExamID] = true
		}
	}
	var out []*models.Exam
	for _, exam := range r.m.exams {
		if exam.CollegeID == excludeCollegeID || assigned[exam.ID] {
			continue
		}
		if exam.Status != models.ExamStatusApproved || exam.ExamDate.Before(now) {
			continue
		}
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockExamRepo) CountByStatus(ctx context.Context, tx *gorm.DB, scope func(*gorm.DB) *gorm.DB) (map[models.ExamStatus]int64, error) {
	out := make(map[models.ExamStatus]int64)
	for _, exam := range r.m.exams {
		out[exam.Status]++
	}
	return out, nil
}

func (r *mockExamRepo) CountByCollege(ctx context.Context, tx *gorm.DB) ([]models.CollegeExamCount, error) {
	counts := make(map[uint]int64)
	for _, exam := range r.m.exams {
		counts[exam.CollegeID]++
	}
	var out []models.CollegeExamCount
	for id, n := range counts {
		out = append(out, models.CollegeExamCount{CollegeID: id, ExamCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollegeID < out[j].CollegeID })
	return out, nil
}

func (r *mockExamRepo) CountUpcoming(ctx context.Context, tx *gorm.DB, scope func(*gorm.DB) *gorm.DB, now time.Time) (int64, error) {
	var n int64
	for _, exam := range r.m.exams {
		if exam.ExamDate.After(now) {
			n++
		}
	}
	return n, nil
}

// ===== ASSIGNMENTS =====

type mockAssignmentRepo struct{ m *mockRepository }

func (r *mockAssignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignment *models.ExamAssignment) error {
	for _, a := range r.m.assignments {
		if a.ExamID == assignment.ExamID && a.UserID == assignment.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	assignment.ID = r.m.nextAssignmentID
	r.m.nextAssignmentID++
	r.m.assignments = append(r.m.assignments, assignment)
	return nil
}

func (r *mockAssignmentRepo) Delete(ctx context.Context, tx *gorm.DB, examID uint, userID string) error {
	for i, a := range r.m.assignments {
		if a.ExamID == examID && a.UserID == userID {
			r.m.assignments = append(r.m.assignments[:i], r.m.assignments[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *mockAssignmentRepo) Exists(ctx context.Context, tx *gorm.DB, examID uint, userID string) (bool, error) {
	for _, a := range r.m.assignments {
		if a.ExamID == examID && a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockAssignmentRepo) ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamAssignment, error) {
	var out []*models.ExamAssignment
	for _, a := range r.m.assignments {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *mockAssignmentRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.ExamAssignment, error) {
	var out []*models.ExamAssignment
	for _, a := range r.m.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ===== INVITES =====

type mockInviteRepo struct{ m *mockRepository }

func (r *mockInviteRepo) Create(ctx context.Context, tx *gorm.DB, invite *models.ExamInvite) error {
	invite.ID = r.m.nextInviteID
	r.m.nextInviteID++
	if exam, ok := r.m.exams[invite.ExamID]; ok {
		invite.Exam = *exam
	}
	r.m.invites[invite.ID] = invite
	return nil
}

func (r *mockInviteRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamInvite, error) {
	invite, ok := r.m.invites[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return invite, nil
}

func (r *mockInviteRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.ExamInvite, error) {
	for _, invite := range r.m.invites {
		if invite.Token == token {
			return invite, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockInviteRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.InviteFilters) ([]*models.ExamInvite, int64, error) {
	var out []*models.ExamInvite
	for _, invite := range r.m.invites {
		if filters.ExamID != nil && invite.ExamID != *filters.ExamID {
			continue
		}
		if filters.Status != nil && invite.Status != *filters.Status {
			continue
		}
		if filters.CreatedBy != nil && invite.CreatedBy != *filters.CreatedBy {
			continue
		}
		out = append(out, invite)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

// MarkResponded mirrors the guarded UPDATE: the transition only happens when
// the stored status is still pending.
func (r *mockInviteRepo) MarkResponded(ctx context.Context, tx *gorm.DB, id uint, status models.InviteStatus, comment, availability *string, respondedAt time.Time) (bool, error) {
	invite, ok := r.m.invites[id]
	if !ok || invite.Status != models.InviteStatusPending {
		return false, nil
	}
	invite.Status = status
	invite.Comment = comment
	invite.Availability = availability
	invite.RespondedAt = &respondedAt
	return true, nil
}

func (r *mockInviteRepo) CountByStatus(ctx context.Context, tx *gorm.DB) ([]models.InviteStatusCount, error) {
	counts := make(map[models.InviteStatus]int64)
	for _, invite := range r.m.invites {
		counts[invite.Status]++
	}
	var out []models.InviteStatusCount
	for status, n := range counts {
		out = append(out, models.InviteStatusCount{Status: status, Count: n})
	}
	return out, nil
}

// ===== NOTIFICATIONS =====

type mockNotificationRepo struct{ m *mockRepository }

func (r *mockNotificationRepo) Create(ctx context.Context, tx *gorm.DB, notification *models.Notification) error {
	notification.ID = r.m.nextNotificationID
	r.m.nextNotificationID++
	notification.CreatedAt = time.Now()
	r.m.notifications[notification.ID] = notification
	return nil
}

func (r *mockNotificationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	var out []*models.Notification
	for _, n := range r.m.notifications {
		if n.UserID != userID {
			continue
		}
		if filters.UnreadOnly && n.ReadAt != nil {
			continue
		}
		if filters.Type != nil && n.Type != *filters.Type {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *mockNotificationRepo) CountUnread(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	var n int64
	for _, notif := range r.m.notifications {
		if notif.UserID == userID && notif.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *mockNotificationRepo) MarkRead(ctx context.Context, tx *gorm.DB, id uint, userID string, readAt time.Time) error {
	notif, ok := r.m.notifications[id]
	if !ok || notif.UserID != userID || notif.ReadAt != nil {
		return nil
	}
	notif.ReadAt = &readAt
	return nil
}

func (r *mockNotificationRepo) MarkAllRead(ctx context.Context, tx *gorm.DB, userID string, readAt time.Time) error {
	for _, notif := range r.m.notifications {
		if notif.UserID == userID && notif.ReadAt == nil {
			notif.ReadAt = &readAt
		}
	}
	return nil
}
