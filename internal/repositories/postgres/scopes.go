package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/models"
)

// CollegeScope restricts a query to the caller's own college. Coordinator
// roles (admin, vice principal) pass through unrestricted; every other role
// gets an equality predicate on college_id. Pure function, composed into
// larger queries via db.Scopes.
func CollegeScope(role models.UserRole, collegeID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if role.IsCoordinator() {
			return db
		}
		return db.Where("college_id = ?", collegeID)
	}
}

// StatusScope filters by exam status when one is given.
func StatusScope(status *models.ExamStatus) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if status == nil {
			return db
		}
		return db.Where("status = ?", *status)
	}
}

// UpcomingScope keeps exams whose date has not passed yet.
func UpcomingScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("exam_date >= ?", now)
	}
}

// AssignedScope keeps exams the user holds an assignment for, regardless of
// college. This is the cross-college exception to CollegeScope.
func AssignedScope(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN exam_assignments ON exam_assignments.exam_id = exams.id").
			Where("exam_assignments.user_id = ?", userID)
	}
}
