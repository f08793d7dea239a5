package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/cache"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (e *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

// Create persists the exam and its schedule row atomically. An exam without
// a schedule row is invalid, so both inserts share one transaction.
func (e *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam, schedule *models.ExamSchedule) error {
	err := e.getDB(tx).WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Create(exam).Error; err != nil {
			return fmt.Errorf("failed to create exam: %w", err)
		}

		schedule.ExamID = exam.ID
		if err := txn.Create(schedule).Error; err != nil {
			return fmt.Errorf("failed to create exam schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.SafeInvalidatePattern(ctx, e.cacheManager.Exam, fmt.Sprintf("creator:%s:*", exam.CreatedBy))
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Exam, "list:*")
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Exam, "visible:*")

	return nil
}

// GetByID retrieves an exam by ID with caching
func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var exam models.Exam

	err := e.cacheManager.Exam.CacheOrExecute(ctx, cacheKey, &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		err := e.getDB(tx).WithContext(ctx).
			Preload("College").
			Preload("Schedule").
			First(&dbExam, id).Error
		if err != nil {
			return nil, err
		}
		return &dbExam, nil
	})

	if err != nil {
		return nil, err
	}

	return &exam, nil
}

// GetByIDWithDetails retrieves an exam with creator, assignments and invites
func (e *ExamPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	cacheKey := fmt.Sprintf("details:%d", id)
	var exam models.Exam

	err := e.cacheManager.Exam.CacheOrExecute(ctx, cacheKey, &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		err := e.getDB(tx).WithContext(ctx).
			Preload("College").
			Preload("Department").
			Preload("Creator").
			Preload("Schedule").
			Preload("Assignments").
			Preload("Assignments.User").
			Preload("Invites").
			First(&dbExam, id).Error
		if err != nil {
			return nil, err
		}

		dbExam.AssignmentCount = len(dbExam.Assignments)
		dbExam.InviteCount = len(dbExam.Invites)
		return &dbExam, nil
	})

	return &exam, err
}

// Update updates an exam and invalidates cache
func (e *ExamPostgreSQL) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := e.getDB(tx).WithContext(ctx).Save(exam).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}

	cache.InvalidateExamCache(ctx, e.cacheManager, exam.ID, exam.CreatedBy)
	return nil
}

// Delete soft-deletes an exam
func (e *ExamPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := e.getDB(tx).WithContext(ctx).Delete(&models.Exam{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.SafeDelete(ctx, e.cacheManager.Exam, fmt.Sprintf("id:%d", id), fmt.Sprintf("details:%d", id))
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Exam, "list:*")
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Exam, "visible:*")
	return nil
}

// List returns exams visible under the college scope for the role, with
// pagination and total count.
func (e *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, role models.UserRole, collegeID uint, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	query := e.getDB(tx).WithContext(ctx).
		Model(&models.Exam{}).
		Scopes(CollegeScope(role, collegeID), StatusScope(filters.Status))

	query = e.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	query = query.
		Preload("College").
		Preload("Schedule").
		Order(orderClause(filters.SortBy, filters.SortOrder))
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit).Offset(filters.Offset)
	}

	var exams []*models.Exam
	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}

	return exams, total, nil
}

// ListAssigned returns exams the user holds an assignment for, across all
// colleges.
func (e *ExamPostgreSQL) ListAssigned(ctx context.Context, tx *gorm.DB, userID string, filters repositories.ExamFilters) ([]*models.Exam, error) {
	var exams []*models.Exam
	query := e.getDB(tx).WithContext(ctx).
		Model(&models.Exam{}).
		Scopes(AssignedScope(userID), StatusScope(filters.Status))

	query = e.applyFilters(query, filters)

	err := query.
		Preload("College").
		Preload("Schedule").
		Order("exams.exam_date ASC").
		Find(&exams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned exams: %w", err)
	}

	return exams, nil
}

// ListRecruitable returns upcoming approved exams from other colleges the
// user is not yet assigned to. Feeds cross-college examiner recruitment for
// teachers.
func (e *ExamPostgreSQL) ListRecruitable(ctx context.Context, tx *gorm.DB, userID string, excludeCollegeID uint, now time.Time) ([]*models.Exam, error) {
	var exams []*models.Exam
	err := e.getDB(tx).WithContext(ctx).
		Model(&models.Exam{}).
		Scopes(UpcomingScope(now)).
		Where("status = ?", models.ExamStatusApproved).
		Where("college_id <> ?", excludeCollegeID).
		Where("id NOT IN (?)",
			e.getDB(tx).Model(&models.ExamAssignment{}).
				Select("exam_id").
				Where("user_id = ?", userID)).
		Preload("College").
		Preload("Schedule").
		Order("exam_date ASC").
		Find(&exams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recruitable exams: %w", err)
	}

	return exams, nil
}

// CountByStatus returns exam counts per status within the given scope.
func (e *ExamPostgreSQL) CountByStatus(ctx context.Context, tx *gorm.DB, scope func(*gorm.DB) *gorm.DB) (map[models.ExamStatus]int64, error) {
	type row struct {
		Status models.ExamStatus
		Count  int64
	}

	var rows []row
	query := e.getDB(tx).WithContext(ctx).Model(&models.Exam{})
	if scope != nil {
		query = query.Scopes(scope)
	}
	err := query.
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count exams by status: %w", err)
	}

	counts := make(map[models.ExamStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountByCollege returns exam counts grouped by college.
func (e *ExamPostgreSQL) CountByCollege(ctx context.Context, tx *gorm.DB) ([]models.CollegeExamCount, error) {
	var rows []models.CollegeExamCount
	err := e.getDB(tx).WithContext(ctx).
		Model(&models.Exam{}).
		Select("exams.college_id, colleges.name AS college_name, COUNT(*) AS exam_count").
		Joins("JOIN colleges ON colleges.id = exams.college_id").
		Group("exams.college_id, colleges.name").
		Order("exam_count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count exams by college: %w", err)
	}
	return rows, nil
}

// CountUpcoming counts not-yet-held exams within the given scope.
func (e *ExamPostgreSQL) CountUpcoming(ctx context.Context, tx *gorm.DB, scope func(*gorm.DB) *gorm.DB, now time.Time) (int64, error) {
	var count int64
	query := e.getDB(tx).WithContext(ctx).Model(&models.Exam{}).Scopes(UpcomingScope(now))
	if scope != nil {
		query = query.Scopes(scope)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count upcoming exams: %w", err)
	}
	return count, nil
}

func (e *ExamPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ExamFilters) *gorm.DB {
	if filters.CollegeID != nil {
		query = query.Where("college_id = ?", *filters.CollegeID)
	}
	if filters.DepartmentID != nil {
		query = query.Where("department_id = ?", *filters.DepartmentID)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("exam_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("exam_date <= ?", *filters.DateTo)
	}
	if filters.UpcomingOnly {
		query = query.Scopes(UpcomingScope(time.Now()))
	}
	return query
}

func orderClause(sortBy, sortOrder string) string {
	column := "created_at"
	switch sortBy {
	case "exam_date", "title", "created_at", "status":
		column = sortBy
	}

	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}

	return fmt.Sprintf("%s %s", column, direction)
}
