package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/cache"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

type ExamAssignmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamAssignmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamAssignmentRepository {
	return &ExamAssignmentPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *ExamAssignmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *ExamAssignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.ExamAssignment) error {
	if err := a.getDB(tx).WithContext(ctx).Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to create exam assignment: %w", err)
	}

	// The cached exam details entry embeds the assignment count.
	cache.InvalidateExamAggregates(ctx, a.cacheManager, assignment.ExamID)
	return nil
}

func (a *ExamAssignmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, examID uint, userID string) error {
	result := a.getDB(tx).WithContext(ctx).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Delete(&models.ExamAssignment{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete exam assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.InvalidateExamAggregates(ctx, a.cacheManager, examID)
	return nil
}

// Exists reports whether the user holds an assignment for the exam. This is
// the cross-college access exception check.
func (a *ExamAssignmentPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, examID uint, userID string) (bool, error) {
	var count int64
	err := a.getDB(tx).WithContext(ctx).
		Model(&models.ExamAssignment{}).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check exam assignment: %w", err)
	}
	return count > 0, nil
}

func (a *ExamAssignmentPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamAssignment, error) {
	var assignments []*models.ExamAssignment
	err := a.getDB(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Preload("User").
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments by exam: %w", err)
	}
	return assignments, nil
}

func (a *ExamAssignmentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.ExamAssignment, error) {
	var assignments []*models.ExamAssignment
	err := a.getDB(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Exam").
		Preload("Exam.College").
		Order("created_at DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments by user: %w", err)
	}
	return assignments, nil
}
