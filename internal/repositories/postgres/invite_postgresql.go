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

type InvitePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewInvitePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.InviteRepository {
	return &InvitePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (i *InvitePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return i.db
}

func (i *InvitePostgreSQL) Create(ctx context.Context, tx *gorm.DB, invite *models.ExamInvite) error {
	if err := i.getDB(tx).WithContext(ctx).Create(invite).Error; err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}

	// The owning exam's cached details entry embeds the invite count, so the
	// exam aggregates must be dropped here as well. Leaving them would let a
	// delete-permission check read a stale InviteCount of zero.
	cache.InvalidateInviteCache(ctx, i.cacheManager, invite.Token, invite.ExamID)
	return nil
}

func (i *InvitePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamInvite, error) {
	var invite models.ExamInvite
	err := i.getDB(tx).WithContext(ctx).
		Preload("Exam").
		Preload("Exam.College").
		First(&invite, id).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// GetByToken resolves an invite by its opaque token. Reads the database
// directly: the response endpoint must never act on a stale cached status.
func (i *InvitePostgreSQL) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.ExamInvite, error) {
	var invite models.ExamInvite
	err := i.getDB(tx).WithContext(ctx).
		Preload("Exam").
		Preload("Exam.College").
		Where("token = ?", token).
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (i *InvitePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.InviteFilters) ([]*models.ExamInvite, int64, error) {
	query := i.getDB(tx).WithContext(ctx).Model(&models.ExamInvite{})

	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Email != nil {
		query = query.Where("email = ?", *filters.Email)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invites: %w", err)
	}

	query = query.Preload("Exam").Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit).Offset(filters.Offset)
	}

	var invites []*models.ExamInvite
	err := query.Find(&invites).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invites: %w", err)
	}

	return invites, total, nil
}

// MarkResponded performs the single pending -> terminal transition as one
// guarded UPDATE. The status predicate in the WHERE clause makes concurrent
// responses race-safe: only one caller sees RowsAffected == 1.
func (i *InvitePostgreSQL) MarkResponded(ctx context.Context, tx *gorm.DB, id uint, status models.InviteStatus, comment, availability *string, respondedAt time.Time) (bool, error) {
	result := i.getDB(tx).WithContext(ctx).
		Model(&models.ExamInvite{}).
		Where("id = ? AND status = ?", id, models.InviteStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"comment":      comment,
			"availability": availability,
			"responded_at": respondedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to record invite response: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		var updated models.ExamInvite
		if err := i.getDB(tx).WithContext(ctx).
			Select("exam_id", "token").
			First(&updated, id).Error; err != nil {
			cache.SafeInvalidatePattern(ctx, i.cacheManager.Invite, "*")
		} else {
			cache.InvalidateInviteCache(ctx, i.cacheManager, updated.Token, updated.ExamID)
		}
	}

	return result.RowsAffected > 0, nil
}

func (i *InvitePostgreSQL) CountByStatus(ctx context.Context, tx *gorm.DB) ([]models.InviteStatusCount, error) {
	var rows []models.InviteStatusCount
	err := i.getDB(tx).WithContext(ctx).
		Model(&models.ExamInvite{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count invites by status: %w", err)
	}
	return rows, nil
}
