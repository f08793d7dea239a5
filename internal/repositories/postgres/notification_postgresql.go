package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

type NotificationPostgreSQL struct {
	db *gorm.DB
}

func NewNotificationPostgreSQL(db *gorm.DB) repositories.NotificationRepository {
	return &NotificationPostgreSQL{db: db}
}

func (n *NotificationPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return n.db
}

func (n *NotificationPostgreSQL) Create(ctx context.Context, tx *gorm.DB, notification *models.Notification) error {
	if err := n.getDB(tx).WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (n *NotificationPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	query := n.getDB(tx).WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID)

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit).Offset(filters.Offset)
	}

	var notifications []*models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, total, nil
}

func (n *NotificationPostgreSQL) CountUnread(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	var count int64
	err := n.getDB(tx).WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead sets read_at on the user's own notification. The ownership
// predicate makes it a silent no-op for anyone else's row.
func (n *NotificationPostgreSQL) MarkRead(ctx context.Context, tx *gorm.DB, id uint, userID string, readAt time.Time) error {
	err := n.getDB(tx).WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", readAt).Error
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (n *NotificationPostgreSQL) MarkAllRead(ctx context.Context, tx *gorm.DB, userID string, readAt time.Time) error {
	err := n.getDB(tx).WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", readAt).Error
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
