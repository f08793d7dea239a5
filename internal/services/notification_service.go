package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/events"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

type notificationService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	publisher events.EventPublisher
}

func NewNotificationService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, publisher events.EventPublisher) NotificationService {
	return &notificationService{
		repo:      repo,
		db:        db,
		logger:    logger,
		publisher: publisher,
	}
}

// Send persists a notification row and publishes the companion event.
// Callers treat a returned error as non-fatal: the primary action has
// already succeeded by the time notifications are written.
func (s *notificationService) Send(ctx context.Context, userID string, ntype models.NotificationType, title, message string, data map[string]interface{}) error {
	notification := &models.Notification{
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
	}

	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode notification data: %w", err)
		}
		notification.Data = payload
	}

	if err := s.repo.Notification().Create(ctx, nil, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.NewEvent(events.EventNotification, events.NotificationCreatedEvent{
		NotificationID: notification.ID,
		UserID:         userID,
		Type:           string(ntype),
	})); err != nil {
		s.logger.Warn("Failed to publish notification event", "notification_id", notification.ID, "error", err)
	}

	return nil
}

func (s *notificationService) List(ctx context.Context, userID string, filters repositories.NotificationFilters) (*NotificationListResponse, error) {
	notifications, total, err := s.repo.Notification().ListByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.repo.Notification().CountUnread(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &NotificationListResponse{
		Notifications: notifications,
		Total:         total,
		Unread:        unread,
	}, nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.repo.Notification().CountUnread(ctx, nil, userID)
}

// MarkRead is owner-scoped: marking someone else's notification, or one that
// is already read, is a silent no-op rather than an error.
func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) error {
	return s.repo.Notification().MarkRead(ctx, nil, id, userID, time.Now())
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.Notification().MarkAllRead(ctx, nil, userID, time.Now())
}
