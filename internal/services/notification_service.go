package services

import (
	"context"
	"fmt"

	"familybudget/internal/core"
	"familybudget/internal/log"
	"familybudget/internal/storage"
)

const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// NotificationService reads and acknowledges a member's notifications.
type NotificationService struct {
	store  storage.NotificationStore
	logger *log.Logger
}

func NewNotificationService(store storage.NotificationStore, logger *log.Logger) *NotificationService {
	if logger == nil {
		logger = log.Discard()
	}
	return &NotificationService{store: store, logger: logger.WithComponent(log.ComponentAlert)}
}

// List returns the member's newest notifications. A zero limit selects the default.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]core.Notification, error) {
	if limit == 0 {
		limit = DefaultNotificationLimit
	}
	if limit < 1 || limit > MaxNotificationLimit {
		return nil, validationError(fmt.Errorf("limit must be between 1 and %d", MaxNotificationLimit))
	}
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, id int64) error {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.DebugContext(ctx, "Notifications marked read", log.FieldUserID, userID, "count", n)
	return n, nil
}
