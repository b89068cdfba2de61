package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
)

// ============================================
// Notification Service
// ============================================

type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]*repository.Notification, error)
	Count(ctx context.Context, userID string) (total int, unread int, err error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	broadcaster      EventBroadcaster
}

func NewNotificationService(notificationRepo repository.NotificationRepository, broadcaster EventBroadcaster) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		broadcaster:      broadcasterOrNop(broadcaster),
	}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*repository.Notification, error) {
	return s.notificationRepo.FindByUserID(ctx, userID, unreadOnly)
}

func (s *notificationService) Count(ctx context.Context, userID string) (int, int, error) {
	return s.notificationRepo.CountByUserID(ctx, userID)
}

// MarkRead only touches the caller's own notifications.
func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	n, err := s.notificationRepo.FindByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	if n == nil || n.UserID != userID {
		return ErrNotFound
	}
	if n.Read {
		return nil
	}
	if err := s.notificationRepo.MarkAsRead(ctx, notificationID); err != nil {
		return err
	}
	s.pushCount(ctx, userID)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.notificationRepo.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}
	s.pushCount(ctx, userID)
	return nil
}

// pushCount keeps the user's other tabs in sync.
func (s *notificationService) pushCount(ctx context.Context, userID string) {
	total, unread, err := s.notificationRepo.CountByUserID(ctx, userID)
	if err != nil {
		return
	}
	s.broadcaster.UserEvent(userID, socket.MessageNotificationCount, map[string]interface{}{
		"total":  total,
		"unread": unread,
	})
}
