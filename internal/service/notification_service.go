// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
)

// NotificationService exposes a user's notification trail.
type NotificationService struct {
	MeetingStore domain.MeetingStore
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(meetingStore domain.MeetingStore) *NotificationService {
	return &NotificationService{MeetingStore: meetingStore}
}

// ServiceReady checks if the service is ready for use.
func (s *NotificationService) ServiceReady() bool {
	return s.MeetingStore != nil
}

// ListNotifications returns the notifications addressed to the user, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, receiverUID string, unreadOnly bool) ([]*models.Notification, error) {
	if !s.ServiceReady() {
		return nil, serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("receiver_uid", receiverUID))

	if receiverUID == "" {
		return nil, domain.NewValidationError("receiver uid is required")
	}

	notifications, err := s.MeetingStore.ListNotifications(ctx, receiverUID, unreadOnly)
	if err != nil {
		logOperationError(ctx, "error listing notifications", err)
		return nil, err
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	slog.DebugContext(ctx, "returning notifications", "count", len(notifications), "unread_only", unreadOnly)
	return notifications, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
// Notifications addressed to someone else are reported as not found.
func (s *NotificationService) MarkNotificationRead(ctx context.Context, notificationUID, receiverUID string) error {
	if !s.ServiceReady() {
		return serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("notification_uid", notificationUID))
	ctx = logging.AppendCtx(ctx, slog.String("receiver_uid", receiverUID))

	if notificationUID == "" || receiverUID == "" {
		return domain.NewValidationError("notification uid and receiver uid are required")
	}

	if err := s.MeetingStore.MarkNotificationRead(ctx, notificationUID, receiverUID); err != nil {
		logOperationError(ctx, "error marking notification read", err)
		return err
	}
	return nil
}
