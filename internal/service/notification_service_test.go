// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

func TestNotificationService(t *testing.T) {
	e := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()
	e.seedMeeting(t, "m1", 3, 1)
	e.seedMeeting(t, "m2", 3, 1)
	e.requestJoin(t, "m1", "user-a")
	e.requestJoin(t, "m2", "user-a")

	inbox, err := e.notifications.ListNotifications(ctx, testHost, false)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "m2", inbox[0].MeetingUID, "newest first")
	assert.Equal(t, models.NotificationTypeParticipationRequest, inbox[0].Type)

	t.Run("mark read", func(t *testing.T) {
		require.NoError(t, e.notifications.MarkNotificationRead(ctx, inbox[0].UID, testHost))

		unread, err := e.notifications.ListNotifications(ctx, testHost, true)
		require.NoError(t, err)
		require.Len(t, unread, 1)
		assert.Equal(t, inbox[1].UID, unread[0].UID)
	})

	t.Run("another user's notification is not found", func(t *testing.T) {
		err := e.notifications.MarkNotificationRead(ctx, inbox[1].UID, "user-a")
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("empty inbox", func(t *testing.T) {
		empty, err := e.notifications.ListNotifications(ctx, "nobody", false)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := e.notifications.ListNotifications(ctx, "", false)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

		err = e.notifications.MarkNotificationRead(ctx, "", testHost)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}
