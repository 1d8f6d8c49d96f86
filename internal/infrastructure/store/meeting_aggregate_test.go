// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

func TestAggregateTx_Counter(t *testing.T) {
	ctx := context.Background()
	agg := newMeetingAggregate(newTestMeeting("m-1", 2))
	tx := newAggregateTx(agg, testNow)

	require.NoError(t, tx.IncrementParticipants(ctx))
	assert.Equal(t, 2, tx.Meeting().CurrentParticipants)

	err := tx.IncrementParticipants(ctx)
	assert.Equal(t, domain.ErrorTypeCapacityExceeded, domain.GetErrorType(err))
	assert.Equal(t, 2, tx.Meeting().CurrentParticipants)

	require.NoError(t, tx.DecrementParticipants(ctx))
	require.NoError(t, tx.DecrementParticipants(ctx))
	err = tx.DecrementParticipants(ctx)
	assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	assert.Equal(t, 0, tx.Meeting().CurrentParticipants)

	assert.Equal(t, 1, agg.Meeting.CurrentParticipants, "source aggregate must be untouched")
}

func TestAggregateTx_Participations(t *testing.T) {
	ctx := context.Background()
	tx := newAggregateTx(newMeetingAggregate(newTestMeeting("m-1", 5)), testNow)

	require.NoError(t, tx.CreateParticipation(ctx, newTestParticipation("p-1", "m-1", "user-1", testNow)))

	err := tx.CreateParticipation(ctx, newTestParticipation("p-2", "m-1", "user-1", testNow))
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))

	found, err := tx.FindParticipationByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", found.UID)

	updated, err := tx.UpdateParticipationStatus(ctx, "p-1", models.ParticipationStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationStatusAccepted, updated.Status)

	accepted, err := tx.ListParticipationsByStatus(ctx, models.ParticipationStatusAccepted)
	require.NoError(t, err)
	assert.Len(t, accepted, 1)

	require.NoError(t, tx.DeleteParticipation(ctx, "p-1"))
	_, err = tx.GetParticipation(ctx, "p-1")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	err = tx.DeleteParticipation(ctx, "p-1")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestAggregateTx_RequestNotifications(t *testing.T) {
	ctx := context.Background()
	tx := newAggregateTx(newMeetingAggregate(newTestMeeting("m-1", 5)), testNow)

	request := models.NewNotification("m-1", "user-1", "host-1", models.NotificationTypeParticipationRequest, testNow)
	otherRequest := models.NewNotification("m-1", "user-2", "host-1", models.NotificationTypeParticipationRequest, testNow)
	require.NoError(t, tx.CreateNotifications(ctx, request, otherRequest))

	require.NoError(t, tx.MarkRequestNotificationsRead(ctx, "user-1", "host-1"))
	unread := tx.agg.notificationsFor("host-1", true)
	require.Len(t, unread, 1)
	assert.Equal(t, otherRequest.UID, unread[0].UID)

	require.NoError(t, tx.DeleteRequestNotifications(ctx, "user-2", "host-1"))
	all := tx.agg.notificationsFor("host-1", false)
	require.Len(t, all, 1)
	assert.Equal(t, request.UID, all[0].UID)
}

func TestMeetingAggregate_ParticipationsNewestFirst(t *testing.T) {
	agg := newMeetingAggregate(newTestMeeting("m-1", 5))
	agg.Participations = append(agg.Participations,
		newTestParticipation("p-old", "m-1", "user-1", testNow),
		newTestParticipation("p-new", "m-1", "user-2", testNow.Add(time.Hour)),
	)

	rows := agg.participationsNewestFirst()
	require.Len(t, rows, 2)
	assert.Equal(t, "p-new", rows[0].UID)
	assert.Equal(t, "p-old", rows[1].UID)
}
