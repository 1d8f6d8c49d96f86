// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/service"
)

const testMeetingUID = "01234567-89ab-cdef-0123-456789abcdef"

// setupHandlerForTesting creates a MeetupHandler backed by an in-memory store
// holding one meetup with two of five slots taken.
func setupHandlerForTesting(t *testing.T) (*MeetupHandler, *store.MemoryMeetingStore) {
	t.Helper()

	memStore := store.NewMemoryMeetingStore(nil)
	require.NoError(t, memStore.CreateMeeting(context.Background(), &models.Meeting{
		UID:                 testMeetingUID,
		HostUID:             "host-1",
		Title:               "Test Meetup",
		MaxParticipants:     5,
		CurrentParticipants: 2,
		MeetingDate:         time.Now().Add(24 * time.Hour),
	}))

	cache := &mocks.MockMeetingCache{}
	cache.On("GetMeeting", mock.Anything, mock.Anything).Return(nil, domain.NewNotFoundError("cache miss"))
	cache.On("SetMeeting", mock.Anything, mock.Anything).Return(nil)
	cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	builder := &mocks.MockMessageBuilder{}
	builder.On("SendMeetingCancelled", mock.Anything, mock.Anything).Return(nil)

	meetupService := service.NewMeetupService(memStore, cache, builder, nil, service.ServiceConfig{})
	return NewMeetupHandler(meetupService), memStore
}

func TestMeetupHandler_HandlerReady(t *testing.T) {
	handler, _ := setupHandlerForTesting(t)
	assert.True(t, handler.HandlerReady())

	assert.False(t, NewMeetupHandler(nil).HandlerReady())
	assert.False(t, NewMeetupHandler(&service.MeetupService{}).HandlerReady())
}

func TestMeetupHandler_HandleMessage(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		messageData []byte
		hasReply    bool
		expected    func(t *testing.T, response []byte)
	}{
		{
			name:        "get occupancy",
			subject:     models.MeetingGetOccupancySubject,
			messageData: []byte(testMeetingUID),
			hasReply:    true,
			expected: func(t *testing.T, response []byte) {
				var occupancy models.Occupancy
				require.NoError(t, json.Unmarshal(response, &occupancy))
				assert.Equal(t, models.Occupancy{MeetingUID: testMeetingUID, CurrentParticipants: 2, MaxParticipants: 5, AvailableSlots: 3}, occupancy)
			},
		},
		{
			name:        "get title",
			subject:     models.MeetingGetTitleSubject,
			messageData: []byte(testMeetingUID + "\n"),
			hasReply:    true,
			expected: func(t *testing.T, response []byte) {
				assert.Equal(t, "Test Meetup", string(response))
			},
		},
		{
			name:        "invalid meeting uid",
			subject:     models.MeetingGetOccupancySubject,
			messageData: []byte("not-a-uuid"),
			hasReply:    true,
			expected: func(t *testing.T, response []byte) {
				assert.Nil(t, response)
			},
		},
		{
			name:        "unknown meeting",
			subject:     models.MeetingGetOccupancySubject,
			messageData: []byte("11111111-2222-3333-4444-555555555555"),
			hasReply:    true,
			expected: func(t *testing.T, response []byte) {
				assert.Nil(t, response)
			},
		},
		{
			name:        "unknown subject",
			subject:     "unknown.subject",
			messageData: []byte(testMeetingUID),
			hasReply:    true,
			expected: func(t *testing.T, response []byte) {
				assert.Nil(t, response)
			},
		},
		{
			name:        "no reply expected",
			subject:     models.MeetingGetOccupancySubject,
			messageData: []byte(testMeetingUID),
			hasReply:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := setupHandlerForTesting(t)

			var response []byte
			msg := mocks.NewMockMessage(tt.messageData, tt.subject)
			msg.On("HasReply").Return(tt.hasReply)
			if tt.hasReply {
				msg.On("Respond", mock.Anything).Run(func(args mock.Arguments) {
					response, _ = args.Get(0).([]byte)
				}).Return(nil)
			}

			handler.HandleMessage(context.Background(), msg)

			if tt.hasReply {
				msg.AssertCalled(t, "Respond", mock.Anything)
				tt.expected(t, response)
			} else {
				msg.AssertNotCalled(t, "Respond", mock.Anything)
			}
		})
	}
}

func TestMeetupHandler_CancelledMeetup(t *testing.T) {
	handler, memStore := setupHandlerForTesting(t)
	ctx := context.Background()

	require.NoError(t, handler.meetupService.CancelMeeting(ctx, testMeetingUID, "host-1"))

	occupancy, err := handler.HandleMeetingGetOccupancy(ctx, mocks.NewMockMessage([]byte(testMeetingUID), models.MeetingGetOccupancySubject))
	require.NoError(t, err)
	assert.JSONEq(t, `{"meeting_uid":"`+testMeetingUID+`","current_participants":2,"max_participants":5,"available_slots":0,"deleted":true}`, string(occupancy))

	_, err = handler.HandleMeetingGetTitle(ctx, mocks.NewMockMessage([]byte(testMeetingUID), models.MeetingGetTitleSubject))
	assert.Equal(t, domain.ErrorTypeGone, domain.GetErrorType(err))

	meeting, err := memStore.GetMeeting(ctx, testMeetingUID)
	require.NoError(t, err)
	assert.True(t, meeting.Deleted)
}
