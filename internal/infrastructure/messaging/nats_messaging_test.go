// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/constants"
)

// MockNATSConn implements INatsConn for testing
type MockNATSConn struct {
	mock.Mock
}

func (m *MockNATSConn) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockNATSConn) PublishMsg(msg *nats.Msg) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockNATSConn) Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	args := m.Called(subj, data, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.Msg), args.Error(1)
}

func TestMessageBuilder_publish(t *testing.T) {
	tests := []struct {
		name         string
		publishError error
		expectError  bool
	}{
		{name: "successful send"},
		{name: "publish error", publishError: errors.New("publish failed"), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockConn := new(MockNATSConn)
			mockConn.On("PublishMsg", mock.MatchedBy(func(msg *nats.Msg) bool {
				return msg.Subject == "test.subject" && string(msg.Data) == "test data"
			})).Return(tt.publishError)

			builder := NewMessageBuilder(mockConn)
			err := builder.publish(context.Background(), "test.subject", []byte("test data"))

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			mockConn.AssertExpectations(t)
		})
	}
}

func TestMessageBuilder_publish_ForwardsIdentity(t *testing.T) {
	ctx := context.WithValue(context.Background(), constants.PrincipalContextID, "host-1")
	ctx = context.WithValue(ctx, constants.RequestIDContextID, "req-42")

	var sent *nats.Msg
	mockConn := new(MockNATSConn)
	mockConn.On("PublishMsg", mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(0).(*nats.Msg)
	}).Return(nil)

	require.NoError(t, NewMessageBuilder(mockConn).publish(ctx, "s", []byte("{}")))
	require.NotNil(t, sent)
	assert.Equal(t, "host-1", sent.Header.Get(constants.XOnBehalfOfHeader))
	assert.Equal(t, "req-42", sent.Header.Get(constants.RequestIDHeader))
}

func TestMessageBuilder_EventSubjects(t *testing.T) {
	ctx := context.Background()
	participation := models.Participation{UID: "p-1", MeetingUID: "m-1", UserUID: "u-1", Status: models.ParticipationStatusAccepted}

	tests := []struct {
		name    string
		subject string
		send    func(b *MessageBuilder) error
	}{
		{
			name:    "participation requested",
			subject: models.ParticipationRequestedSubject,
			send: func(b *MessageBuilder) error {
				return b.SendParticipationRequested(ctx, models.ParticipationEventMessage{Action: models.ActionCreated, Participation: participation})
			},
		},
		{
			name:    "participation decided",
			subject: models.ParticipationDecidedSubject,
			send: func(b *MessageBuilder) error {
				return b.SendParticipationDecided(ctx, models.ParticipationEventMessage{Action: models.ActionUpdated, Participation: participation})
			},
		},
		{
			name:    "participation removed",
			subject: models.ParticipationRemovedSubject,
			send: func(b *MessageBuilder) error {
				return b.SendParticipationRemoved(ctx, models.ParticipationRemovedMessage{Kind: models.RemovalKindWithdrawn, Participation: participation})
			},
		},
		{
			name:    "meeting cancelled",
			subject: models.MeetingCancelledSubject,
			send: func(b *MessageBuilder) error {
				return b.SendMeetingCancelled(ctx, models.MeetingCancelledMessage{MeetingUID: "m-1", HostUID: "h-1"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockConn := new(MockNATSConn)
			mockConn.On("PublishMsg", mock.MatchedBy(func(msg *nats.Msg) bool {
				return msg.Subject == tt.subject && json.Valid(msg.Data)
			})).Return(nil)

			require.NoError(t, tt.send(NewMessageBuilder(mockConn)))
			mockConn.AssertExpectations(t)
		})
	}
}

func TestMessageBuilder_GetUserProfiles(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves known users", func(t *testing.T) {
		mockConn := new(MockNATSConn)
		mockConn.On("IsConnected").Return(true)
		reply, _ := json.Marshal(models.UserProfilesResponse{Profiles: []models.UserProfile{
			{UID: "u-1", Nickname: "gopher", Bio: "likes channels"},
		}})
		mockConn.On("Request", models.UserProfilesSubject, mock.Anything, constants.DefaultNATSRequestTimeout).
			Return(&nats.Msg{Data: reply}, nil)

		profiles, err := NewMessageBuilder(mockConn).GetUserProfiles(ctx, []string{"u-1", "u-2"})
		require.NoError(t, err)
		assert.Equal(t, "gopher", profiles["u-1"].Nickname)
		_, known := profiles["u-2"]
		assert.False(t, known)
		mockConn.AssertExpectations(t)
	})

	t.Run("empty input skips the round trip", func(t *testing.T) {
		mockConn := new(MockNATSConn)
		profiles, err := NewMessageBuilder(mockConn).GetUserProfiles(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, profiles)
		mockConn.AssertNotCalled(t, "Request", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("disconnected", func(t *testing.T) {
		mockConn := new(MockNATSConn)
		mockConn.On("IsConnected").Return(false)
		_, err := NewMessageBuilder(mockConn).GetUserProfiles(ctx, []string{"u-1"})
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("timeout", func(t *testing.T) {
		mockConn := new(MockNATSConn)
		mockConn.On("IsConnected").Return(true)
		mockConn.On("Request", models.UserProfilesSubject, mock.Anything, mock.Anything).Return(nil, nats.ErrTimeout)
		_, err := NewMessageBuilder(mockConn).GetUserProfiles(ctx, []string{"u-1"})
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
		assert.ErrorIs(t, err, nats.ErrTimeout)
	})

	t.Run("malformed reply", func(t *testing.T) {
		mockConn := new(MockNATSConn)
		mockConn.On("IsConnected").Return(true)
		mockConn.On("Request", models.UserProfilesSubject, mock.Anything, mock.Anything).Return(&nats.Msg{Data: []byte("nope")}, nil)
		_, err := NewMessageBuilder(mockConn).GetUserProfiles(ctx, []string{"u-1"})
		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})
}
