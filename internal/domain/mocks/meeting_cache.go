// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// MockMeetingCache implements MeetingCache for testing
type MockMeetingCache struct {
	mock.Mock
}

func (m *MockMeetingCache) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Meeting), args.Error(1)
}

func (m *MockMeetingCache) SetMeeting(ctx context.Context, meeting *models.Meeting) error {
	args := m.Called(ctx, meeting)
	return args.Error(0)
}

func (m *MockMeetingCache) Invalidate(ctx context.Context, meetingUID string) error {
	args := m.Called(ctx, meetingUID)
	return args.Error(0)
}
