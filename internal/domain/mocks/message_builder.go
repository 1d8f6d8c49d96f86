// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// MockMessageBuilder implements MessageBuilder for testing
type MockMessageBuilder struct {
	mock.Mock
}

func (m *MockMessageBuilder) SendParticipationRequested(ctx context.Context, data models.ParticipationEventMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendParticipationDecided(ctx context.Context, data models.ParticipationEventMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendParticipationRemoved(ctx context.Context, data models.ParticipationRemovedMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendMeetingCancelled(ctx context.Context, data models.MeetingCancelledMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}
