// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// MockUserDirectory implements UserDirectory for testing
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetUserProfiles(ctx context.Context, userUIDs []string) (map[string]models.UserProfile, error) {
	args := m.Called(ctx, userUIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.UserProfile), args.Error(1)
}
