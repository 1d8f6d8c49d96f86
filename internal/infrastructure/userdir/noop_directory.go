// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package userdir

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// NoOpDirectory is a user directory that knows nothing beyond the user ID.
// This is useful for local development when the NATS user service is not available.
type NoOpDirectory struct{}

var _ domain.UserDirectory = (*NoOpDirectory)(nil)

// NewNoOpDirectory creates a new no-op user directory
func NewNoOpDirectory() *NoOpDirectory {
	return &NoOpDirectory{}
}

// GetUserProfiles returns a bare profile for every requested user
func (d *NoOpDirectory) GetUserProfiles(_ context.Context, userUIDs []string) (map[string]models.UserProfile, error) {
	profiles := make(map[string]models.UserProfile, len(userUIDs))
	for _, uid := range userUIDs {
		profiles[uid] = models.UserProfile{UID: uid}
	}
	return profiles, nil
}
