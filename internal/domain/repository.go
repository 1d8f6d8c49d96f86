// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// MeetingStore defines the storage operations of the meetup service.
// This interface is implemented by the PostgreSQL, NATS KV and in-memory backends.
//
// Every participation write goes through WithMeeting, which runs fn as one
// isolated unit of work scoped to a single meeting and its ledger and
// notification children. If fn returns an error nothing it did is persisted.
type MeetingStore interface {
	CreateMeeting(ctx context.Context, meeting *models.Meeting) error
	GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error)
	WithMeeting(ctx context.Context, meetingUID string, fn func(ctx context.Context, tx MeetingTx) error) error

	// Read-only ledger projection, ordered newest first.
	ListParticipations(ctx context.Context, meetingUID string) ([]*models.Participation, error)

	// Notification read tracking.
	ListNotifications(ctx context.Context, receiverUID string, unreadOnly bool) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationUID, receiverUID string) error

	IsReady() bool
}

// MeetingTx is the view of one meeting inside a unit of work. The meeting row
// is held exclusively for the lifetime of the unit of work.
type MeetingTx interface {
	// Meeting returns the meeting as loaded at the start of the unit of work
	// with any counter changes made through this MeetingTx applied.
	Meeting() *models.Meeting

	// IncrementParticipants takes one slot only if one is free. It returns a
	// CapacityExceeded error and changes nothing when the meeting is full.
	IncrementParticipants(ctx context.Context) error
	// DecrementParticipants releases one slot. The counter never drops below zero.
	DecrementParticipants(ctx context.Context) error
	MarkDeleted(ctx context.Context) error

	// GetParticipation returns a NotFound error when the row is absent or
	// belongs to another meeting.
	GetParticipation(ctx context.Context, participationUID string) (*models.Participation, error)
	FindParticipationByUser(ctx context.Context, userUID string) (*models.Participation, error)
	ListParticipationsByStatus(ctx context.Context, status models.ParticipationStatus) ([]*models.Participation, error)
	CreateParticipation(ctx context.Context, participation *models.Participation) error
	UpdateParticipationStatus(ctx context.Context, participationUID string, status models.ParticipationStatus) (*models.Participation, error)
	DeleteParticipation(ctx context.Context, participationUID string) error

	CreateNotifications(ctx context.Context, notifications ...*models.Notification) error
	// MarkRequestNotificationsRead marks unread join request notifications
	// from sender to receiver for this meeting as read.
	MarkRequestNotificationsRead(ctx context.Context, senderUID, receiverUID string) error
	// DeleteRequestNotifications removes join request notifications from
	// sender to receiver for this meeting.
	DeleteRequestNotifications(ctx context.Context, senderUID, receiverUID string) error
}

// MeetingCache caches read-only meeting projections. A cache miss is reported
// as a NotFound error.
type MeetingCache interface {
	GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error)
	SetMeeting(ctx context.Context, meeting *models.Meeting) error
	Invalidate(ctx context.Context, meetingUID string) error
}

// UserDirectory resolves public user profiles from the identity provider.
type UserDirectory interface {
	GetUserProfiles(ctx context.Context, userUIDs []string) (map[string]models.UserProfile, error)
}
