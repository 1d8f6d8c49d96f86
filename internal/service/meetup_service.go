// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/constants"
)

// MeetupService manages the lifecycle of meetups: creation, reads and cancellation.
type MeetupService struct {
	MeetingStore   domain.MeetingStore
	MeetingCache   domain.MeetingCache
	MessageBuilder domain.MessageBuilder
	Clock          domain.Clock
	Config         ServiceConfig
}

// NewMeetupService creates a new MeetupService.
func NewMeetupService(
	meetingStore domain.MeetingStore,
	meetingCache domain.MeetingCache,
	messageBuilder domain.MessageBuilder,
	clock domain.Clock,
	config ServiceConfig,
) *MeetupService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &MeetupService{
		MeetingStore:   meetingStore,
		MeetingCache:   meetingCache,
		MessageBuilder: messageBuilder,
		Clock:          clock,
		Config:         config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *MeetupService) ServiceReady() bool {
	return s.MeetingStore != nil &&
		s.MeetingCache != nil &&
		s.MessageBuilder != nil &&
		s.Clock != nil
}

func (s *MeetupService) validateCreateMeetingRequest(ctx context.Context, req *models.CreateMeetingRequest) error {
	if req == nil {
		return domain.NewValidationError("request body is required")
	}
	if req.HostUID == "" {
		return domain.NewValidationError("host uid is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.NewValidationError("title is required")
	}
	if utf8.RuneCountInString(title) > constants.MaxTitleLength {
		return domain.NewValidationError("title is too long")
	}
	if req.MaxParticipants < constants.MinParticipants {
		slog.WarnContext(ctx, "max participants below minimum", "max_participants", req.MaxParticipants)
		return domain.NewValidationError("max participants must be at least 1")
	}
	if !req.MeetingDate.After(s.Clock.Now()) {
		slog.WarnContext(ctx, "meetup date cannot be in the past", "meeting_date", req.MeetingDate)
		return domain.NewValidationError("meetup date must be in the future")
	}
	return nil
}

// CreateMeeting creates a meetup. The host takes the first slot.
func (s *MeetupService) CreateMeeting(ctx context.Context, req *models.CreateMeetingRequest) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, serviceNotReady(ctx)
	}

	if err := s.validateCreateMeetingRequest(ctx, req); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	meeting := &models.Meeting{
		UID:                 uuid.New().String(),
		HostUID:             req.HostUID,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		MaxParticipants:     req.MaxParticipants,
		CurrentParticipants: 1,
		MeetingDate:         req.MeetingDate.UTC(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meeting.UID))

	if err := s.MeetingStore.CreateMeeting(ctx, meeting); err != nil {
		logOperationError(ctx, "error creating meetup in store", err)
		return nil, err
	}

	slog.InfoContext(ctx, "created meetup", "host_uid", meeting.HostUID, "max_participants", meeting.MaxParticipants)
	return meeting, nil
}

// GetMeeting returns a meetup. Cancelled meetups are reported as gone.
func (s *MeetupService) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	meeting, err := s.MeetingCache.GetMeeting(ctx, meetingUID)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "meetup cache unavailable, reading from store", logging.ErrKey, err)
		}

		meeting, err = s.MeetingStore.GetMeeting(ctx, meetingUID)
		if err != nil {
			logOperationError(ctx, "error getting meetup from store", err)
			return nil, err
		}
		if !meeting.Deleted {
			if err := s.MeetingCache.SetMeeting(ctx, meeting); err != nil {
				slog.WarnContext(ctx, "failed to cache meetup", logging.ErrKey, err)
			}
		}
	}

	if meeting.Deleted {
		return nil, domain.NewGoneError("meetup has been cancelled")
	}

	slog.DebugContext(ctx, "returning meetup", "meeting", meeting)
	return meeting, nil
}

// GetOccupancy returns the capacity projection of a meetup straight from the
// store, including cancelled ones.
func (s *MeetupService) GetOccupancy(ctx context.Context, meetingUID string) (*models.Occupancy, error) {
	if !s.ServiceReady() {
		return nil, serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	meeting, err := s.MeetingStore.GetMeeting(ctx, meetingUID)
	if err != nil {
		logOperationError(ctx, "error getting meetup occupancy", err)
		return nil, err
	}

	occupancy := meeting.Occupancy()
	return &occupancy, nil
}

// CancelMeeting soft deletes a meetup and notifies every accepted participant.
// Only the host may cancel, and only before the meetup date.
func (s *MeetupService) CancelMeeting(ctx context.Context, meetingUID, callerUID string) error {
	if !s.ServiceReady() {
		return serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("caller_uid", callerUID))

	var (
		notified []string
		hostUID  string
	)
	err := s.MeetingStore.WithMeeting(ctx, meetingUID, func(ctx context.Context, tx domain.MeetingTx) error {
		notified = nil
		meeting := tx.Meeting()
		now := s.Clock.Now()

		if !meeting.IsHost(callerUID) {
			return domain.NewForbiddenError("only the host can cancel the meetup")
		}
		if meeting.Deleted {
			return domain.NewGoneError("meetup has already been cancelled")
		}
		if meeting.Finished(now) {
			return domain.NewValidationError("cannot cancel a meetup that has already taken place")
		}

		accepted, err := tx.ListParticipationsByStatus(ctx, models.ParticipationStatusAccepted)
		if err != nil {
			return err
		}
		if err := tx.MarkDeleted(ctx); err != nil {
			return err
		}

		notifications := make([]*models.Notification, 0, len(accepted))
		for _, p := range accepted {
			notifications = append(notifications,
				models.NewNotification(meeting.UID, meeting.HostUID, p.UserUID, models.NotificationTypeMeetingDeleted, now))
			notified = append(notified, p.UserUID)
		}
		if err := tx.CreateNotifications(ctx, notifications...); err != nil {
			return err
		}

		hostUID = meeting.HostUID
		return nil
	})
	if err != nil {
		logOperationError(ctx, "meetup cancellation rejected", err)
		return err
	}

	runAfterCommit(ctx, s.Config.postCommitWorkers(),
		concurrent.NewTask("invalidate meetup cache", func(ctx context.Context) error {
			return s.MeetingCache.Invalidate(ctx, meetingUID)
		}),
		concurrent.NewTask("meetup cancelled event", func(ctx context.Context) error {
			return s.MessageBuilder.SendMeetingCancelled(ctx, models.MeetingCancelledMessage{
				MeetingUID:      meetingUID,
				HostUID:         hostUID,
				NotifiedUserIDs: notified,
			})
		}),
	)

	slog.InfoContext(ctx, "meetup cancelled", "notified_participants", len(notified))
	return nil
}
