// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/concurrent"
)

// ParticipationService owns the participation ledger of a meetup: join
// requests, host decisions and withdrawals. Every write runs inside one unit
// of work of the MeetingStore so the participant counter and the ledger never
// disagree.
type ParticipationService struct {
	MeetingStore   domain.MeetingStore
	MeetingCache   domain.MeetingCache
	MessageBuilder domain.MessageBuilder
	UserDirectory  domain.UserDirectory
	Clock          domain.Clock
	Config         ServiceConfig
}

// NewParticipationService creates a new ParticipationService.
func NewParticipationService(
	meetingStore domain.MeetingStore,
	meetingCache domain.MeetingCache,
	messageBuilder domain.MessageBuilder,
	userDirectory domain.UserDirectory,
	clock domain.Clock,
	config ServiceConfig,
) *ParticipationService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &ParticipationService{
		MeetingStore:   meetingStore,
		MeetingCache:   meetingCache,
		MessageBuilder: messageBuilder,
		UserDirectory:  userDirectory,
		Clock:          clock,
		Config:         config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *ParticipationService) ServiceReady() bool {
	return s.MeetingStore != nil &&
		s.MeetingCache != nil &&
		s.MessageBuilder != nil &&
		s.UserDirectory != nil &&
		s.Clock != nil
}

// RequestJoin records a PENDING join request for the user and notifies the host.
func (s *ParticipationService) RequestJoin(ctx context.Context, meetingUID, userUID string) (*models.Participation, error) {
	if !s.ServiceReady() {
		return nil, serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("user_uid", userUID))

	if meetingUID == "" || userUID == "" {
		slog.WarnContext(ctx, "meeting and user are required to request a participation")
		return nil, domain.NewValidationError("meeting uid and user uid are required")
	}

	var (
		created  *models.Participation
		snapshot models.Meeting
	)
	err := s.MeetingStore.WithMeeting(ctx, meetingUID, func(ctx context.Context, tx domain.MeetingTx) error {
		meeting := tx.Meeting()
		now := s.Clock.Now()

		if meeting.Deleted {
			return domain.NewGoneError("meetup has been cancelled")
		}
		if meeting.ClosedForRequests(now) {
			return domain.NewValidationError("meetup date has already passed")
		}
		if meeting.IsHost(userUID) {
			return domain.NewValidationError("host cannot request to join their own meetup")
		}
		if s.Config.RejectJoinWhenFull && meeting.IsFull() {
			recordCapacityRejection(ctx, capacityStageIntake)
			return domain.NewCapacityExceededError("meetup is full")
		}

		_, err := tx.FindParticipationByUser(ctx, userUID)
		switch {
		case err == nil:
			return domain.NewConflictError("participation already requested")
		case domain.GetErrorType(err) != domain.ErrorTypeNotFound:
			return err
		}

		participation := &models.Participation{
			UID:        uuid.New().String(),
			MeetingUID: meeting.UID,
			UserUID:    userUID,
			Status:     models.ParticipationStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.CreateParticipation(ctx, participation); err != nil {
			return err
		}

		request := models.NewNotification(meeting.UID, userUID, meeting.HostUID, models.NotificationTypeParticipationRequest, now)
		if err := tx.CreateNotifications(ctx, request); err != nil {
			return err
		}

		created = participation
		snapshot = *meeting
		return nil
	})
	if err != nil {
		logOperationError(ctx, "join request rejected", err)
		return nil, err
	}

	runAfterCommit(ctx, s.Config.postCommitWorkers(),
		concurrent.NewTask("participation requested event", func(ctx context.Context) error {
			return s.MessageBuilder.SendParticipationRequested(ctx, models.ParticipationEventMessage{
				Action:              models.ActionCreated,
				Participation:       *created,
				CurrentParticipants: snapshot.CurrentParticipants,
				MaxParticipants:     snapshot.MaxParticipants,
				Tags:                created.Tags(),
			})
		}),
	)

	slog.InfoContext(ctx, "participation requested", "participation_uid", created.UID)
	return created, nil
}

// ListApplicants returns the ledger of a meetup to its host, newest request
// first. Profiles that cannot be resolved are left blank.
func (s *ParticipationService) ListApplicants(ctx context.Context, meetingUID, callerUID string) ([]*models.ApplicantView, error) {
	if !s.ServiceReady() {
		return nil, serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	meeting, err := s.MeetingStore.GetMeeting(ctx, meetingUID)
	if err != nil {
		logOperationError(ctx, "error getting meetup for applicants", err)
		return nil, err
	}
	if meeting.Deleted {
		return nil, domain.NewGoneError("meetup has been cancelled")
	}
	if !meeting.IsHost(callerUID) {
		slog.WarnContext(ctx, "only the host can list applicants", "caller_uid", callerUID)
		return nil, domain.NewForbiddenError("only the host can list applicants")
	}

	participations, err := s.MeetingStore.ListParticipations(ctx, meetingUID)
	if err != nil {
		logOperationError(ctx, "error listing participations", err)
		return nil, err
	}

	userUIDs := make([]string, 0, len(participations))
	for _, p := range participations {
		userUIDs = append(userUIDs, p.UserUID)
	}

	profiles, err := s.UserDirectory.GetUserProfiles(ctx, userUIDs)
	if err != nil {
		slog.WarnContext(ctx, "could not resolve applicant profiles", logging.ErrKey, err)
		profiles = nil
	}

	applicants := make([]*models.ApplicantView, 0, len(participations))
	for _, p := range participations {
		profile := profiles[p.UserUID]
		applicants = append(applicants, &models.ApplicantView{
			ParticipationUID: p.UID,
			UserUID:          p.UserUID,
			Nickname:         profile.Nickname,
			Bio:              profile.Bio,
			Status:           p.Status,
			RequestedAt:      p.CreatedAt,
		})
	}

	slog.DebugContext(ctx, "returning applicants", "count", len(applicants))
	return applicants, nil
}

func (s *ParticipationService) validateDecisions(ctx context.Context, decisions []models.ParticipationDecision) error {
	if len(decisions) > s.Config.batchLimit() {
		slog.WarnContext(ctx, "too many decisions in one batch", "count", len(decisions), "limit", s.Config.batchLimit())
		return domain.NewValidationError("too many decisions in one batch")
	}
	for _, d := range decisions {
		if strings.TrimSpace(d.ParticipationUID) == "" {
			return domain.NewValidationError("participation uid is required for every decision")
		}
		if !d.Status.IsValid() {
			slog.WarnContext(ctx, "unknown participation status", "status", d.Status)
			return domain.NewValidationError("unknown participation status " + string(d.Status))
		}
	}
	return nil
}

// ApplyDecisions applies a host's ordered batch of status decisions as one
// unit of work. If any acceptance would take the meetup past its ceiling the
// whole batch is discarded and a CapacityExceeded error is returned. Decisions
// for rows that do not exist, or that already hold the requested status, are
// skipped.
func (s *ParticipationService) ApplyDecisions(
	ctx context.Context,
	meetingUID, callerUID string,
	decisions []models.ParticipationDecision,
) ([]*models.Participation, error) {
	if !s.ServiceReady() {
		return nil, serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("caller_uid", callerUID))

	if err := s.validateDecisions(ctx, decisions); err != nil {
		return nil, err
	}

	var (
		applied  []*models.Participation
		snapshot models.Meeting
	)
	err := s.MeetingStore.WithMeeting(ctx, meetingUID, func(ctx context.Context, tx domain.MeetingTx) error {
		applied = nil
		meeting := tx.Meeting()
		now := s.Clock.Now()

		if meeting.Deleted {
			return domain.NewGoneError("meetup has been cancelled")
		}
		if !meeting.IsHost(callerUID) {
			return domain.NewForbiddenError("only the host can decide on participations")
		}

		occupied := meeting.CurrentParticipants
		for _, decision := range decisions {
			current, err := tx.GetParticipation(ctx, decision.ParticipationUID)
			if err != nil {
				if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
					slog.DebugContext(ctx, "skipping decision for unknown participation", "participation_uid", decision.ParticipationUID)
					continue
				}
				return err
			}
			if current.Status == decision.Status {
				continue
			}

			switch {
			case decision.Status == models.ParticipationStatusAccepted:
				if occupied >= meeting.MaxParticipants {
					recordCapacityRejection(ctx, capacityStageDecision)
					return domain.NewCapacityExceededError("accepting participation " + current.UID + " would exceed the meetup capacity")
				}
				if err := tx.IncrementParticipants(ctx); err != nil {
					return err
				}
				occupied++
			case current.Status == models.ParticipationStatusAccepted:
				if err := tx.DecrementParticipants(ctx); err != nil {
					return err
				}
				occupied--
			}

			updated, err := tx.UpdateParticipationStatus(ctx, current.UID, decision.Status)
			if err != nil {
				return err
			}
			if err := tx.MarkRequestNotificationsRead(ctx, current.UserUID, meeting.HostUID); err != nil {
				return err
			}
			if notificationType, ok := models.DecisionNotificationType(decision.Status); ok {
				notification := models.NewNotification(meeting.UID, meeting.HostUID, current.UserUID, notificationType, now)
				if err := tx.CreateNotifications(ctx, notification); err != nil {
					return err
				}
			}
			applied = append(applied, updated)
		}

		snapshot = *tx.Meeting()
		return nil
	})
	if err != nil {
		logOperationError(ctx, "participation decisions discarded", err)
		return nil, err
	}

	if len(applied) > 0 {
		tasks := []concurrent.Task{
			concurrent.NewTask("invalidate meetup cache", func(ctx context.Context) error {
				return s.MeetingCache.Invalidate(ctx, meetingUID)
			}),
		}
		for _, p := range applied {
			tasks = append(tasks, concurrent.NewTask("participation decided event", func(ctx context.Context) error {
				return s.MessageBuilder.SendParticipationDecided(ctx, models.ParticipationEventMessage{
					Action:              models.ActionUpdated,
					Participation:       *p,
					CurrentParticipants: snapshot.CurrentParticipants,
					MaxParticipants:     snapshot.MaxParticipants,
					Tags:                p.Tags(),
				})
			}))
		}
		runAfterCommit(ctx, s.Config.postCommitWorkers(), tasks...)
	}

	slog.InfoContext(ctx, "participation decisions applied",
		"requested", len(decisions),
		"applied", len(applied),
		"current_participants", snapshot.CurrentParticipants,
	)
	if applied == nil {
		applied = []*models.Participation{}
	}
	return applied, nil
}

// WithdrawOrRemove deletes a participation. The requester may withdraw their
// own request and the host may remove anyone else's. Accepted rows release
// their slot.
func (s *ParticipationService) WithdrawOrRemove(ctx context.Context, meetingUID, participationUID, callerUID string) error {
	if !s.ServiceReady() {
		return serviceNotReady(ctx)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("participation_uid", participationUID))
	ctx = logging.AppendCtx(ctx, slog.String("caller_uid", callerUID))

	var (
		removed  models.Participation
		kind     models.RemovalKind
		snapshot models.Meeting
	)
	err := s.MeetingStore.WithMeeting(ctx, meetingUID, func(ctx context.Context, tx domain.MeetingTx) error {
		meeting := tx.Meeting()
		now := s.Clock.Now()

		participation, err := tx.GetParticipation(ctx, participationUID)
		if err != nil {
			return err
		}
		if meeting.Deleted {
			return domain.NewGoneError("meetup has been cancelled")
		}

		isRequester := callerUID != "" && participation.UserUID == callerUID
		isHost := meeting.IsHost(callerUID)
		switch {
		case isRequester && isHost:
			return domain.NewValidationError("host cannot hold a participation in their own meetup")
		case isRequester:
			kind = models.RemovalKindWithdrawn
		case isHost:
			kind = models.RemovalKindRemovedByHost
		default:
			return domain.NewForbiddenError("only the requester or the host can remove a participation")
		}

		if participation.Status == models.ParticipationStatusAccepted {
			if err := tx.DecrementParticipants(ctx); err != nil {
				return err
			}
		}
		if err := tx.DeleteParticipation(ctx, participation.UID); err != nil {
			return err
		}

		if kind == models.RemovalKindRemovedByHost {
			rejected := models.NewNotification(meeting.UID, meeting.HostUID, participation.UserUID, models.NotificationTypeParticipationRejected, now)
			if err := tx.CreateNotifications(ctx, rejected); err != nil {
				return err
			}
		}
		if err := tx.DeleteRequestNotifications(ctx, participation.UserUID, meeting.HostUID); err != nil {
			return err
		}

		removed = *participation
		snapshot = *tx.Meeting()
		return nil
	})
	if err != nil {
		logOperationError(ctx, "participation removal rejected", err)
		return err
	}

	tasks := []concurrent.Task{
		concurrent.NewTask("participation removed event", func(ctx context.Context) error {
			return s.MessageBuilder.SendParticipationRemoved(ctx, models.ParticipationRemovedMessage{
				Kind:                kind,
				Participation:       removed,
				ActorUID:            callerUID,
				CurrentParticipants: snapshot.CurrentParticipants,
			})
		}),
	}
	if removed.Status == models.ParticipationStatusAccepted {
		tasks = append(tasks, concurrent.NewTask("invalidate meetup cache", func(ctx context.Context) error {
			return s.MeetingCache.Invalidate(ctx, meetingUID)
		}))
	}
	runAfterCommit(ctx, s.Config.postCommitWorkers(), tasks...)

	slog.InfoContext(ctx, "participation removed", "kind", kind)
	return nil
}
