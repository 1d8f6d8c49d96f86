// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/service"
)

// MeetupHandler answers request/reply messages about meetups.
type MeetupHandler struct {
	meetupService *service.MeetupService
}

func NewMeetupHandler(meetupService *service.MeetupService) *MeetupHandler {
	return &MeetupHandler{
		meetupService: meetupService,
	}
}

func (s *MeetupHandler) HandlerReady() bool {
	return s.meetupService != nil && s.meetupService.ServiceReady()
}

// HandleMessage implements domain.MessageHandler interface
func (s *MeetupHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.MeetingGetOccupancySubject: s.HandleMeetingGetOccupancy,
		models.MeetingGetTitleSubject:     s.HandleMeetingGetTitle,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		s.respond(ctx, msg, nil)
		return
	}

	response, err := handler(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "error handling message", logging.ErrKey, err)
		s.respond(ctx, msg, nil)
		return
	}

	s.respond(ctx, msg, response)
}

func (s *MeetupHandler) respond(ctx context.Context, msg domain.Message, response []byte) {
	if !msg.HasReply() {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
		return
	}
	if err := msg.Respond(response); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
		return
	}
	slog.DebugContext(ctx, "responded to NATS message", "response", string(response))
}

// parseMeetingUID reads a meetup UID from a message body.
func parseMeetingUID(ctx context.Context, msg domain.Message) (string, error) {
	meetingUID := strings.TrimSpace(string(msg.Data()))
	if _, err := uuid.Parse(meetingUID); err != nil {
		slog.WarnContext(ctx, "error parsing meeting ID", logging.ErrKey, err)
		return "", domain.NewValidationError("meeting uid must be a valid UUID", err)
	}
	return meetingUID, nil
}

// HandleMeetingGetOccupancy replies with the capacity projection of a meetup.
func (s *MeetupHandler) HandleMeetingGetOccupancy(ctx context.Context, msg domain.Message) ([]byte, error) {
	if !s.HandlerReady() {
		slog.ErrorContext(ctx, "service not ready")
		return nil, fmt.Errorf("service not ready")
	}

	meetingUID, err := parseMeetingUID(ctx, msg)
	if err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	occupancy, err := s.meetupService.GetOccupancy(ctx, meetingUID)
	if err != nil {
		return nil, err
	}

	return json.Marshal(occupancy)
}

// HandleMeetingGetTitle replies with the title of a meetup that has not been cancelled.
func (s *MeetupHandler) HandleMeetingGetTitle(ctx context.Context, msg domain.Message) ([]byte, error) {
	if !s.HandlerReady() {
		slog.ErrorContext(ctx, "service not ready")
		return nil, fmt.Errorf("service not ready")
	}

	meetingUID, err := parseMeetingUID(ctx, msg)
	if err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	meeting, err := s.meetupService.GetMeeting(ctx, meetingUID)
	if err != nil {
		return nil, err
	}

	return []byte(meeting.Title), nil
}
