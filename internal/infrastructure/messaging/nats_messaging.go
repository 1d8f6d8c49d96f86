// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/constants"
)

// INatsConn is a NATS connection interface needed for the [MessageBuilder].
type INatsConn interface {
	IsConnected() bool
	PublishMsg(msg *nats.Msg) error
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
}

// MessageBuilder is the builder for the message and sends it to the NATS server.
// It also answers user profile lookups over NATS request/reply.
type MessageBuilder struct {
	NatsConn       INatsConn
	RequestTimeout time.Duration
}

var (
	_ domain.MessageBuilder = (*MessageBuilder)(nil)
	_ domain.UserDirectory  = (*MessageBuilder)(nil)
)

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn:       natsConn,
		RequestTimeout: constants.DefaultNATSRequestTimeout,
	}
}

// publish sends the message to the NATS server, forwarding the caller identity
// from the context as message headers.
func (m *MessageBuilder) publish(ctx context.Context, subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	if principal, ok := ctx.Value(constants.PrincipalContextID).(string); ok {
		msg.Header.Set(constants.XOnBehalfOfHeader, principal)
	}
	if requestID, ok := ctx.Value(constants.RequestIDContextID).(string); ok {
		msg.Header.Set(constants.RequestIDHeader, requestID)
	}

	if err := m.NatsConn.PublishMsg(msg); err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// request sends the message and waits for a single reply.
func (m *MessageBuilder) request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	msg, err := m.NatsConn.Request(subject, data, timeout)
	if err != nil {
		slog.ErrorContext(ctx, "error requesting from NATS", logging.ErrKey, err, "subject", subject)
		return nil, err
	}
	return msg, nil
}

func (m *MessageBuilder) sendJSON(ctx context.Context, subject string, data any) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}
	return m.publish(ctx, subject, dataBytes)
}

// SendParticipationRequested announces a new join request.
func (m *MessageBuilder) SendParticipationRequested(ctx context.Context, data models.ParticipationEventMessage) error {
	return m.sendJSON(ctx, models.ParticipationRequestedSubject, data)
}

// SendParticipationDecided announces a host decision.
func (m *MessageBuilder) SendParticipationDecided(ctx context.Context, data models.ParticipationEventMessage) error {
	return m.sendJSON(ctx, models.ParticipationDecidedSubject, data)
}

// SendParticipationRemoved announces a withdrawal or a host removal.
func (m *MessageBuilder) SendParticipationRemoved(ctx context.Context, data models.ParticipationRemovedMessage) error {
	return m.sendJSON(ctx, models.ParticipationRemovedSubject, data)
}

// SendMeetingCancelled announces a soft deleted meeting.
func (m *MessageBuilder) SendMeetingCancelled(ctx context.Context, data models.MeetingCancelledMessage) error {
	return m.sendJSON(ctx, models.MeetingCancelledSubject, data)
}

// GetUserProfiles resolves nicknames and bios from the user service.
// Users the service does not know are absent from the result.
func (m *MessageBuilder) GetUserProfiles(ctx context.Context, userUIDs []string) (map[string]models.UserProfile, error) {
	profiles := make(map[string]models.UserProfile, len(userUIDs))
	if len(userUIDs) == 0 {
		return profiles, nil
	}

	if !m.NatsConn.IsConnected() {
		return nil, domain.NewUnavailableError("user directory is not reachable")
	}

	payload, err := json.Marshal(models.UserProfilesRequest{UserUIDs: userUIDs})
	if err != nil {
		return nil, domain.NewInternalError("failed to encode user profile request", err)
	}

	reply, err := m.request(ctx, models.UserProfilesSubject, payload, m.RequestTimeout)
	if err != nil {
		return nil, domain.NewUnavailableError("user directory did not answer", err)
	}

	var resp models.UserProfilesResponse
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		slog.ErrorContext(ctx, "error decoding user profiles", logging.ErrKey, err)
		return nil, domain.NewInternalError(fmt.Sprintf("invalid reply on %s", models.UserProfilesSubject), err)
	}

	for _, p := range resp.Profiles {
		profiles[p.UID] = p
	}
	return profiles, nil
}
