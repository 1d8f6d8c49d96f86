// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// ParticipationEventSender publishes participation lifecycle events once the
// unit of work that produced them has committed.
type ParticipationEventSender interface {
	SendParticipationRequested(ctx context.Context, data models.ParticipationEventMessage) error
	SendParticipationDecided(ctx context.Context, data models.ParticipationEventMessage) error
	SendParticipationRemoved(ctx context.Context, data models.ParticipationRemovedMessage) error
}

// MeetingEventSender publishes meeting lifecycle events.
type MeetingEventSender interface {
	SendMeetingCancelled(ctx context.Context, data models.MeetingCancelledMessage) error
}

// MessageBuilder is the main interface that composes all messaging capabilities.
type MessageBuilder interface {
	ParticipationEventSender
	MeetingEventSender
}
