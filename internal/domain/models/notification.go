// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType tags what a notification is about.
type NotificationType string

const (
	// NotificationTypeParticipationRequest is sent to the host when a user asks to join.
	NotificationTypeParticipationRequest NotificationType = "PARTICIPATION_REQUEST"
	// NotificationTypeParticipationAccepted is sent to a requester the host accepted.
	NotificationTypeParticipationAccepted NotificationType = "PARTICIPATION_ACCEPTED"
	// NotificationTypeParticipationRejected is sent to a requester the host rejected or removed.
	NotificationTypeParticipationRejected NotificationType = "PARTICIPATION_REJECTED"
	// NotificationTypeMeetingDeleted is sent to every accepted participant of a cancelled meeting.
	NotificationTypeMeetingDeleted NotificationType = "MEETING_DELETED"
)

// Notification is an entry of the append-only notification trail.
type Notification struct {
	UID         string           `json:"uid" db:"uid"`
	MeetingUID  string           `json:"meeting_uid" db:"meeting_uid"`
	SenderUID   string           `json:"sender_uid" db:"sender_uid"`
	ReceiverUID string           `json:"receiver_uid" db:"receiver_uid"`
	Type        NotificationType `json:"type" db:"type"`
	IsRead      bool             `json:"is_read" db:"is_read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// NewNotification builds an unread notification with a fresh UID.
func NewNotification(meetingUID, senderUID, receiverUID string, notificationType NotificationType, now time.Time) *Notification {
	return &Notification{
		UID:         uuid.New().String(),
		MeetingUID:  meetingUID,
		SenderUID:   senderUID,
		ReceiverUID: receiverUID,
		Type:        notificationType,
		CreatedAt:   now,
	}
}

// DecisionNotificationType returns the notification type that announces a
// transition into the given status. PENDING is not announced.
func DecisionNotificationType(status ParticipationStatus) (NotificationType, bool) {
	switch status {
	case ParticipationStatusAccepted:
		return NotificationTypeParticipationAccepted, true
	case ParticipationStatusRejected:
		return NotificationTypeParticipationRejected, true
	case ParticipationStatusPending:
		return "", false
	default:
		return "", false
	}
}

// IsRequestFrom reports whether the notification is the join request the
// sender addressed to the receiver for the meeting.
func (n *Notification) IsRequestFrom(meetingUID, senderUID, receiverUID string) bool {
	return n.Type == NotificationTypeParticipationRequest &&
		n.MeetingUID == meetingUID &&
		n.SenderUID == senderUID &&
		n.ReceiverUID == receiverUID
}
