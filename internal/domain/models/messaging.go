// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// NATS subjects that the meetup service sends messages about.
const (
	// ParticipationRequestedSubject is the subject for new join requests.
	// The subject is of the form: lfx.meetups.participation_requested
	ParticipationRequestedSubject = "lfx.meetups.participation_requested"

	// ParticipationDecidedSubject is the subject for host decisions applied by a batch.
	// The subject is of the form: lfx.meetups.participation_decided
	ParticipationDecidedSubject = "lfx.meetups.participation_decided"

	// ParticipationRemovedSubject is the subject for withdrawn or removed participations.
	// The subject is of the form: lfx.meetups.participation_removed
	ParticipationRemovedSubject = "lfx.meetups.participation_removed"

	// MeetingCancelledSubject is the subject for soft deleted meetings.
	// The subject is of the form: lfx.meetups.meeting_cancelled
	MeetingCancelledSubject = "lfx.meetups.meeting_cancelled"

	// UserProfilesSubject is the subject used to resolve user profiles from the user service.
	// The subject is of the form: lfx.users-api.get_profiles
	UserProfilesSubject = "lfx.users-api.get_profiles"
)

// NATS wildcard subjects that the meetup service handles messages about.
const (
	// MeetupsAPIQueue is the queue group name for the meetups API.
	// The subject is of the form: lfx.meetups-api.queue
	MeetupsAPIQueue = "lfx.meetups-api.queue"
)

// NATS specific subjects that the meetup service handles messages about.
const (
	// MeetingGetOccupancySubject is the subject for reading a meeting's occupancy.
	// The subject is of the form: lfx.meetups-api.get_occupancy
	MeetingGetOccupancySubject = "lfx.meetups-api.get_occupancy"

	// MeetingGetTitleSubject is the subject for reading a meeting's title.
	// The subject is of the form: lfx.meetups-api.get_title
	MeetingGetTitleSubject = "lfx.meetups-api.get_title"
)

// MessageAction is a type for the action of a participation message.
type MessageAction string

// MessageAction constants for the action of a participation message.
const (
	// ActionCreated is the action for a resource creation message.
	ActionCreated MessageAction = "created"
	// ActionUpdated is the action for a resource update message.
	ActionUpdated MessageAction = "updated"
	// ActionDeleted is the action for a resource deletion message.
	ActionDeleted MessageAction = "deleted"
)

// RemovalKind tells who removed a participation.
type RemovalKind string

const (
	// RemovalKindWithdrawn means the requester withdrew their own request.
	RemovalKindWithdrawn RemovalKind = "withdrawn"
	// RemovalKindRemovedByHost means the host removed the requester.
	RemovalKindRemovedByHost RemovalKind = "removed_by_host"
)

// ParticipationEventMessage is the schema of the events published after a
// participation transition commits.
type ParticipationEventMessage struct {
	Action              MessageAction `json:"action"`
	Participation       Participation `json:"participation"`
	CurrentParticipants int           `json:"current_participants"`
	MaxParticipants     int           `json:"max_participants"`
	Tags                []string      `json:"tags"`
}

// ParticipationRemovedMessage is the schema of the event published after a
// participation row is deleted.
type ParticipationRemovedMessage struct {
	Kind                RemovalKind   `json:"kind"`
	Participation       Participation `json:"participation"`
	ActorUID            string        `json:"actor_uid"`
	CurrentParticipants int           `json:"current_participants"`
}

// MeetingCancelledMessage is the schema of the event published after a
// meeting is soft deleted.
type MeetingCancelledMessage struct {
	MeetingUID      string   `json:"meeting_uid"`
	HostUID         string   `json:"host_uid"`
	NotifiedUserIDs []string `json:"notified_user_uids"`
}

// UserProfilesRequest is the request body sent to the user service.
type UserProfilesRequest struct {
	UserUIDs []string `json:"user_uids"`
}

// UserProfilesResponse is the reply body of the user service.
type UserProfilesResponse struct {
	Profiles []UserProfile `json:"profiles"`
}
