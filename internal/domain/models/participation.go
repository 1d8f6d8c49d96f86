// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"strings"
	"time"
)

// ParticipationStatus is the state of a join request.
type ParticipationStatus string

const (
	// ParticipationStatusPending is the state every join request starts in.
	ParticipationStatusPending ParticipationStatus = "PENDING"
	// ParticipationStatusAccepted means the requester holds a slot.
	ParticipationStatusAccepted ParticipationStatus = "ACCEPTED"
	// ParticipationStatusRejected means the host declined the request.
	ParticipationStatusRejected ParticipationStatus = "REJECTED"
)

// IsValid reports whether the status is one of the known states.
func (s ParticipationStatus) IsValid() bool {
	switch s {
	case ParticipationStatusPending, ParticipationStatusAccepted, ParticipationStatusRejected:
		return true
	default:
		return false
	}
}

// ParseParticipationStatus parses a status case-insensitively.
func ParseParticipationStatus(raw string) (ParticipationStatus, error) {
	status := ParticipationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown participation status %q", raw)
	}
	return status, nil
}

// Participation is a ledger row: one user's join request for one meeting.
type Participation struct {
	UID        string              `json:"uid" db:"uid"`
	MeetingUID string              `json:"meeting_uid" db:"meeting_uid"`
	UserUID    string              `json:"user_uid" db:"user_uid"`
	Status     ParticipationStatus `json:"status" db:"status"`
	CreatedAt  time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at" db:"updated_at"`
}

// Tags generates a consistent set of tags for the participation for searching/indexing.
func (p *Participation) Tags() []string {
	if p == nil {
		return nil
	}

	tags := []string{}
	if p.UID != "" {
		tags = append(tags, p.UID)
		tags = append(tags, fmt.Sprintf("participation_uid:%s", p.UID))
	}
	if p.MeetingUID != "" {
		tags = append(tags, fmt.Sprintf("meeting_uid:%s", p.MeetingUID))
	}
	if p.UserUID != "" {
		tags = append(tags, fmt.Sprintf("user_uid:%s", p.UserUID))
	}
	if p.Status != "" {
		tags = append(tags, fmt.Sprintf("status:%s", p.Status))
	}
	return tags
}

// ParticipationDecision is one item of a host's batch decision.
type ParticipationDecision struct {
	ParticipationUID string              `json:"participation_uid"`
	Status           ParticipationStatus `json:"status"`
}

// UserProfile is the public profile of a user as returned by the user directory.
type UserProfile struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	Bio      string `json:"bio"`
}

// ApplicantView is the host-facing projection of a ledger row and its requester.
type ApplicantView struct {
	ParticipationUID string              `json:"participation_uid"`
	UserUID          string              `json:"user_uid"`
	Nickname         string              `json:"nickname"`
	Bio              string              `json:"bio"`
	Status           ParticipationStatus `json:"status"`
	RequestedAt      time.Time           `json:"requested_at"`
}
