// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// Meeting is a capacity-bounded meetup owned by a single host.
//
// The host implicitly occupies one slot and never has a Participation row, so
// CurrentParticipants always equals 1 + the number of ACCEPTED participations.
type Meeting struct {
	UID                 string    `json:"uid" db:"uid"`
	HostUID             string    `json:"host_uid" db:"host_uid"`
	Title               string    `json:"title" db:"title"`
	Description         string    `json:"description" db:"description"`
	MaxParticipants     int       `json:"max_participants" db:"max_participants"`
	CurrentParticipants int       `json:"current_participants" db:"current_participants"`
	Deleted             bool      `json:"deleted" db:"deleted"`
	MeetingDate         time.Time `json:"meeting_date" db:"meeting_date"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// CreateMeetingRequest carries the fields a host supplies when creating a meeting.
type CreateMeetingRequest struct {
	HostUID         string
	Title           string
	Description     string
	MaxParticipants int
	MeetingDate     time.Time
}

// IsHost reports whether the user owns the meeting.
func (m *Meeting) IsHost(userUID string) bool {
	return m != nil && userUID != "" && m.HostUID == userUID
}

// IsFull reports whether every slot, including the host's, is taken.
func (m *Meeting) IsFull() bool {
	return m.CurrentParticipants >= m.MaxParticipants
}

// AvailableSlots returns the number of slots that can still be accepted.
func (m *Meeting) AvailableSlots() int {
	if m.IsFull() {
		return 0
	}
	return m.MaxParticipants - m.CurrentParticipants
}

// ClosedForRequests reports whether join requests are no longer accepted at the given instant.
func (m *Meeting) ClosedForRequests(now time.Time) bool {
	return !now.Before(m.MeetingDate)
}

// Finished reports whether the meeting date has already passed.
func (m *Meeting) Finished(now time.Time) bool {
	return m.MeetingDate.Before(now)
}

// Tags generates a consistent set of tags for the meeting for searching/indexing.
func (m *Meeting) Tags() []string {
	if m == nil {
		return nil
	}

	tags := []string{}
	if m.UID != "" {
		tags = append(tags, m.UID)
		tags = append(tags, fmt.Sprintf("meeting_uid:%s", m.UID))
	}
	if m.HostUID != "" {
		tags = append(tags, fmt.Sprintf("host_uid:%s", m.HostUID))
	}
	if m.Title != "" {
		tags = append(tags, fmt.Sprintf("title:%s", m.Title))
	}
	return tags
}

// Occupancy is the read-only capacity projection of a meeting.
type Occupancy struct {
	MeetingUID          string `json:"meeting_uid"`
	CurrentParticipants int    `json:"current_participants"`
	MaxParticipants     int    `json:"max_participants"`
	AvailableSlots      int    `json:"available_slots"`
	Deleted             bool   `json:"deleted"`
}

// Occupancy returns the capacity projection of the meeting. A cancelled
// meeting has no available slots.
func (m *Meeting) Occupancy() Occupancy {
	o := Occupancy{
		MeetingUID:          m.UID,
		CurrentParticipants: m.CurrentParticipants,
		MaxParticipants:     m.MaxParticipants,
		Deleted:             m.Deleted,
	}
	if !m.Deleted {
		o.AvailableSlots = m.AvailableSlots()
	}
	return o
}
