// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// meetingAggregate is a meeting together with its ledger rows and
// notifications. The NATS KV and in-memory backends persist it as one unit so
// that a unit of work is a single compare-and-swap of the whole document.
type meetingAggregate struct {
	Meeting        models.Meeting          `json:"meeting"`
	Participations []*models.Participation `json:"participations"`
	Notifications  []*models.Notification  `json:"notifications"`
}

func newMeetingAggregate(meeting *models.Meeting) *meetingAggregate {
	return &meetingAggregate{
		Meeting:        *meeting,
		Participations: []*models.Participation{},
		Notifications:  []*models.Notification{},
	}
}

// clone returns a deep copy so a unit of work can be discarded on error.
func (a *meetingAggregate) clone() *meetingAggregate {
	c := &meetingAggregate{
		Meeting:        a.Meeting,
		Participations: make([]*models.Participation, 0, len(a.Participations)),
		Notifications:  make([]*models.Notification, 0, len(a.Notifications)),
	}
	for _, p := range a.Participations {
		cp := *p
		c.Participations = append(c.Participations, &cp)
	}
	for _, n := range a.Notifications {
		cn := *n
		c.Notifications = append(c.Notifications, &cn)
	}
	return c
}

func (a *meetingAggregate) findParticipation(participationUID string) (int, *models.Participation) {
	for i, p := range a.Participations {
		if p.UID == participationUID {
			return i, p
		}
	}
	return -1, nil
}

// participationsNewestFirst returns copies of the ledger rows, newest first.
func (a *meetingAggregate) participationsNewestFirst() []*models.Participation {
	out := make([]*models.Participation, 0, len(a.Participations))
	for _, p := range a.Participations {
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// notificationsFor returns copies of the notifications addressed to receiverUID.
func (a *meetingAggregate) notificationsFor(receiverUID string, unreadOnly bool) []*models.Notification {
	var out []*models.Notification
	for _, n := range a.Notifications {
		if n.ReceiverUID != receiverUID || (unreadOnly && n.IsRead) {
			continue
		}
		cn := *n
		out = append(out, &cn)
	}
	return out
}

func (a *meetingAggregate) hasNotification(notificationUID, receiverUID string) bool {
	for _, n := range a.Notifications {
		if n.UID == notificationUID && n.ReceiverUID == receiverUID {
			return true
		}
	}
	return false
}

// markRead flags the receiver's notification as read and reports whether it was found.
func (a *meetingAggregate) markRead(notificationUID, receiverUID string) bool {
	for _, n := range a.Notifications {
		if n.UID == notificationUID && n.ReceiverUID == receiverUID {
			n.IsRead = true
			return true
		}
	}
	return false
}

func sortNotificationsNewestFirst(notifications []*models.Notification) {
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
}

// aggregateTx implements domain.MeetingTx over a private copy of an aggregate.
type aggregateTx struct {
	agg *meetingAggregate
	now time.Time
}

var _ domain.MeetingTx = (*aggregateTx)(nil)

func newAggregateTx(agg *meetingAggregate, now time.Time) *aggregateTx {
	return &aggregateTx{agg: agg.clone(), now: now}
}

func (t *aggregateTx) Meeting() *models.Meeting {
	m := t.agg.Meeting
	return &m
}

func (t *aggregateTx) IncrementParticipants(_ context.Context) error {
	m := &t.agg.Meeting
	if m.CurrentParticipants >= m.MaxParticipants {
		return domain.NewCapacityExceededError(fmt.Sprintf("meeting is full (max %d participants)", m.MaxParticipants))
	}
	m.CurrentParticipants++
	m.UpdatedAt = t.now
	return nil
}

func (t *aggregateTx) DecrementParticipants(_ context.Context) error {
	m := &t.agg.Meeting
	if m.CurrentParticipants <= 0 {
		return domain.NewInternalError("participant counter is already zero")
	}
	m.CurrentParticipants--
	m.UpdatedAt = t.now
	return nil
}

func (t *aggregateTx) MarkDeleted(_ context.Context) error {
	t.agg.Meeting.Deleted = true
	t.agg.Meeting.UpdatedAt = t.now
	return nil
}

func (t *aggregateTx) GetParticipation(_ context.Context, participationUID string) (*models.Participation, error) {
	_, p := t.agg.findParticipation(participationUID)
	if p == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("participation '%s' not found", participationUID))
	}
	cp := *p
	return &cp, nil
}

func (t *aggregateTx) FindParticipationByUser(_ context.Context, userUID string) (*models.Participation, error) {
	for _, p := range t.agg.Participations {
		if p.UserUID == userUID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError(fmt.Sprintf("no participation for user '%s'", userUID))
}

func (t *aggregateTx) ListParticipationsByStatus(_ context.Context, status models.ParticipationStatus) ([]*models.Participation, error) {
	var out []*models.Participation
	for _, p := range t.agg.Participations {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *aggregateTx) CreateParticipation(_ context.Context, participation *models.Participation) error {
	for _, p := range t.agg.Participations {
		if p.UserUID == participation.UserUID {
			return domain.NewConflictError("participation already exists for this user and meeting")
		}
		if p.UID == participation.UID {
			return domain.NewConflictError(fmt.Sprintf("participation '%s' already exists", participation.UID))
		}
	}
	cp := *participation
	t.agg.Participations = append(t.agg.Participations, &cp)
	return nil
}

func (t *aggregateTx) UpdateParticipationStatus(_ context.Context, participationUID string, status models.ParticipationStatus) (*models.Participation, error) {
	_, p := t.agg.findParticipation(participationUID)
	if p == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("participation '%s' not found", participationUID))
	}
	p.Status = status
	p.UpdatedAt = t.now
	cp := *p
	return &cp, nil
}

func (t *aggregateTx) DeleteParticipation(_ context.Context, participationUID string) error {
	i, p := t.agg.findParticipation(participationUID)
	if p == nil {
		return domain.NewNotFoundError(fmt.Sprintf("participation '%s' not found", participationUID))
	}
	t.agg.Participations = append(t.agg.Participations[:i], t.agg.Participations[i+1:]...)
	return nil
}

func (t *aggregateTx) CreateNotifications(_ context.Context, notifications ...*models.Notification) error {
	for _, n := range notifications {
		cn := *n
		t.agg.Notifications = append(t.agg.Notifications, &cn)
	}
	return nil
}

func (t *aggregateTx) MarkRequestNotificationsRead(_ context.Context, senderUID, receiverUID string) error {
	for _, n := range t.agg.Notifications {
		if n.IsRequestFrom(t.agg.Meeting.UID, senderUID, receiverUID) && !n.IsRead {
			n.IsRead = true
		}
	}
	return nil
}

func (t *aggregateTx) DeleteRequestNotifications(_ context.Context, senderUID, receiverUID string) error {
	kept := t.agg.Notifications[:0]
	for _, n := range t.agg.Notifications {
		if n.IsRequestFrom(t.agg.Meeting.UID, senderUID, receiverUID) {
			continue
		}
		kept = append(kept, n)
	}
	t.agg.Notifications = kept
	return nil
}
