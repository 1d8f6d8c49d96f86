// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// MemoryMeetingStore is an in-process MeetingStore used for local development
// and tests. Units of work on the same meeting are serialized by a per-meeting
// lock and commit by swapping in the modified copy of the aggregate.
type MemoryMeetingStore struct {
	clock domain.Clock

	mu       sync.RWMutex
	meetings map[string]*meetingAggregate
	locks    map[string]*sync.Mutex
}

var _ domain.MeetingStore = (*MemoryMeetingStore)(nil)

// NewMemoryMeetingStore creates an empty in-memory store.
func NewMemoryMeetingStore(clock domain.Clock) *MemoryMeetingStore {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &MemoryMeetingStore{
		clock:    clock,
		meetings: make(map[string]*meetingAggregate),
		locks:    make(map[string]*sync.Mutex),
	}
}

// IsReady checks if the store is ready for use
func (s *MemoryMeetingStore) IsReady() bool {
	return s != nil && s.meetings != nil
}

func (s *MemoryMeetingStore) CreateMeeting(_ context.Context, meeting *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.meetings[meeting.UID]; exists {
		return domain.NewConflictError(fmt.Sprintf("meeting '%s' already exists", meeting.UID))
	}
	s.meetings[meeting.UID] = newMeetingAggregate(meeting)
	s.locks[meeting.UID] = &sync.Mutex{}
	return nil
}

func (s *MemoryMeetingStore) GetMeeting(_ context.Context, meetingUID string) (*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, ok := s.meetings[meetingUID]
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("meeting '%s' not found", meetingUID))
	}
	m := agg.Meeting
	return &m, nil
}

func (s *MemoryMeetingStore) WithMeeting(ctx context.Context, meetingUID string, fn func(ctx context.Context, tx domain.MeetingTx) error) error {
	s.mu.RLock()
	lock, ok := s.locks[meetingUID]
	s.mu.RUnlock()
	if !ok {
		return domain.NewNotFoundError(fmt.Sprintf("meeting '%s' not found", meetingUID))
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	tx := newAggregateTx(s.meetings[meetingUID], s.clock.Now())
	s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.meetings[meetingUID] = tx.agg
	s.mu.Unlock()
	return nil
}

func (s *MemoryMeetingStore) ListParticipations(_ context.Context, meetingUID string) ([]*models.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, ok := s.meetings[meetingUID]
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("meeting '%s' not found", meetingUID))
	}
	return agg.participationsNewestFirst(), nil
}

func (s *MemoryMeetingStore) ListNotifications(_ context.Context, receiverUID string, unreadOnly bool) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for _, agg := range s.meetings {
		out = append(out, agg.notificationsFor(receiverUID, unreadOnly)...)
	}
	sortNotificationsNewestFirst(out)
	return out, nil
}

func (s *MemoryMeetingStore) MarkNotificationRead(_ context.Context, notificationUID, receiverUID string) error {
	s.mu.RLock()
	var lock *sync.Mutex
	var meetingUID string
	for uid, agg := range s.meetings {
		if agg.hasNotification(notificationUID, receiverUID) {
			meetingUID, lock = uid, s.locks[uid]
			break
		}
	}
	s.mu.RUnlock()
	if lock == nil {
		return domain.NewNotFoundError(fmt.Sprintf("notification '%s' not found", notificationUID))
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[meetingUID].markRead(notificationUID, receiverUID)
	return nil
}
