// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
)

// newPostgresTestStore connects to the database named by MEETUP_TEST_POSTGRES_DSN
// and skips the test when it is unset.
func newPostgresTestStore(t *testing.T) *PostgresMeetingStore {
	t.Helper()
	dsn := os.Getenv("MEETUP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MEETUP_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := OpenPostgres(ctx, PostgresConfig{DSN: dsn, MaxOpenConns: 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresMeetingStore(db, nil)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestPostgresMeetingStore_ConditionalIncrement(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()

	meeting := newTestMeeting(uuid.NewString(), 3)
	require.NoError(t, s.CreateMeeting(ctx, meeting))

	var wg sync.WaitGroup
	results := make([]error, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.WithMeeting(ctx, meeting.UID, func(ctx context.Context, tx domain.MeetingTx) error {
				p := newTestParticipation(uuid.NewString(), meeting.UID, uuid.NewString(), testNow)
				if err := tx.CreateParticipation(ctx, p); err != nil {
					return err
				}
				return tx.IncrementParticipants(ctx)
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, domain.ErrorTypeCapacityExceeded, domain.GetErrorType(err))
	}
	assert.Equal(t, 2, succeeded)

	got, err := s.GetMeeting(ctx, meeting.UID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentParticipants)

	rows, err := s.ListParticipations(ctx, meeting.UID)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "rolled back units of work leave no ledger rows")
}

func TestPostgresMeetingStore_DuplicateParticipation(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()

	meeting := newTestMeeting(uuid.NewString(), 5)
	require.NoError(t, s.CreateMeeting(ctx, meeting))

	create := func(ctx context.Context, tx domain.MeetingTx) error {
		return tx.CreateParticipation(ctx, newTestParticipation(uuid.NewString(), meeting.UID, "user-1", testNow))
	}
	require.NoError(t, s.WithMeeting(ctx, meeting.UID, create))
	err := s.WithMeeting(ctx, meeting.UID, create)
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
}

func TestPostgresMeetingStore_PanicRollsBack(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()

	meeting := newTestMeeting(uuid.NewString(), 5)
	require.NoError(t, s.CreateMeeting(ctx, meeting))

	assert.PanicsWithValue(t, "boom", func() {
		_ = s.WithMeeting(ctx, meeting.UID, func(ctx context.Context, tx domain.MeetingTx) error {
			require.NoError(t, tx.CreateParticipation(ctx, newTestParticipation(uuid.NewString(), meeting.UID, "user-1", testNow)))
			panic("boom")
		})
	})

	assert.Zero(t, s.db.Stats().InUse, "connection returned to the pool")

	rows, err := s.ListParticipations(ctx, meeting.UID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// the meeting row lock was released
	require.NoError(t, s.WithMeeting(ctx, meeting.UID, func(ctx context.Context, tx domain.MeetingTx) error {
		return tx.IncrementParticipants(ctx)
	}))
}
