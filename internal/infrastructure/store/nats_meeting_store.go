// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// KVStoreNameMeetups is the NATS Key-Value bucket holding meetup aggregates.
const KVStoreNameMeetups = "meetups"

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/store"

const keyPrefixMeeting = "meeting."

// INatsKeyValue is the subset of jetstream.KeyValue used by [NatsMeetingStore].
type INatsKeyValue interface {
	ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Update(context.Context, string, []byte, uint64) (uint64, error)
}

// NatsMeetingStore keeps each meeting, its participations and its notifications
// as one document in a NATS KV bucket. Every unit of work is committed with a
// revision-checked update, so two writers racing on the same meeting cannot
// both succeed; the loser gets a conflict error.
type NatsMeetingStore struct {
	kvStore INatsKeyValue
	clock   domain.Clock
}

var _ domain.MeetingStore = (*NatsMeetingStore)(nil)

// NewNatsMeetingStore creates a store over the given KV bucket.
func NewNatsMeetingStore(kvStore INatsKeyValue, clock domain.Clock) *NatsMeetingStore {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &NatsMeetingStore{kvStore: kvStore, clock: clock}
}

// IsReady checks if the store is ready for use
func (s *NatsMeetingStore) IsReady() bool {
	return s.kvStore != nil
}

func meetingKey(meetingUID string) string {
	return keyPrefixMeeting + meetingUID
}

func startSpan(ctx context.Context, name, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String("db.system", "nats"),
		attribute.String("db.operation", operation),
	}, attrs...)
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func failSpan(span trace.Span, err error, status string) error {
	span.RecordError(err)
	if status == "" {
		status = err.Error()
	}
	span.SetStatus(codes.Error, status)
	return err
}

func (s *NatsMeetingStore) load(ctx context.Context, meetingUID string) (*meetingAggregate, uint64, error) {
	key := meetingKey(meetingUID)
	ctx, span := startSpan(ctx, "nats.kv.get", "get", attribute.String("db.nats.key", key))
	defer span.End()

	if !s.IsReady() {
		return nil, 0, failSpan(span, domain.NewUnavailableError("meetup store is not available"), "")
	}

	entry, err := s.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, failSpan(span,
				domain.NewNotFoundError(fmt.Sprintf("meeting '%s' not found", meetingUID), err), "not found")
		}
		slog.ErrorContext(ctx, "error getting meeting from NATS KV", logging.ErrKey, err, "key", key)
		return nil, 0, failSpan(span, domain.NewInternalError("failed to retrieve meeting from store", err), "")
	}

	var agg meetingAggregate
	if err := json.Unmarshal(entry.Value(), &agg); err != nil {
		slog.ErrorContext(ctx, "error unmarshaling meeting", logging.ErrKey, err, "key", key)
		return nil, 0, failSpan(span, domain.NewInternalError("failed to unmarshal meeting data", err), "")
	}

	span.SetStatus(codes.Ok, "")
	return &agg, entry.Revision(), nil
}

// save writes the aggregate only if the key is still at revision. A zero
// revision means the key must not exist yet.
func (s *NatsMeetingStore) save(ctx context.Context, agg *meetingAggregate, revision uint64) error {
	key := meetingKey(agg.Meeting.UID)
	ctx, span := startSpan(ctx, "nats.kv.update", "update",
		attribute.String("db.nats.key", key),
		attribute.Int64("db.nats.revision", int64(revision)),
	)
	defer span.End()

	if !s.IsReady() {
		return failSpan(span, domain.NewUnavailableError("meetup store is not available"), "")
	}

	data, err := json.Marshal(agg)
	if err != nil {
		slog.ErrorContext(ctx, "error marshaling meeting", logging.ErrKey, err, "key", key)
		return failSpan(span, domain.NewInternalError("failed to marshal meeting", err), "")
	}

	if _, err := s.kvStore.Update(ctx, key, data, revision); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) || strings.Contains(err.Error(), "wrong last sequence") {
			msg := "meeting has been modified concurrently, retry the request"
			if revision == 0 {
				msg = fmt.Sprintf("meeting '%s' already exists", agg.Meeting.UID)
			}
			return failSpan(span, domain.NewConflictError(msg, err), "conflict")
		}
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return failSpan(span, domain.NewNotFoundError("meeting not found", err), "not found")
		}
		slog.ErrorContext(ctx, "error updating meeting in NATS KV",
			logging.ErrKey, err, "key", key, "revision", revision)
		return failSpan(span, domain.NewInternalError("failed to update meeting in store", err), "")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// loadAll reads every meeting aggregate in the bucket. A key removed between
// listing and reading is skipped; any other read failure aborts the scan.
func (s *NatsMeetingStore) loadAll(ctx context.Context) ([]*meetingAggregate, error) {
	ctx, span := startSpan(ctx, "nats.kv.list_keys", "list_keys")
	defer span.End()

	if !s.IsReady() {
		return nil, failSpan(span, domain.NewUnavailableError("meetup store is not available"), "")
	}

	lister, err := s.kvStore.ListKeys(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error listing meeting keys from NATS KV", logging.ErrKey, err)
		return nil, failSpan(span, domain.NewInternalError("failed to list meetings from store", err), "")
	}
	defer func() {
		_ = lister.Stop()
	}()

	var aggs []*meetingAggregate
	for key := range lister.Keys() {
		if !strings.HasPrefix(key, keyPrefixMeeting) {
			continue
		}
		agg, _, err := s.load(ctx, strings.TrimPrefix(key, keyPrefixMeeting))
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				slog.DebugContext(ctx, "meeting disappeared while listing, skipping", "key", key)
				continue
			}
			slog.ErrorContext(ctx, "error reading meeting while listing", "key", key, logging.ErrKey, err)
			return nil, failSpan(span, domain.NewInternalError("failed to read meetings from store", err), "")
		}
		aggs = append(aggs, agg)
	}

	span.SetAttributes(attribute.Int("db.nats.keys_count", len(aggs)))
	span.SetStatus(codes.Ok, "")
	return aggs, nil
}

func (s *NatsMeetingStore) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	return s.save(ctx, newMeetingAggregate(meeting), 0)
}

func (s *NatsMeetingStore) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	agg, _, err := s.load(ctx, meetingUID)
	if err != nil {
		return nil, err
	}
	return &agg.Meeting, nil
}

func (s *NatsMeetingStore) WithMeeting(ctx context.Context, meetingUID string, fn func(ctx context.Context, tx domain.MeetingTx) error) error {
	agg, revision, err := s.load(ctx, meetingUID)
	if err != nil {
		return err
	}

	tx := newAggregateTx(agg, s.clock.Now())
	if err := fn(ctx, tx); err != nil {
		return err
	}

	return s.save(ctx, tx.agg, revision)
}

func (s *NatsMeetingStore) ListParticipations(ctx context.Context, meetingUID string) ([]*models.Participation, error) {
	agg, _, err := s.load(ctx, meetingUID)
	if err != nil {
		return nil, err
	}
	return agg.participationsNewestFirst(), nil
}

func (s *NatsMeetingStore) ListNotifications(ctx context.Context, receiverUID string, unreadOnly bool) ([]*models.Notification, error) {
	aggs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []*models.Notification
	for _, agg := range aggs {
		out = append(out, agg.notificationsFor(receiverUID, unreadOnly)...)
	}
	sortNotificationsNewestFirst(out)
	return out, nil
}

// MarkNotificationRead finds the meeting holding the notification and flips
// its read flag under the same revision check as any other write.
func (s *NatsMeetingStore) MarkNotificationRead(ctx context.Context, notificationUID, receiverUID string) error {
	aggs, err := s.loadAll(ctx)
	if err != nil {
		return err
	}

	for _, agg := range aggs {
		if !agg.hasNotification(notificationUID, receiverUID) {
			continue
		}
		current, revision, err := s.load(ctx, agg.Meeting.UID)
		if err != nil {
			return err
		}
		if !current.markRead(notificationUID, receiverUID) {
			break
		}
		return s.save(ctx, current, revision)
	}
	return domain.NewNotFoundError(fmt.Sprintf("notification '%s' not found", notificationUID))
}
