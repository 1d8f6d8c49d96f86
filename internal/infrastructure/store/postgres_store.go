// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
)

const pqUniqueViolation = pq.ErrorCode("23505")

// PostgresConfig holds the connection settings of the relational store.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PostgresMeetingStore is the primary MeetingStore. A unit of work is a
// database transaction that holds a row lock on the meeting for its whole
// duration; occupancy increments are additionally guarded by a conditional
// update so the ceiling holds even outside the lock.
type PostgresMeetingStore struct {
	db    *sqlx.DB
	clock domain.Clock
}

var _ domain.MeetingStore = (*PostgresMeetingStore)(nil)

// OpenPostgres connects to PostgreSQL and verifies the connection.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewPostgresMeetingStore creates a store over an open database handle.
func NewPostgresMeetingStore(db *sqlx.DB, clock domain.Clock) *PostgresMeetingStore {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &PostgresMeetingStore{db: db, clock: clock}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *PostgresMeetingStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// IsReady checks if the store is ready for use
func (s *PostgresMeetingStore) IsReady() bool {
	return s.db != nil
}

func startSQLSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
	}, attrs...)
	return otel.Tracer(tracerName).Start(ctx, "postgres."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// mapSQLError converts driver errors into domain errors.
func mapSQLError(ctx context.Context, err error, notFoundMsg, action string) error {
	if err == nil {
		return nil
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(notFoundMsg, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return domain.NewConflictError("participation already exists for this user and meeting", err)
	}
	slog.ErrorContext(ctx, "postgres error", logging.ErrKey, err, "action", action)
	return domain.NewInternalError(fmt.Sprintf("failed to %s", action), err)
}

const meetingColumns = `uid, host_uid, title, description, max_participants, current_participants,
	deleted, meeting_date, created_at, updated_at`

func (s *PostgresMeetingStore) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	ctx, span := startSQLSpan(ctx, "insert", attribute.String("db.sql.table", "meetings"))
	defer span.End()

	if !s.IsReady() {
		return failSpan(span, domain.NewUnavailableError("meetup store is not available"), "")
	}

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO meetings (`+meetingColumns+`)
		VALUES (:uid, :host_uid, :title, :description, :max_participants, :current_participants,
			:deleted, :meeting_date, :created_at, :updated_at)`, meeting)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return failSpan(span, domain.NewConflictError(fmt.Sprintf("meeting '%s' already exists", meeting.UID), err), "conflict")
		}
		return failSpan(span, mapSQLError(ctx, err, "", "create meeting"), "")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *PostgresMeetingStore) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	ctx, span := startSQLSpan(ctx, "select", attribute.String("db.sql.table", "meetings"))
	defer span.End()

	if !s.IsReady() {
		return nil, failSpan(span, domain.NewUnavailableError("meetup store is not available"), "")
	}

	var meeting models.Meeting
	err := s.db.GetContext(ctx, &meeting, `SELECT `+meetingColumns+` FROM meetings WHERE uid = $1`, meetingUID)
	if err != nil {
		return nil, failSpan(span, mapSQLError(ctx, err, fmt.Sprintf("meeting '%s' not found", meetingUID), "get meeting"), "")
	}

	span.SetStatus(codes.Ok, "")
	return &meeting, nil
}

// WithMeeting runs fn inside a transaction holding FOR UPDATE on the meeting row.
func (s *PostgresMeetingStore) WithMeeting(ctx context.Context, meetingUID string, fn func(ctx context.Context, tx domain.MeetingTx) error) (err error) {
	ctx, span := startSQLSpan(ctx, "transaction", attribute.String("meeting_uid", meetingUID))
	defer span.End()

	if !s.IsReady() {
		return failSpan(span, domain.NewUnavailableError("meetup store is not available"), "")
	}

	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return failSpan(span, mapSQLError(ctx, err, "", "begin transaction"), "")
	}
	rollback := func() {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "failed to roll back transaction", logging.ErrKey, rbErr)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			rollback()
			span.SetStatus(codes.Error, "panic")
			panic(r)
		}
		if err != nil {
			rollback()
			failSpan(span, err, "")
		}
	}()

	var meeting models.Meeting
	err = sqlTx.GetContext(ctx, &meeting,
		`SELECT `+meetingColumns+` FROM meetings WHERE uid = $1 FOR UPDATE`, meetingUID)
	if err != nil {
		return mapSQLError(ctx, err, fmt.Sprintf("meeting '%s' not found", meetingUID), "lock meeting")
	}

	tx := &postgresTx{tx: sqlTx, meeting: &meeting, now: s.clock.Now()}
	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return mapSQLError(ctx, err, "", "commit transaction")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *PostgresMeetingStore) ListParticipations(ctx context.Context, meetingUID string) ([]*models.Participation, error) {
	ctx, span := startSQLSpan(ctx, "select", attribute.String("db.sql.table", "participations"))
	defer span.End()

	if _, err := s.GetMeeting(ctx, meetingUID); err != nil {
		return nil, failSpan(span, err, "")
	}

	var rows []*models.Participation
	err := s.db.SelectContext(ctx, &rows, `SELECT uid, meeting_uid, user_uid, status, created_at, updated_at
		FROM participations WHERE meeting_uid = $1 ORDER BY created_at DESC`, meetingUID)
	if err != nil {
		return nil, failSpan(span, mapSQLError(ctx, err, "", "list participations"), "")
	}

	span.SetStatus(codes.Ok, "")
	return rows, nil
}

func (s *PostgresMeetingStore) ListNotifications(ctx context.Context, receiverUID string, unreadOnly bool) ([]*models.Notification, error) {
	ctx, span := startSQLSpan(ctx, "select", attribute.String("db.sql.table", "notifications"))
	defer span.End()

	if !s.IsReady() {
		return nil, failSpan(span, domain.NewUnavailableError("meetup store is not available"), "")
	}

	query := `SELECT uid, meeting_uid, sender_uid, receiver_uid, type, is_read, created_at
		FROM notifications WHERE receiver_uid = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	var rows []*models.Notification
	if err := s.db.SelectContext(ctx, &rows, query, receiverUID); err != nil {
		return nil, failSpan(span, mapSQLError(ctx, err, "", "list notifications"), "")
	}

	span.SetStatus(codes.Ok, "")
	return rows, nil
}

func (s *PostgresMeetingStore) MarkNotificationRead(ctx context.Context, notificationUID, receiverUID string) error {
	ctx, span := startSQLSpan(ctx, "update", attribute.String("db.sql.table", "notifications"))
	defer span.End()

	if !s.IsReady() {
		return failSpan(span, domain.NewUnavailableError("meetup store is not available"), "")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE uid = $1 AND receiver_uid = $2`,
		notificationUID, receiverUID)
	if err != nil {
		return failSpan(span, mapSQLError(ctx, err, "", "mark notification read"), "")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return failSpan(span, domain.NewNotFoundError(fmt.Sprintf("notification '%s' not found", notificationUID)), "not found")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// postgresTx implements domain.MeetingTx inside an open transaction.
type postgresTx struct {
	tx      *sqlx.Tx
	meeting *models.Meeting
	now     time.Time
}

func (t *postgresTx) Meeting() *models.Meeting {
	m := *t.meeting
	return &m
}

func (t *postgresTx) IncrementParticipants(ctx context.Context) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE meetings
		SET current_participants = current_participants + 1, updated_at = $2
		WHERE uid = $1 AND current_participants < max_participants`, t.meeting.UID, t.now)
	if err != nil {
		return mapSQLError(ctx, err, "", "increment participants")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapSQLError(ctx, err, "", "increment participants")
	}
	if n == 0 {
		return domain.NewCapacityExceededError(fmt.Sprintf("meeting is full (max %d participants)", t.meeting.MaxParticipants))
	}
	t.meeting.CurrentParticipants++
	t.meeting.UpdatedAt = t.now
	return nil
}

func (t *postgresTx) DecrementParticipants(ctx context.Context) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE meetings
		SET current_participants = current_participants - 1, updated_at = $2
		WHERE uid = $1 AND current_participants > 0`, t.meeting.UID, t.now)
	if err != nil {
		return mapSQLError(ctx, err, "", "decrement participants")
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return domain.NewInternalError("participant counter is already zero", err)
	}
	t.meeting.CurrentParticipants--
	t.meeting.UpdatedAt = t.now
	return nil
}

func (t *postgresTx) MarkDeleted(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE meetings SET deleted = TRUE, updated_at = $2 WHERE uid = $1`, t.meeting.UID, t.now)
	if err != nil {
		return mapSQLError(ctx, err, "", "delete meeting")
	}
	t.meeting.Deleted = true
	t.meeting.UpdatedAt = t.now
	return nil
}

const participationColumns = `uid, meeting_uid, user_uid, status, created_at, updated_at`

func (t *postgresTx) GetParticipation(ctx context.Context, participationUID string) (*models.Participation, error) {
	var p models.Participation
	err := t.tx.GetContext(ctx, &p, `SELECT `+participationColumns+`
		FROM participations WHERE uid = $1 AND meeting_uid = $2`, participationUID, t.meeting.UID)
	if err != nil {
		return nil, mapSQLError(ctx, err, fmt.Sprintf("participation '%s' not found", participationUID), "get participation")
	}
	return &p, nil
}

func (t *postgresTx) FindParticipationByUser(ctx context.Context, userUID string) (*models.Participation, error) {
	var p models.Participation
	err := t.tx.GetContext(ctx, &p, `SELECT `+participationColumns+`
		FROM participations WHERE user_uid = $1 AND meeting_uid = $2`, userUID, t.meeting.UID)
	if err != nil {
		return nil, mapSQLError(ctx, err, fmt.Sprintf("no participation for user '%s'", userUID), "find participation")
	}
	return &p, nil
}

func (t *postgresTx) ListParticipationsByStatus(ctx context.Context, status models.ParticipationStatus) ([]*models.Participation, error) {
	var rows []*models.Participation
	err := t.tx.SelectContext(ctx, &rows, `SELECT `+participationColumns+`
		FROM participations WHERE meeting_uid = $1 AND status = $2`, t.meeting.UID, status)
	if err != nil {
		return nil, mapSQLError(ctx, err, "", "list participations")
	}
	return rows, nil
}

func (t *postgresTx) CreateParticipation(ctx context.Context, participation *models.Participation) error {
	_, err := t.tx.NamedExecContext(ctx, `INSERT INTO participations (`+participationColumns+`)
		VALUES (:uid, :meeting_uid, :user_uid, :status, :created_at, :updated_at)`, participation)
	return mapSQLError(ctx, err, "", "create participation")
}

func (t *postgresTx) UpdateParticipationStatus(ctx context.Context, participationUID string, status models.ParticipationStatus) (*models.Participation, error) {
	var p models.Participation
	err := t.tx.GetContext(ctx, &p, `UPDATE participations SET status = $3, updated_at = $4
		WHERE uid = $1 AND meeting_uid = $2
		RETURNING `+participationColumns, participationUID, t.meeting.UID, status, t.now)
	if err != nil {
		return nil, mapSQLError(ctx, err, fmt.Sprintf("participation '%s' not found", participationUID), "update participation")
	}
	return &p, nil
}

func (t *postgresTx) DeleteParticipation(ctx context.Context, participationUID string) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM participations WHERE uid = $1 AND meeting_uid = $2`, participationUID, t.meeting.UID)
	if err != nil {
		return mapSQLError(ctx, err, "", "delete participation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFoundError(fmt.Sprintf("participation '%s' not found", participationUID))
	}
	return nil
}

func (t *postgresTx) CreateNotifications(ctx context.Context, notifications ...*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	_, err := t.tx.NamedExecContext(ctx, `INSERT INTO notifications
		(uid, meeting_uid, sender_uid, receiver_uid, type, is_read, created_at)
		VALUES (:uid, :meeting_uid, :sender_uid, :receiver_uid, :type, :is_read, :created_at)`, notifications)
	return mapSQLError(ctx, err, "", "create notifications")
}

func (t *postgresTx) MarkRequestNotificationsRead(ctx context.Context, senderUID, receiverUID string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE
		WHERE meeting_uid = $1 AND sender_uid = $2 AND receiver_uid = $3 AND type = $4 AND is_read = FALSE`,
		t.meeting.UID, senderUID, receiverUID, models.NotificationTypeParticipationRequest)
	return mapSQLError(ctx, err, "", "mark request notifications read")
}

func (t *postgresTx) DeleteRequestNotifications(ctx context.Context, senderUID, receiverUID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM notifications
		WHERE meeting_uid = $1 AND sender_uid = $2 AND receiver_uid = $3 AND type = $4`,
		t.meeting.UID, senderUID, receiverUID, models.NotificationTypeParticipationRequest)
	return mapSQLError(ctx, err, "", "delete request notifications")
}
