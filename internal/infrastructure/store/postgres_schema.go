// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

// schemaStatements create the relational layout used by PostgresMeetingStore.
// Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS meetings (
		uid                  TEXT PRIMARY KEY,
		host_uid             TEXT NOT NULL,
		title                TEXT NOT NULL,
		description          TEXT NOT NULL DEFAULT '',
		max_participants     INTEGER NOT NULL CHECK (max_participants > 0),
		current_participants INTEGER NOT NULL DEFAULT 1,
		deleted              BOOLEAN NOT NULL DEFAULT FALSE,
		meeting_date         TIMESTAMPTZ NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL,
		CONSTRAINT meetings_occupancy_within_ceiling
			CHECK (current_participants >= 0 AND current_participants <= max_participants)
	)`,
	`CREATE TABLE IF NOT EXISTS participations (
		uid         TEXT PRIMARY KEY,
		meeting_uid TEXT NOT NULL REFERENCES meetings (uid),
		user_uid    TEXT NOT NULL,
		status      TEXT NOT NULL CHECK (status IN ('PENDING', 'ACCEPTED', 'REJECTED')),
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS participations_user_meeting_key
		ON participations (user_uid, meeting_uid)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		uid          TEXT PRIMARY KEY,
		meeting_uid  TEXT NOT NULL REFERENCES meetings (uid),
		sender_uid   TEXT NOT NULL,
		receiver_uid TEXT NOT NULL,
		type         TEXT NOT NULL,
		is_read      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_receiver_idx
		ON notifications (receiver_uid, created_at DESC)`,
}
