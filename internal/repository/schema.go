package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements declares every table and its referential-action policy
// up front. Rooms and users referenced by reservations are RESTRICT:
// deleting them while reservations point at them is a service-level
// decision, not a silent cascade. Department and validator links degrade
// to NULL.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id        UUID PRIMARY KEY,
		first_name     VARCHAR(100) NOT NULL,
		last_name      VARCHAR(100) NOT NULL,
		email          VARCHAR(255) NOT NULL UNIQUE,
		password_hash  BYTEA NOT NULL,
		role           VARCHAR(20) NOT NULL,
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS departments (
		department_id        UUID PRIMARY KEY,
		name                 VARCHAR(120) NOT NULL UNIQUE,
		slug                 VARCHAR(120),
		description          TEXT,
		responsible_user_id  UUID REFERENCES users(user_id) ON DELETE SET NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS rooms (
		room_id              UUID PRIMARY KEY,
		room_name            VARCHAR(120) NOT NULL UNIQUE,
		capacity             INT NOT NULL DEFAULT 0,
		equipment            VARCHAR[] NOT NULL DEFAULT '{}',
		responsible_user_id  UUID REFERENCES users(user_id) ON DELETE SET NULL,
		status               VARCHAR(20) NOT NULL DEFAULT 'available',
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS reservations (
		reservation_id     UUID PRIMARY KEY,
		room_id            UUID NOT NULL REFERENCES rooms(room_id) ON DELETE RESTRICT,
		user_id            UUID NOT NULL REFERENCES users(user_id) ON DELETE RESTRICT,
		department_id      UUID REFERENCES departments(department_id) ON DELETE SET NULL,
		start_time         TIMESTAMPTZ NOT NULL,
		end_time           TIMESTAMPTZ NOT NULL,
		status             VARCHAR(20) NOT NULL DEFAULT 'pending',
		participant_count  INT NOT NULL DEFAULT 1,
		equipment          VARCHAR[] NOT NULL DEFAULT '{}',
		admin_comment      TEXT,
		validated_by       UUID REFERENCES users(user_id) ON DELETE SET NULL,
		validated_at       TIMESTAMPTZ,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT reservations_interval_check CHECK (start_time < end_time)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_reservations_room_time
		ON reservations (room_id, start_time, end_time)`,

	`CREATE INDEX IF NOT EXISTS idx_reservations_user_status
		ON reservations (user_id, status)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		audit_id       UUID PRIMARY KEY,
		action         VARCHAR(60) NOT NULL,
		actor_id       UUID,
		target_type    VARCHAR(40) NOT NULL,
		target_id      VARCHAR(60) NOT NULL,
		before_state   JSONB NOT NULL DEFAULT '{}'::jsonb,
		after_state    JSONB NOT NULL DEFAULT '{}'::jsonb,
		outcome        VARCHAR(10) NOT NULL,
		error_message  TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at
		ON audit_logs (created_at)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		notification_id  UUID PRIMARY KEY,
		user_id          UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		type             VARCHAR(40) NOT NULL,
		title            VARCHAR(200) NOT NULL,
		message          TEXT NOT NULL,
		read             BOOLEAN NOT NULL DEFAULT FALSE,
		reservation_id   UUID REFERENCES reservations(reservation_id) ON DELETE SET NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT notifications_dedupe UNIQUE (user_id, reservation_id, type)
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		settings_id                             UUID PRIMARY KEY,
		max_reservations_per_user               INT NOT NULL,
		max_advance_days                        INT NOT NULL,
		max_duration_hours                      INT NOT NULL,
		require_validation                      BOOLEAN NOT NULL,
		notify_on_validation                    BOOLEAN NOT NULL,
		suppress_admin_if_responsable_notified  BOOLEAN NOT NULL,
		working_hours_start                     INT NOT NULL,
		working_hours_end                       INT NOT NULL,
		updated_at                              TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates all tables, constraints and indexes. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
