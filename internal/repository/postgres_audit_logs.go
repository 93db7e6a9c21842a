package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// PostgresAuditLogsRepository implements AuditLogsRepository over Postgres.
type PostgresAuditLogsRepository struct {
	db *sql.DB
}

func NewPostgresAuditLogsRepository(db *sql.DB) *PostgresAuditLogsRepository {
	return &PostgresAuditLogsRepository{db: db}
}

var _ AuditLogsRepository = (*PostgresAuditLogsRepository)(nil)

func (r *PostgresAuditLogsRepository) Append(ctx context.Context, log *domain.AuditLog) (string, error) {
	if log.AuditID == "" {
		log.AuditID = uuid.NewString()
	}
	before, err := json.Marshal(log.BeforeState)
	if err != nil {
		return "", domain.NewStorageError("serialize before-state", err)
	}
	after, err := json.Marshal(log.AfterState)
	if err != nil {
		return "", domain.NewStorageError("serialize after-state", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (audit_id, action, actor_id, target_type, target_id, before_state, after_state, outcome, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.AuditID, log.Action, nullString(log.ActorID), log.TargetType, log.TargetID,
		before, after, log.Outcome, nullString(log.ErrorMessage),
	)
	if err != nil {
		return "", domain.NewStorageError("append audit log", err)
	}
	return log.AuditID, nil
}

func (r *PostgresAuditLogsRepository) ListAuditLogs(ctx context.Context, filters AuditFilters, page, size int) ([]*domain.AuditLog, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	add := func(cond string, val any) {
		where = append(where, fmt.Sprintf(cond, idx))
		args = append(args, val)
		idx++
	}
	if filters.Action != "" {
		add("action = $%d", filters.Action)
	}
	if filters.ActorID != "" {
		add("actor_id = $%d", filters.ActorID)
	}
	if filters.TargetType != "" {
		add("target_type = $%d", filters.TargetType)
	}
	if filters.TargetID != "" {
		add("target_id = $%d", filters.TargetID)
	}
	if filters.Outcome != "" {
		add("outcome = $%d", filters.Outcome)
	}
	if !filters.Since.IsZero() {
		add("created_at >= $%d", filters.Since)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count audit logs", err)
	}

	query := fmt.Sprintf(
		`SELECT audit_id::text, action, actor_id::text, target_type, target_id,
		        before_state, after_state, outcome, error_message, created_at
		 FROM audit_logs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		cond, idx, idx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list audit logs", err)
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var before, after []byte
		err := rows.Scan(
			&log.AuditID, &log.Action, &log.ActorID, &log.TargetType, &log.TargetID,
			&before, &after, &log.Outcome, &log.ErrorMessage, &log.CreatedAt,
		)
		if err != nil {
			return nil, 0, domain.NewStorageError("scan audit log", err)
		}
		_ = json.Unmarshal(before, &log.BeforeState)
		_ = json.Unmarshal(after, &log.AfterState)
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.NewStorageError("list audit logs", err)
	}
	return logs, total, nil
}

func (r *PostgresAuditLogsRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, domain.NewStorageError("prune audit logs", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
