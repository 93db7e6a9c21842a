package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// insertAuditTx appends an audit row inside the caller's transaction.
// Used by the critical-action paths: the audit row commits or rolls back
// together with the mutation it describes.
func insertAuditTx(ctx context.Context, tx *sql.Tx, log *domain.AuditLog) error {
	if log == nil {
		return nil
	}
	if log.AuditID == "" {
		log.AuditID = uuid.NewString()
	}
	before, err := json.Marshal(log.BeforeState)
	if err != nil {
		return fmt.Errorf("failed to serialize before-state: %w", err)
	}
	after, err := json.Marshal(log.AfterState)
	if err != nil {
		return fmt.Errorf("failed to serialize after-state: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_logs (audit_id, action, actor_id, target_type, target_id, before_state, after_state, outcome, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.AuditID, log.Action, nullString(log.ActorID), log.TargetType, log.TargetID,
		before, after, log.Outcome, nullString(log.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func itoa(i int) string { return strconv.Itoa(i) }

func nullString(s sql.NullString) any {
	if s.Valid {
		return s.String
	}
	return nil
}
