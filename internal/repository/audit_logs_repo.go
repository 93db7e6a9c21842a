package repository

import (
	"context"
	"time"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// AuditLogsRepository is the append-only audit trail. Rows are never
// mutated after creation.
type AuditLogsRepository interface {
	Append(ctx context.Context, log *domain.AuditLog) (string, error)
	ListAuditLogs(ctx context.Context, filters AuditFilters, page, size int) ([]*domain.AuditLog, int, error)

	// PruneBefore removes rows older than cutoff (retention). Returns the
	// number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditFilters narrows ListAuditLogs.
type AuditFilters struct {
	Action     string
	ActorID    string
	TargetType string
	TargetID   string
	Outcome    string
	Since      time.Time
}
