package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
)

// AuditService is the audit-trail emitter and query surface.
//
// Critical actions (reservation validate/delete/assign, room delete,
// user delete) do NOT go through Record: their audit rows are written
// inside the business transaction by the repository, so losing the row
// aborts the action. Record covers everything else — failure rows for
// attempted-but-failed actions and non-critical mutations — and never
// propagates its own storage failure to the caller.
type AuditService interface {
	Record(ctx context.Context, log *domain.AuditLog)
	ListAuditLogs(ctx context.Context, req ListAuditLogsRequest) (*ListAuditLogsResponse, error)
	PruneAuditLogs(ctx context.Context, req PruneAuditLogsRequest) (*PruneAuditLogsResponse, error)
}

type auditService struct {
	auditRepo repository.AuditLogsRepository
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewAuditService(auditRepo repository.AuditLogsRepository, usersRepo repository.UsersRepository, logger *zap.Logger) AuditService {
	return &auditService{auditRepo: auditRepo, usersRepo: usersRepo, logger: logger}
}

// ListAuditLogsRequest filters the admin audit listing.
type ListAuditLogsRequest struct {
	CurrentUserID string
	Action        string
	ActorID       string
	TargetType    string
	TargetID      string
	Outcome       string
	Since         time.Time
	Page          int
	Size          int
}

type ListAuditLogsResponse struct {
	Items []*domain.AuditLog
	Total int
}

// PruneAuditLogsRequest removes audit rows older than MaxAge.
type PruneAuditLogsRequest struct {
	CurrentUserID string
	MaxAge        time.Duration
}

type PruneAuditLogsResponse struct {
	Removed int64
}

// Record appends an audit row outside any business transaction. Audit
// storage failure here must not fail the operation being described, so
// it is logged and swallowed.
func (s *auditService) Record(ctx context.Context, log *domain.AuditLog) {
	if log == nil {
		return
	}
	if _, err := s.auditRepo.Append(ctx, log); err != nil {
		s.logger.Error("Failed to append audit log",
			zap.String("action", log.Action),
			zap.String("target_type", log.TargetType),
			zap.String("target_id", log.TargetID),
			zap.Error(err),
		)
	}
}

func (s *auditService) ListAuditLogs(ctx context.Context, req ListAuditLogsRequest) (*ListAuditLogsResponse, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "list audit logs"); err != nil {
		return nil, err
	}

	page, size := normalizePage(req.Page, req.Size)
	filters := repository.AuditFilters{
		Action:     req.Action,
		ActorID:    req.ActorID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Outcome:    req.Outcome,
		Since:      req.Since,
	}
	items, total, err := s.auditRepo.ListAuditLogs(ctx, filters, page, size)
	if err != nil {
		s.logger.Error("ListAuditLogs failed", zap.Error(err))
		return nil, err
	}
	return &ListAuditLogsResponse{Items: items, Total: total}, nil
}

func (s *auditService) PruneAuditLogs(ctx context.Context, req PruneAuditLogsRequest) (*PruneAuditLogsResponse, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "prune audit logs"); err != nil {
		return nil, err
	}
	if req.MaxAge <= 0 {
		return nil, domain.NewValidationError("max_age", "must be positive")
	}

	removed, err := s.auditRepo.PruneBefore(ctx, time.Now().Add(-req.MaxAge))
	if err != nil {
		s.logger.Error("PruneAuditLogs failed", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Pruned audit logs", zap.Int64("removed", removed))
	return &PruneAuditLogsResponse{Removed: removed}, nil
}
