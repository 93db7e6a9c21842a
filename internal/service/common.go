package service

import (
	"context"
	"database/sql"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
)

// fetchActor resolves the acting user. Identity comes from the RBAC
// middleware upstream; here we only load the role for authorization.
func fetchActor(ctx context.Context, usersRepo repository.UsersRepository, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.NewValidationError("current_user_id", "is required")
	}
	actor, err := usersRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !actor.Active {
		return nil, &domain.PermissionError{Role: string(actor.Role), Action: "act with a deactivated account"}
	}
	return actor, nil
}

func requireAdmin(ctx context.Context, usersRepo repository.UsersRepository, userID, action string) error {
	actor, err := fetchActor(ctx, usersRepo, userID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return &domain.PermissionError{Role: string(actor.Role), Action: action}
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return page, size
}

// auditRow assembles an audit entry with versioned before/after snapshots.
func auditRow(action, actorID, targetType, targetID string, before, after any, outcome domain.AuditOutcome, errMsg string) *domain.AuditLog {
	log := &domain.AuditLog{
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		BeforeState: domain.NewAuditSnapshot(before),
		AfterState:  domain.NewAuditSnapshot(after),
		Outcome:     outcome,
	}
	if actorID != "" {
		log.ActorID = sql.NullString{String: actorID, Valid: true}
	}
	if errMsg != "" {
		log.ErrorMessage = sql.NullString{String: errMsg, Valid: true}
	}
	return log
}
