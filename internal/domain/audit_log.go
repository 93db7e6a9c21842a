package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// AuditOutcome is the outcome recorded for an audited action.
type AuditOutcome string

const (
	AuditSuccess AuditOutcome = "success"
	AuditFailure AuditOutcome = "failure"
	AuditPartial AuditOutcome = "partial"
)

// Audit action tags. Critical actions are audited inside the business
// transaction; losing their audit row aborts the operation.
const (
	AuditActionReservationCreate     = "reservation.create"
	AuditActionReservationTransition = "reservation.transition"
	AuditActionReservationAssign     = "reservation.assign_responsible"
	AuditActionReservationDelete     = "reservation.delete"
	AuditActionRoomDelete            = "room.delete"
	AuditActionUserDelete            = "user.delete"
	AuditActionSettingsUpdate        = "settings.update"
)

// AuditSnapshot is the versioned structured form of a before/after state.
// Version guards consumers against schema drift of the Fields payload.
type AuditSnapshot struct {
	Version int             `json:"version"`
	Fields  json.RawMessage `json:"fields,omitempty"`
}

// AuditSnapshotVersion is the current snapshot schema version.
const AuditSnapshotVersion = 1

// NewAuditSnapshot serializes v into a versioned snapshot. A nil value
// yields an empty snapshot (entity did not exist on that side).
func NewAuditSnapshot(v any) AuditSnapshot {
	if v == nil {
		return AuditSnapshot{Version: AuditSnapshotVersion}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return AuditSnapshot{Version: AuditSnapshotVersion}
	}
	return AuditSnapshot{Version: AuditSnapshotVersion, Fields: raw}
}

// AuditLog is an append-only record of a mutation on a critical entity.
// Rows are never updated after insertion; retention pruning removes them
// by age.
type AuditLog struct {
	AuditID string `db:"audit_id"`
	Action  string `db:"action"`

	ActorID sql.NullString `db:"actor_id"` // null for system actions

	TargetType string `db:"target_type"`
	TargetID   string `db:"target_id"`

	BeforeState AuditSnapshot `db:"before_state"`
	AfterState  AuditSnapshot `db:"after_state"`

	Outcome      AuditOutcome   `db:"outcome"`
	ErrorMessage sql.NullString `db:"error_message"`

	CreatedAt time.Time `db:"created_at"`
}
