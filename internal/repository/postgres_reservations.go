package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// PostgresReservationsRepository implements ReservationsRepository over
// Postgres. Check-then-write paths lock the room's slot-holding rows
// with SELECT ... FOR UPDATE so concurrent validations serialize; the
// loser of a race gets ConflictError instead of a double booking.
type PostgresReservationsRepository struct {
	db *sql.DB
}

func NewPostgresReservationsRepository(db *sql.DB) *PostgresReservationsRepository {
	return &PostgresReservationsRepository{db: db}
}

var _ ReservationsRepository = (*PostgresReservationsRepository)(nil)

const reservationColumns = `reservation_id::text, room_id::text, user_id::text, department_id::text,
	start_time, end_time, status, participant_count, equipment, admin_comment,
	validated_by::text, validated_at, created_at, updated_at`

func scanReservationRow(row interface{ Scan(...any) error }) (*domain.Reservation, error) {
	var res domain.Reservation
	var equipment pq.StringArray
	err := row.Scan(
		&res.ReservationID, &res.RoomID, &res.UserID, &res.DepartmentID,
		&res.StartTime, &res.EndTime, &res.Status, &res.ParticipantCount,
		&equipment, &res.AdminComment, &res.ValidatedBy, &res.ValidatedAt,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Equipment = equipment
	return &res, nil
}

func (r *PostgresReservationsRepository) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	if reservationID == "" {
		return nil, &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE reservation_id = $1`, reservationID)
	res, err := scanReservationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	if err != nil {
		return nil, domain.NewStorageError("get reservation", err)
	}
	return res, nil
}

func (r *PostgresReservationsRepository) ListReservations(ctx context.Context, filters ReservationFilters, page, size int) ([]*domain.Reservation, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	add := func(cond string, val any) {
		where = append(where, fmt.Sprintf(cond, idx))
		args = append(args, val)
		idx++
	}
	if filters.RoomID != "" {
		add("room_id = $%d", filters.RoomID)
	}
	if filters.UserID != "" {
		add("user_id = $%d", filters.UserID)
	}
	if filters.DepartmentID != "" {
		add("department_id = $%d", filters.DepartmentID)
	}
	if filters.Status != "" {
		add("status = $%d", filters.Status)
	}
	if !filters.From.IsZero() {
		add("start_time >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("start_time < $%d", filters.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count reservations", err)
	}

	query := fmt.Sprintf(
		`SELECT `+reservationColumns+` FROM reservations WHERE %s ORDER BY start_time LIMIT $%d OFFSET $%d`,
		cond, idx, idx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list reservations", err)
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		res, err := scanReservationRow(rows)
		if err != nil {
			return nil, 0, domain.NewStorageError("scan reservation", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.NewStorageError("list reservations", err)
	}
	return reservations, total, nil
}

// overlapCondition is the half-open interval intersection test over
// slot-holding statuses.
const overlapCondition = `room_id = $1
	AND status IN ('pending', 'validated', 'confirmed')
	AND start_time < $3
	AND end_time > $2
	AND ($4 = '' OR reservation_id::text <> $4)`

func (r *PostgresReservationsRepository) ListOverlapping(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]*domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE `+overlapCondition+` ORDER BY start_time`,
		roomID, start, end, excludeID)
	if err != nil {
		return nil, domain.NewStorageError("list overlapping reservations", err)
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		res, err := scanReservationRow(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan reservation", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list overlapping reservations", err)
	}
	return reservations, nil
}

func (r *PostgresReservationsRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE user_id = $1 AND status IN ('pending', 'validated', 'confirmed')`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, domain.NewStorageError("count active reservations", err)
	}
	return count, nil
}

// lockOverlapTx locks the room's slot-holding rows intersecting
// [start, end) and returns the id of the first occupant, or "".
// lockOverlapTx locks every slot-holding row intersecting [start, end)
// and returns the first one whose status blocks the caller. A validation
// recheck is only blocked by validated/confirmed occupants — a sibling
// pending request does not own the slot yet — but pending rows are still
// locked so concurrent validations of overlapping pendings serialize.
func lockOverlapTx(ctx context.Context, tx *sql.Tx, roomID string, start, end time.Time, excludeID string, validatedOnly bool) (string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT reservation_id::text, status FROM reservations WHERE `+overlapCondition+` ORDER BY start_time FOR UPDATE`,
		roomID, start, end, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to lock overlapping reservations: %w", err)
	}
	defer rows.Close()

	var occupant string
	for rows.Next() {
		var id string
		var status domain.ReservationStatus
		if err := rows.Scan(&id, &status); err != nil {
			return "", fmt.Errorf("failed to scan occupant: %w", err)
		}
		if validatedOnly && status == domain.ReservationPending {
			continue
		}
		if occupant == "" {
			occupant = id
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to lock overlapping reservations: %w", err)
	}
	return occupant, nil
}

// CreateReservationChecked re-runs the overlap check under lock, inserts
// the row and the audit row, all in one transaction.
func (r *PostgresReservationsRepository) CreateReservationChecked(ctx context.Context, res *domain.Reservation, audit *domain.AuditLog) (string, error) {
	if res.ReservationID == "" {
		res.ReservationID = uuid.NewString()
	}
	if audit != nil {
		audit.TargetID = res.ReservationID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	occupant, err := lockOverlapTx(ctx, tx, res.RoomID, res.StartTime, res.EndTime, "", false)
	if err != nil {
		return "", domain.NewStorageError("conflict check", err)
	}
	if occupant != "" {
		return "", &domain.ConflictError{
			RoomID:        res.RoomID,
			ReservationID: occupant,
			Reason:        "room already reserved for this interval",
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations
			(reservation_id, room_id, user_id, department_id, start_time, end_time,
			 status, participant_count, equipment, admin_comment)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.ReservationID, res.RoomID, res.UserID, nullString(res.DepartmentID),
		res.StartTime, res.EndTime, res.Status, res.ParticipantCount,
		pq.StringArray(res.Equipment), nullString(res.AdminComment),
	)
	if err != nil {
		return "", domain.NewStorageError("insert reservation", err)
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return "", domain.NewStorageError("audit reservation creation", err)
	}

	if err := tx.Commit(); err != nil {
		return "", domain.NewStorageError("commit transaction", err)
	}
	return res.ReservationID, nil
}

// TransitionReservation applies a status change under lock. The row is
// re-read FOR UPDATE; a stale expected status means the caller lost a
// race. Entering validated/confirmed re-checks the interval against
// concurrent occupants before writing.
func (r *PostgresReservationsRepository) TransitionReservation(ctx context.Context, reservationID string, upd TransitionUpdate, audit *domain.AuditLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	var current domain.ReservationStatus
	var roomID string
	var start, end time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT status, room_id::text, start_time, end_time
		 FROM reservations WHERE reservation_id = $1 FOR UPDATE`,
		reservationID,
	).Scan(&current, &roomID, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	if err != nil {
		return domain.NewStorageError("lock reservation", err)
	}

	if current != upd.ExpectedStatus {
		return &domain.ConflictError{
			RoomID:        roomID,
			ReservationID: reservationID,
			Reason:        fmt.Sprintf("reservation changed status to %s concurrently", current),
		}
	}

	if upd.RecheckConflict {
		occupant, err := lockOverlapTx(ctx, tx, roomID, start, end, reservationID, true)
		if err != nil {
			return domain.NewStorageError("conflict recheck", err)
		}
		if occupant != "" {
			return &domain.ConflictError{
				RoomID:        roomID,
				ReservationID: occupant,
				Reason:        "an overlapping reservation was validated first",
			}
		}
	}

	var validatedBy any
	var validatedAt any
	if upd.ValidatedBy != "" {
		validatedBy = upd.ValidatedBy
		validatedAt = upd.ValidatedAt
	}
	var comment any
	if upd.AdminComment != "" {
		comment = upd.AdminComment
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE reservations
		 SET status = $1,
		     validated_by = COALESCE($2, validated_by),
		     validated_at = COALESCE($3, validated_at),
		     admin_comment = COALESCE($4, admin_comment),
		     updated_at = now()
		 WHERE reservation_id = $5`,
		upd.TargetStatus, validatedBy, validatedAt, comment, reservationID,
	)
	if err != nil {
		return domain.NewStorageError("update reservation status", err)
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return domain.NewStorageError("audit reservation transition", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}
	return nil
}

// UpdateReservation rewrites mutable fields of a pending reservation
// after re-checking the (possibly moved) interval under lock.
func (r *PostgresReservationsRepository) UpdateReservation(ctx context.Context, reservationID string, res *domain.Reservation, audit *domain.AuditLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	var current domain.ReservationStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM reservations WHERE reservation_id = $1 FOR UPDATE`,
		reservationID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	if err != nil {
		return domain.NewStorageError("lock reservation", err)
	}
	if current != domain.ReservationPending {
		return &domain.InvalidTransitionError{From: current, To: current}
	}

	occupant, err := lockOverlapTx(ctx, tx, res.RoomID, res.StartTime, res.EndTime, reservationID, false)
	if err != nil {
		return domain.NewStorageError("conflict check", err)
	}
	if occupant != "" {
		return &domain.ConflictError{
			RoomID:        res.RoomID,
			ReservationID: occupant,
			Reason:        "room already reserved for this interval",
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE reservations
		 SET room_id = $1, department_id = $2, start_time = $3, end_time = $4,
		     participant_count = $5, equipment = $6, updated_at = now()
		 WHERE reservation_id = $7`,
		res.RoomID, nullString(res.DepartmentID), res.StartTime, res.EndTime,
		res.ParticipantCount, pq.StringArray(res.Equipment), reservationID,
	)
	if err != nil {
		return domain.NewStorageError("update reservation", err)
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return domain.NewStorageError("audit reservation update", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}
	return nil
}

func (r *PostgresReservationsRepository) AssignResponsible(ctx context.Context, reservationID, responsibleUserID string, audit *domain.AuditLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET validated_by = $1, updated_at = now() WHERE reservation_id = $2`,
		responsibleUserID, reservationID,
	)
	if err != nil {
		return domain.NewStorageError("assign responsible", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return domain.NewStorageError("audit responsible assignment", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}
	return nil
}

func (r *PostgresReservationsRepository) DeleteReservation(ctx context.Context, reservationID string, audit *domain.AuditLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM reservations WHERE reservation_id = $1`, reservationID)
	if err != nil {
		return domain.NewStorageError("delete reservation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return domain.NewStorageError("audit reservation deletion", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}
	return nil
}
