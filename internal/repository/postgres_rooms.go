package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// PostgresRoomsRepository implements RoomsRepository over Postgres.
type PostgresRoomsRepository struct {
	db *sql.DB
}

func NewPostgresRoomsRepository(db *sql.DB) *PostgresRoomsRepository {
	return &PostgresRoomsRepository{db: db}
}

var _ RoomsRepository = (*PostgresRoomsRepository)(nil)

const roomColumns = `room_id::text, room_name, capacity, equipment, responsible_user_id::text, status, created_at, updated_at`

func scanRoomRow(row interface{ Scan(...any) error }) (*domain.Room, error) {
	var room domain.Room
	var equipment pq.StringArray
	err := row.Scan(
		&room.RoomID, &room.RoomName, &room.Capacity, &equipment,
		&room.ResponsibleUserID, &room.Status, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	room.Equipment = equipment
	return &room, nil
}

func (r *PostgresRoomsRepository) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	if roomID == "" {
		return nil, &domain.NotFoundError{Entity: "room", ID: roomID}
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE room_id = $1`, roomID)
	room, err := scanRoomRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "room", ID: roomID}
	}
	if err != nil {
		return nil, domain.NewStorageError("get room", err)
	}
	return room, nil
}

func (r *PostgresRoomsRepository) ListRooms(ctx context.Context, filters RoomFilters, page, size int) ([]*domain.Room, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, filters.Status)
		idx++
	}
	if filters.ResponsibleUserID != "" {
		where = append(where, fmt.Sprintf("responsible_user_id = $%d", idx))
		args = append(args, filters.ResponsibleUserID)
		idx++
	}
	if filters.MinCapacity > 0 {
		where = append(where, fmt.Sprintf("capacity >= $%d", idx))
		args = append(args, filters.MinCapacity)
		idx++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("room_name ILIKE $%d", idx))
		args = append(args, "%"+filters.Search+"%")
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooms WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count rooms", err)
	}

	query := fmt.Sprintf(
		`SELECT `+roomColumns+` FROM rooms WHERE %s ORDER BY room_name LIMIT $%d OFFSET $%d`,
		cond, idx, idx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list rooms", err)
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		room, err := scanRoomRow(rows)
		if err != nil {
			return nil, 0, domain.NewStorageError("scan room", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.NewStorageError("list rooms", err)
	}
	return rooms, total, nil
}

func (r *PostgresRoomsRepository) CreateRoom(ctx context.Context, room *domain.Room) (string, error) {
	if room.RoomID == "" {
		room.RoomID = uuid.NewString()
	}
	if room.Status == "" {
		room.Status = domain.RoomAvailable
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (room_id, room_name, capacity, equipment, responsible_user_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		room.RoomID, room.RoomName, room.Capacity, pq.StringArray(room.Equipment),
		nullString(room.ResponsibleUserID), room.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.NewValidationError("room_name", "already exists")
		}
		return "", domain.NewStorageError("create room", err)
	}
	return room.RoomID, nil
}

func (r *PostgresRoomsRepository) UpdateRoom(ctx context.Context, roomID string, room *domain.Room) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms
		 SET room_name = $1, capacity = $2, equipment = $3,
		     responsible_user_id = $4, status = $5, updated_at = now()
		 WHERE room_id = $6`,
		room.RoomName, room.Capacity, pq.StringArray(room.Equipment),
		nullString(room.ResponsibleUserID), room.Status, roomID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("room_name", "already exists")
		}
		return domain.NewStorageError("update room", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "room", ID: roomID}
	}
	return nil
}

// DeleteRoom removes the room unless non-terminal reservations still
// reference it. The check, delete and audit row share one transaction so
// a reservation created concurrently cannot slip past the check.
func (r *PostgresRoomsRepository) DeleteRoom(ctx context.Context, roomID string, audit *domain.AuditLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	// FOR UPDATE cannot combine with aggregates; lock the rows in a
	// subquery and count over them.
	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (
			SELECT reservation_id FROM reservations
			WHERE room_id = $1 AND status IN ('pending', 'validated', 'confirmed')
			FOR UPDATE
		 ) held`,
		roomID,
	).Scan(&active)
	if err != nil {
		return domain.NewStorageError("count active reservations", err)
	}
	if active > 0 {
		return &domain.ConflictError{
			RoomID: roomID,
			Reason: fmt.Sprintf("room has %d active reservations", active),
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	if err != nil {
		return domain.NewStorageError("delete room", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "room", ID: roomID}
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return domain.NewStorageError("audit room deletion", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}
	return nil
}
