package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/repository"
)

const reservationColumns = `id, spot_id, client_name, plate, starts_at, ends_at, status, notes, created_at, updated_at`

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	err := row.Scan(&res.ID, &res.SpotID, &res.ClientName, &res.Plate, &res.StartsAt, &res.EndsAt,
		&res.Status, &res.Notes, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.StartsAt = res.StartsAt.In(time.UTC)
	res.EndsAt = res.EndsAt.In(time.UTC)
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	query := `INSERT INTO reservations (spot_id, client_name, plate, starts_at, ends_at, status, notes, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		res.SpotID, res.ClientName, res.Plate, res.StartsAt, res.EndsAt, res.Status, res.Notes,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Create: %w", err)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) FindActiveBySpot(ctx context.Context, spotID int, at time.Time) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE spot_id = $1 AND status = $2 AND starts_at <= $3 AND ends_at > $3
	           ORDER BY starts_at DESC LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, spotID, domain.ReservationActive, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveReservation
		}
		return nil, fmt.Errorf("ReservationRepository.FindActiveBySpot: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) CountOverlapping(ctx context.Context, spotID int, from, to time.Time, excludeID int) (int, error) {
	query := `SELECT COUNT(*) FROM reservations
	           WHERE spot_id = $1 AND status = $2 AND starts_at < $4 AND ends_at > $3 AND id <> $5`
	var count int
	if err := r.db.QueryRowContext(ctx, query, spotID, domain.ReservationActive, from, to, excludeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ReservationRepository.CountOverlapping: %w", err)
	}
	return count, nil
}

func (r *pgReservationRepository) Find(ctx context.Context, filter domain.ReservationFilterDTO) ([]domain.Reservation, error) {
	var conditions []string
	var args []any
	argID := 1

	if filter.SpotID != nil {
		conditions = append(conditions, fmt.Sprintf("spot_id = $%d", argID))
		args = append(args, *filter.SpotID)
		argID++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Plate != nil {
		conditions = append(conditions, fmt.Sprintf("plate = $%d", argID))
		args = append(args, *filter.Plate)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY starts_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find: %w", err)
	}
	defer rows.Close()

	reservations := []domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("ReservationRepository.Find (scanning row): %w", err)
		}
		reservations = append(reservations, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find (rows error): %w", err)
	}
	return reservations, nil
}

func (r *pgReservationRepository) Update(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	query := `UPDATE reservations
	           SET spot_id = $1, client_name = $2, plate = $3, starts_at = $4, ends_at = $5,
	               status = $6, notes = $7, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $8
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		res.SpotID, res.ClientName, res.Plate, res.StartsAt, res.EndsAt, res.Status, res.Notes, res.ID,
	).Scan(&res.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.Update: %w", err)
	}
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}
