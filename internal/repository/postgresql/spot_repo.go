package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/repository"
)

const spotColumns = `id, code, description, device_thing_name, status, last_status_source, last_event_at, created_at, updated_at`

type pgSpotRepository struct {
	db *sql.DB
}

func NewPgSpotRepository(db *sql.DB) repository.SpotRepository {
	return &pgSpotRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpot(row rowScanner) (*domain.Spot, error) {
	spot := &domain.Spot{}
	var description, source sql.NullString
	err := row.Scan(&spot.ID, &spot.Code, &description, &spot.DeviceThingName, &spot.Status,
		&source, &spot.LastEventAt, &spot.CreatedAt, &spot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	spot.Description = description.String
	spot.LastStatusSource = source.String
	if spot.LastEventAt.Valid {
		spot.LastEventAt.Time = spot.LastEventAt.Time.In(time.UTC)
	}
	spot.CreatedAt = spot.CreatedAt.In(time.UTC)
	spot.UpdatedAt = spot.UpdatedAt.In(time.UTC)
	return spot, nil
}

func (r *pgSpotRepository) Create(ctx context.Context, spot *domain.Spot) (*domain.Spot, error) {
	query := `INSERT INTO spots (code, description, device_thing_name, status, last_status_source, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		spot.Code, sql.NullString{String: spot.Description, Valid: spot.Description != ""},
		spot.DeviceThingName, spot.Status,
		sql.NullString{String: spot.LastStatusSource, Valid: spot.LastStatusSource != ""},
	).Scan(&spot.ID, &spot.CreatedAt, &spot.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == "spots_code_key" {
			return nil, fmt.Errorf("%w: spot '%s' already exists", repository.ErrDuplicateEntry, spot.Code)
		}
		return nil, fmt.Errorf("SpotRepository.Create: %w", err)
	}
	spot.CreatedAt = spot.CreatedAt.In(time.UTC)
	spot.UpdatedAt = spot.UpdatedAt.In(time.UTC)
	return spot, nil
}

func (r *pgSpotRepository) FindByID(ctx context.Context, id int) (*domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM spots WHERE id = $1`
	spot, err := scanSpot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SpotRepository.FindByID: %w", err)
	}
	return spot, nil
}

func (r *pgSpotRepository) FindByCode(ctx context.Context, code string) (*domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM spots WHERE code = $1`
	spot, err := scanSpot(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SpotRepository.FindByCode: %w", err)
	}
	return spot, nil
}

func (r *pgSpotRepository) FindByDeviceThingName(ctx context.Context, thingName string) ([]domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM spots WHERE device_thing_name = $1 ORDER BY code`
	return r.list(ctx, "FindByDeviceThingName", query, thingName)
}

func (r *pgSpotRepository) FindAll(ctx context.Context) ([]domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM spots ORDER BY code`
	return r.list(ctx, "FindAll", query)
}

func (r *pgSpotRepository) list(ctx context.Context, op string, query string, args ...any) ([]domain.Spot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SpotRepository.%s: %w", op, err)
	}
	defer rows.Close()

	spots := []domain.Spot{}
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("SpotRepository.%s (scanning row): %w", op, err)
		}
		spots = append(spots, *spot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SpotRepository.%s (rows error): %w", op, err)
	}
	return spots, nil
}

func (r *pgSpotRepository) Update(ctx context.Context, spot *domain.Spot) (*domain.Spot, error) {
	query := `UPDATE spots
	           SET code = $1, description = $2, device_thing_name = $3, status = $4,
	               last_status_source = $5, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $6
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		spot.Code, sql.NullString{String: spot.Description, Valid: spot.Description != ""},
		spot.DeviceThingName, spot.Status,
		sql.NullString{String: spot.LastStatusSource, Valid: spot.LastStatusSource != ""},
		spot.ID,
	).Scan(&spot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if constraint, ok := uniqueConstraint(err); ok && constraint == "spots_code_key" {
			return nil, fmt.Errorf("%w: spot '%s' already exists", repository.ErrDuplicateEntry, spot.Code)
		}
		return nil, fmt.Errorf("SpotRepository.Update: %w", err)
	}
	spot.UpdatedAt = spot.UpdatedAt.In(time.UTC)
	return spot, nil
}

func (r *pgSpotRepository) UpdateStatus(ctx context.Context, id int, status domain.SpotStatus, eventAt time.Time, source string) error {
	query := `UPDATE spots SET status = $1, last_event_at = $2, last_status_source = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, status, eventAt, source, id)
	if err != nil {
		return fmt.Errorf("SpotRepository.UpdateStatus: %w", err)
	}
	return expectAffected(result, "SpotRepository.UpdateStatus")
}

func (r *pgSpotRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM spots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("SpotRepository.Delete: %w", err)
	}
	return expectAffected(result, "SpotRepository.Delete")
}

func expectAffected(result sql.Result, op string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s (checking rows affected): %w", op, err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
