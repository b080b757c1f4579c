package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/repository"
)

const plateCheckColumns = `pc.id, pc.spot_id, s.code, pc.reservation_id, pc.image_path, pc.detected_plate, pc.ocr_confidence,
	pc.reference_plate, pc.similarity, pc.similarity_pct, pc.total_cost, pc.matched, pc.details, pc.created_at`

type pgPlateCheckRepository struct {
	db *sql.DB
}

func NewPgPlateCheckRepository(db *sql.DB) repository.PlateCheckRepository {
	return &pgPlateCheckRepository{db: db}
}

func scanPlateCheck(row rowScanner) (*domain.PlateCheck, error) {
	check := &domain.PlateCheck{}
	var details []byte
	err := row.Scan(&check.ID, &check.SpotID, &check.SpotCode, &check.ReservationID, &check.ImagePath,
		&check.DetectedPlate, &check.OCRConfidence, &check.ReferencePlate, &check.Similarity,
		&check.SimilarityPercent, &check.TotalCost, &check.Matched, &details, &check.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &check.Details); err != nil {
			return nil, fmt.Errorf("decoding details: %w", err)
		}
	}
	check.CreatedAt = check.CreatedAt.In(time.UTC)
	return check, nil
}

func (r *pgPlateCheckRepository) Create(ctx context.Context, check *domain.PlateCheck) error {
	details, err := json.Marshal(check.Details)
	if err != nil {
		return fmt.Errorf("PlateCheckRepository.Create (encoding details): %w", err)
	}
	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}

	query := `INSERT INTO plate_checks
		(id, spot_id, reservation_id, image_path, detected_plate, ocr_confidence, reference_plate,
		 similarity, similarity_pct, total_cost, matched, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP)
		RETURNING created_at`
	err = r.db.QueryRowContext(ctx, query,
		check.ID, check.SpotID, check.ReservationID, check.ImagePath, check.DetectedPlate, check.OCRConfidence,
		check.ReferencePlate, check.Similarity, check.SimilarityPercent, check.TotalCost, check.Matched, details,
	).Scan(&check.CreatedAt)
	if err != nil {
		return fmt.Errorf("PlateCheckRepository.Create: %w", err)
	}
	check.CreatedAt = check.CreatedAt.In(time.UTC)
	return nil
}

func (r *pgPlateCheckRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PlateCheck, error) {
	query := `SELECT ` + plateCheckColumns + `
		FROM plate_checks pc JOIN spots s ON s.id = pc.spot_id
		WHERE pc.id = $1`
	check, err := scanPlateCheck(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("PlateCheckRepository.FindByID: %w", err)
	}
	return check, nil
}

func (r *pgPlateCheckRepository) Find(ctx context.Context, filter domain.PlateCheckFilterDTO) ([]domain.PlateCheck, error) {
	var conditions []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.SpotID != nil {
		conditions = append(conditions, "pc.spot_id = "+next(*filter.SpotID))
	}
	if filter.Matched != nil {
		conditions = append(conditions, "pc.matched = "+next(*filter.Matched))
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "pc.created_at >= "+next(filter.From))
	}
	if !filter.To.IsZero() {
		// inclusive day
		conditions = append(conditions, "pc.created_at < "+next(filter.To.AddDate(0, 0, 1)))
	}

	query := `SELECT ` + plateCheckColumns + ` FROM plate_checks pc JOIN spots s ON s.id = pc.spot_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY pc.created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + next(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("PlateCheckRepository.Find: %w", err)
	}
	defer rows.Close()

	checks := []domain.PlateCheck{}
	for rows.Next() {
		check, err := scanPlateCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("PlateCheckRepository.Find (scanning): %w", err)
		}
		checks = append(checks, *check)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PlateCheckRepository.Find (rows error): %w", err)
	}
	return checks, nil
}
