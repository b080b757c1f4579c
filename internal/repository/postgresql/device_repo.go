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

const deviceColumns = `id, thing_name, spot_id, firmware_version, status, ip_address, last_seen_at, notes, created_at, updated_at`

type pgDeviceRepository struct {
	db *sql.DB
}

func NewPgDeviceRepository(db *sql.DB) repository.DeviceRepository {
	return &pgDeviceRepository{db: db}
}

func scanDevice(row rowScanner) (*domain.Device, error) {
	device := &domain.Device{}
	var firmware, ip, notes sql.NullString
	err := row.Scan(&device.ID, &device.ThingName, &device.SpotID, &firmware, &device.Status,
		&ip, &device.LastSeenAt, &notes, &device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		return nil, err
	}
	device.FirmwareVersion = firmware.String
	device.IPAddress = ip.String
	device.Notes = notes.String
	if device.LastSeenAt.Valid {
		device.LastSeenAt.Time = device.LastSeenAt.Time.In(time.UTC)
	}
	device.CreatedAt = device.CreatedAt.In(time.UTC)
	device.UpdatedAt = device.UpdatedAt.In(time.UTC)
	return device, nil
}

// CreateOrUpdate upserts the device keyed by thing_name.
func (r *pgDeviceRepository) CreateOrUpdate(ctx context.Context, device *domain.Device) (*domain.Device, error) {
	query := `INSERT INTO devices (thing_name, spot_id, firmware_version, status, ip_address, last_seen_at, notes, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           ON CONFLICT (thing_name) DO UPDATE
	           SET spot_id = EXCLUDED.spot_id,
	               firmware_version = COALESCE(EXCLUDED.firmware_version, devices.firmware_version),
	               status = EXCLUDED.status,
	               ip_address = COALESCE(EXCLUDED.ip_address, devices.ip_address),
	               last_seen_at = COALESCE(EXCLUDED.last_seen_at, devices.last_seen_at),
	               notes = COALESCE(EXCLUDED.notes, devices.notes),
	               updated_at = CURRENT_TIMESTAMP
	           RETURNING id, created_at, updated_at`

	if device.Status == "" {
		device.Status = domain.DeviceUnknown
	}
	err := r.db.QueryRowContext(ctx, query,
		device.ThingName, device.SpotID,
		sql.NullString{String: device.FirmwareVersion, Valid: device.FirmwareVersion != ""},
		device.Status,
		sql.NullString{String: device.IPAddress, Valid: device.IPAddress != ""},
		device.LastSeenAt,
		sql.NullString{String: device.Notes, Valid: device.Notes != ""},
	).Scan(&device.ID, &device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("DeviceRepository.CreateOrUpdate: %w", err)
	}
	device.CreatedAt = device.CreatedAt.In(time.UTC)
	device.UpdatedAt = device.UpdatedAt.In(time.UTC)
	return device, nil
}

func (r *pgDeviceRepository) FindByThingName(ctx context.Context, thingName string) (*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE thing_name = $1`
	device, err := scanDevice(r.db.QueryRowContext(ctx, query, thingName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("DeviceRepository.FindByThingName: %w", err)
	}
	return device, nil
}

func (r *pgDeviceRepository) FindAll(ctx context.Context) ([]domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY thing_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("DeviceRepository.FindAll: %w", err)
	}
	defer rows.Close()

	devices := []domain.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("DeviceRepository.FindAll (scanning row): %w", err)
		}
		devices = append(devices, *device)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("DeviceRepository.FindAll (rows error): %w", err)
	}
	return devices, nil
}

func (r *pgDeviceRepository) UpdateStatus(ctx context.Context, thingName string, status domain.DeviceStatus, lastSeenAt time.Time) error {
	query := `UPDATE devices SET status = $1, last_seen_at = $2, updated_at = CURRENT_TIMESTAMP WHERE thing_name = $3`
	result, err := r.db.ExecContext(ctx, query, status, lastSeenAt, thingName)
	if err != nil {
		return fmt.Errorf("DeviceRepository.UpdateStatus: %w", err)
	}
	if err := expectAffected(result, "DeviceRepository.UpdateStatus"); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: device '%s'", repository.ErrNotFound, thingName)
		}
		return err
	}
	return nil
}
