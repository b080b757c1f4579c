package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/plate"
	"github.com/Douglasgls/zona-verde-api/internal/repository"
)

var ErrInvalidInput = errors.New("invalid input")
var ErrReservationConflict = errors.New("spot already reserved in that period")

// ParkingService manages spots, reservations and spot devices.
type ParkingService struct {
	spotRepo        repository.SpotRepository
	reservationRepo repository.ReservationRepository
	deviceRepo      repository.DeviceRepository
	logger          *zap.Logger
}

func NewParkingService(
	spotRepo repository.SpotRepository,
	reservationRepo repository.ReservationRepository,
	deviceRepo repository.DeviceRepository,
	logger *zap.Logger,
) *ParkingService {
	return &ParkingService{
		spotRepo:        spotRepo,
		reservationRepo: reservationRepo,
		deviceRepo:      deviceRepo,
		logger:          logger.Named("parking"),
	}
}

// --- Spots ---

func (s *ParkingService) CreateSpot(ctx context.Context, dto domain.SpotDTO) (*domain.Spot, error) {
	status := domain.SpotFree
	if dto.Status != "" {
		if !slices.Contains(domain.ValidSpotStatuses, domain.SpotStatus(dto.Status)) {
			return nil, fmt.Errorf("%w: unknown spot status %q", ErrInvalidInput, dto.Status)
		}
		status = domain.SpotStatus(dto.Status)
	}

	spot := &domain.Spot{
		Code:             dto.Code,
		Description:      dto.Description,
		DeviceThingName:  null.NewString(dto.DeviceThingName, dto.DeviceThingName != ""),
		Status:           status,
		LastStatusSource: "admin_creation",
	}
	return s.spotRepo.Create(ctx, spot)
}

func (s *ParkingService) GetSpot(ctx context.Context, id int) (*domain.Spot, error) {
	return s.spotRepo.FindByID(ctx, id)
}

func (s *ParkingService) ListSpots(ctx context.Context) ([]domain.Spot, error) {
	return s.spotRepo.FindAll(ctx)
}

func (s *ParkingService) UpdateSpot(ctx context.Context, id int, dto domain.SpotDTO) (*domain.Spot, error) {
	spot, err := s.spotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Code != "" {
		spot.Code = dto.Code
	}
	spot.Description = dto.Description
	spot.DeviceThingName = null.NewString(dto.DeviceThingName, dto.DeviceThingName != "")
	if dto.Status != "" {
		if !slices.Contains(domain.ValidSpotStatuses, domain.SpotStatus(dto.Status)) {
			return nil, fmt.Errorf("%w: unknown spot status %q", ErrInvalidInput, dto.Status)
		}
		spot.Status = domain.SpotStatus(dto.Status)
	}
	spot.LastStatusSource = "admin_update"

	return s.spotRepo.Update(ctx, spot)
}

func (s *ParkingService) DeleteSpot(ctx context.Context, id int) error {
	return s.spotRepo.Delete(ctx, id)
}

// --- Reservations ---

// NormalizeReservationPlate returns the plate in the form stored and
// compared against: no dashes or spaces, upper case, seven letters or digits.
func NormalizeReservationPlate(raw string) (string, error) {
	p := plate.Normalize(raw)
	if utf8.RuneCountInString(p) != plate.PlateLength || !plate.IsPlausible(p) {
		return "", fmt.Errorf("%w: plate %q must have %d letters or digits", ErrInvalidInput, raw, plate.PlateLength)
	}
	return p, nil
}

func (s *ParkingService) validateReservation(ctx context.Context, dto domain.ReservationDTO, excludeID int) (string, error) {
	p, err := NormalizeReservationPlate(dto.Plate)
	if err != nil {
		return "", err
	}
	if !dto.EndsAt.After(dto.StartsAt) {
		return "", fmt.Errorf("%w: ends_at must be after starts_at", ErrInvalidInput)
	}
	if _, err := s.spotRepo.FindByID(ctx, dto.SpotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: spot %d does not exist", ErrInvalidInput, dto.SpotID)
		}
		return "", fmt.Errorf("checking spot: %w", err)
	}

	overlapping, err := s.reservationRepo.CountOverlapping(ctx, dto.SpotID, dto.StartsAt, dto.EndsAt, excludeID)
	if err != nil {
		return "", fmt.Errorf("checking overlapping reservations: %w", err)
	}
	if overlapping > 0 {
		return "", ErrReservationConflict
	}
	return p, nil
}

func (s *ParkingService) CreateReservation(ctx context.Context, dto domain.ReservationDTO) (*domain.Reservation, error) {
	p, err := s.validateReservation(ctx, dto, 0)
	if err != nil {
		return nil, err
	}

	reservation := &domain.Reservation{
		SpotID:     dto.SpotID,
		ClientName: dto.ClientName,
		Plate:      p,
		StartsAt:   dto.StartsAt.UTC(),
		EndsAt:     dto.EndsAt.UTC(),
		Status:     domain.ReservationActive,
		Notes:      null.NewString(dto.Notes, dto.Notes != ""),
	}
	created, err := s.reservationRepo.Create(ctx, reservation)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reservation created",
		zap.Int("reservation_id", created.ID), zap.Int("spot_id", created.SpotID), zap.String("plate", created.Plate))
	return created, nil
}

func (s *ParkingService) GetReservation(ctx context.Context, id int) (*domain.Reservation, error) {
	return s.reservationRepo.FindByID(ctx, id)
}

func (s *ParkingService) ListReservations(ctx context.Context, filter domain.ReservationFilterDTO) ([]domain.Reservation, error) {
	if filter.Plate != nil {
		normalized := plate.Normalize(*filter.Plate)
		filter.Plate = &normalized
	}
	return s.reservationRepo.Find(ctx, filter)
}

func (s *ParkingService) UpdateReservation(ctx context.Context, id int, dto domain.ReservationDTO) (*domain.Reservation, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.validateReservation(ctx, dto, id)
	if err != nil {
		return nil, err
	}

	reservation.SpotID = dto.SpotID
	reservation.ClientName = dto.ClientName
	reservation.Plate = p
	reservation.StartsAt = dto.StartsAt.UTC()
	reservation.EndsAt = dto.EndsAt.UTC()
	reservation.Notes = null.NewString(dto.Notes, dto.Notes != "")
	return s.reservationRepo.Update(ctx, reservation)
}

// SetReservationStatus completes, cancels or reactivates a reservation.
// Reactivation is refused when it would overlap another active one.
func (s *ParkingService) SetReservationStatus(ctx context.Context, id int, status domain.ReservationStatus) (*domain.Reservation, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status == status {
		return reservation, nil
	}
	if status == domain.ReservationActive {
		overlapping, err := s.reservationRepo.CountOverlapping(ctx, reservation.SpotID, reservation.StartsAt, reservation.EndsAt, id)
		if err != nil {
			return nil, fmt.Errorf("checking overlapping reservations: %w", err)
		}
		if overlapping > 0 {
			return nil, ErrReservationConflict
		}
	}
	reservation.Status = status
	return s.reservationRepo.Update(ctx, reservation)
}

// --- Devices ---

func (s *ParkingService) RegisterDevice(ctx context.Context, dto domain.DeviceDTO) (*domain.Device, error) {
	device := &domain.Device{
		ThingName:       dto.ThingName,
		FirmwareVersion: dto.FirmwareVersion,
		IPAddress:       dto.IPAddress,
		Notes:           dto.Notes,
		Status:          domain.DeviceUnknown,
	}
	if existing, err := s.deviceRepo.FindByThingName(ctx, dto.ThingName); err == nil {
		device.Status = existing.Status
		device.LastSeenAt = existing.LastSeenAt
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking device: %w", err)
	}

	if dto.SpotID != nil {
		if _, err := s.spotRepo.FindByID(ctx, *dto.SpotID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: spot %d does not exist", ErrInvalidInput, *dto.SpotID)
			}
			return nil, fmt.Errorf("checking spot: %w", err)
		}
		device.SpotID = null.IntFrom(int64(*dto.SpotID))
	}
	return s.deviceRepo.CreateOrUpdate(ctx, device)
}

func (s *ParkingService) GetDevice(ctx context.Context, thingName string) (*domain.Device, error) {
	return s.deviceRepo.FindByThingName(ctx, thingName)
}

func (s *ParkingService) ListDevices(ctx context.Context) ([]domain.Device, error) {
	return s.deviceRepo.FindAll(ctx)
}
