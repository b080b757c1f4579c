package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrNoActiveReservation = errors.New("no active reservation for the given spot")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type SpotRepository interface {
	Create(ctx context.Context, spot *domain.Spot) (*domain.Spot, error)
	FindByID(ctx context.Context, id int) (*domain.Spot, error)
	FindByCode(ctx context.Context, code string) (*domain.Spot, error)
	FindByDeviceThingName(ctx context.Context, thingName string) ([]domain.Spot, error)
	FindAll(ctx context.Context) ([]domain.Spot, error)
	Update(ctx context.Context, spot *domain.Spot) (*domain.Spot, error)
	UpdateStatus(ctx context.Context, id int, status domain.SpotStatus, eventAt time.Time, source string) error
	Delete(ctx context.Context, id int) error
}

type DeviceRepository interface {
	CreateOrUpdate(ctx context.Context, device *domain.Device) (*domain.Device, error)
	FindByThingName(ctx context.Context, thingName string) (*domain.Device, error)
	FindAll(ctx context.Context) ([]domain.Device, error)
	UpdateStatus(ctx context.Context, thingName string, status domain.DeviceStatus, lastSeenAt time.Time) error
}

type DeviceEventsLogRepository interface {
	Create(ctx context.Context, event *domain.DeviceEventLog) error
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error)
	FindByID(ctx context.Context, id int) (*domain.Reservation, error)
	// FindActiveBySpot returns the active reservation covering at, or ErrNoActiveReservation.
	FindActiveBySpot(ctx context.Context, spotID int, at time.Time) (*domain.Reservation, error)
	// CountOverlapping counts active reservations of spotID intersecting [from, to), ignoring excludeID.
	CountOverlapping(ctx context.Context, spotID int, from, to time.Time, excludeID int) (int, error)
	Find(ctx context.Context, filter domain.ReservationFilterDTO) ([]domain.Reservation, error)
	Update(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error)
}

type PlateCheckRepository interface {
	Create(ctx context.Context, check *domain.PlateCheck) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PlateCheck, error)
	Find(ctx context.Context, filter domain.PlateCheckFilterDTO) ([]domain.PlateCheck, error)
}
