package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID         int               `json:"id"`
	SpotID     int               `json:"spot_id"`
	ClientName string            `json:"client_name"`
	Plate      string            `json:"plate"`
	StartsAt   time.Time         `json:"starts_at"`
	EndsAt     time.Time         `json:"ends_at"`
	Status     ReservationStatus `json:"status"`
	Notes      null.String       `json:"notes"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	Spot *Spot `json:"spot,omitempty"`
}

// Covers reports whether the reservation is active at t.
func (r *Reservation) Covers(t time.Time) bool {
	return r.Status == ReservationActive && !t.Before(r.StartsAt) && t.Before(r.EndsAt)
}

type ReservationDTO struct {
	SpotID     int       `json:"spot_id" binding:"required"`
	ClientName string    `json:"client_name" binding:"required"`
	Plate      string    `json:"plate" binding:"required"`
	StartsAt   time.Time `json:"starts_at" binding:"required"`
	EndsAt     time.Time `json:"ends_at" binding:"required"`
	Notes      string    `json:"notes"`
}

type ReservationFilterDTO struct {
	SpotID *int    `form:"spot_id"`
	Status *string `form:"status"`
	Plate  *string `form:"plate"`
}

type ReservationStatusDTO struct {
	Status string `json:"status" binding:"required,oneof=active completed cancelled"`
}
