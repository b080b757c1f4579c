package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SpotStatus string

const (
	SpotFree        SpotStatus = "free"
	SpotOccupied    SpotStatus = "occupied"
	SpotReserved    SpotStatus = "reserved"
	SpotMaintenance SpotStatus = "maintenance"
)

// ValidSpotStatuses lists every status a spot may be set to.
var ValidSpotStatuses = []SpotStatus{SpotFree, SpotOccupied, SpotReserved, SpotMaintenance}

type Spot struct {
	ID               int         `json:"id"`
	Code             string      `json:"code"` // printed on the pavement, e.g. "A-07"
	Description      string      `json:"description,omitempty"`
	DeviceThingName  null.String `json:"device_thing_name"`
	Status           SpotStatus  `json:"status"`
	LastStatusSource string      `json:"last_status_source,omitempty"`
	LastEventAt      null.Time   `json:"last_event_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type SpotDTO struct {
	Code            string `json:"code" binding:"required,max=20"`
	Description     string `json:"description"`
	DeviceThingName string `json:"device_thing_name"`
	Status          string `json:"status,omitempty"`
}
