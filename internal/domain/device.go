package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type DeviceStatus string

const (
	DeviceOnline      DeviceStatus = "online"
	DeviceOffline     DeviceStatus = "offline"
	DeviceError       DeviceStatus = "error"
	DeviceMaintenance DeviceStatus = "maintenance"
	DeviceUnknown     DeviceStatus = "unknown"
)

// Device is the camera/controller installed at a spot. ThingName is its
// AWS IoT thing name and the target of MQTT commands.
type Device struct {
	ID              int          `json:"id"`
	ThingName       string       `json:"thing_name"`
	SpotID          null.Int     `json:"spot_id"`
	FirmwareVersion string       `json:"firmware_version,omitempty"`
	Status          DeviceStatus `json:"status"`
	IPAddress       string       `json:"ip_address,omitempty"`
	LastSeenAt      null.Time    `json:"last_seen_at"`
	Notes           string       `json:"notes,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type DeviceDTO struct {
	ThingName       string `json:"thing_name" binding:"required"`
	SpotID          *int   `json:"spot_id"`
	FirmwareVersion string `json:"firmware_version"`
	IPAddress       string `json:"ip_address"`
	Notes           string `json:"notes"`
}
