package domain

import (
	"encoding/json"
	"time"
)

const (
	MessageTypeHeartbeat  = "heartbeat"
	MessageTypeSpotStatus = "spot_status"
)

// GenericDeviceEvent carries the fields shared by every device message
// delivered through the SQS queue.
type GenericDeviceEvent struct {
	DeviceID          string          `json:"device_id"` // AWS IoT thing name
	MessageType       string          `json:"message_type"`
	Timestamp         string          `json:"timestamp"` // RFC 3339, UTC
	ReceivedMqttTopic string          `json:"received_mqtt_topic,omitempty"`
	RawPayload        json.RawMessage `json:"-"`
}

// EventTime parses Timestamp, falling back to now for missing or malformed values.
func (e GenericDeviceEvent) EventTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

type DeviceHeartbeatEvent struct {
	GenericDeviceEvent
	FirmwareVersion string `json:"firmware_version"`
	IPAddress       string `json:"ip"`
	UptimeSeconds   int64  `json:"uptime_seconds,omitempty"`
	Status          string `json:"status,omitempty"`
}

type DeviceSpotStatusEvent struct {
	GenericDeviceEvent
	SpotCode   string `json:"spot_code"`
	IsOccupied bool   `json:"is_occupied"`
}

// PlateCheckCommandPayload is published to the spot device after a check.
type PlateCheckCommandPayload struct {
	CheckID       string  `json:"check_id"`
	SpotCode      string  `json:"spot_code"`
	DetectedPlate string  `json:"detected_plate,omitempty"`
	Matched       bool    `json:"matched"`
	SimilarityPct float64 `json:"similarity_pct"`
}

// DeviceEventLog is the audit row stored for every consumed device message.
type DeviceEventLog struct {
	ID              int64           `json:"id"`
	ReceivedAt      time.Time       `json:"received_at"`
	ThingName       string          `json:"thing_name"`
	MqttTopic       string          `json:"mqtt_topic"`
	MessageType     string          `json:"message_type"`
	Payload         json.RawMessage `json:"payload"`
	ProcessedStatus string          `json:"processed_status"` // "processed", "ignored", "error"
	ProcessingNotes string          `json:"processing_notes,omitempty"`
}
