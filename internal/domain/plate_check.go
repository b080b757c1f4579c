package domain

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"github.com/Douglasgls/zona-verde-api/internal/plate"
)

// PlateCheck records one verification of the vehicle parked at a spot.
type PlateCheck struct {
	ID                uuid.UUID              `json:"id"`
	SpotID            int                    `json:"spot_id"`
	SpotCode          string                 `json:"spot_code"`
	ReservationID     null.Int               `json:"reservation_id"`
	ImagePath         string                 `json:"image_path"`
	DetectedPlate     null.String            `json:"detected_plate"`
	OCRConfidence     float64                `json:"ocr_confidence"`
	ReferencePlate    null.String            `json:"reference_plate"`
	Similarity        float64                `json:"similarity"`
	SimilarityPercent float64                `json:"similarity_pct"`
	TotalCost         int                    `json:"total_cost"`
	Matched           bool                   `json:"matched"`
	Details           []plate.PositionDetail `json:"details"`
	CreatedAt         time.Time              `json:"created_at"`
}

type PlateCheckFilterDTO struct {
	SpotID  *int      `form:"spot_id"`
	Matched *bool     `form:"matched"`
	From    time.Time `form:"from" time_format:"2006-01-02"` // zero means unbounded
	To      time.Time `form:"to" time_format:"2006-01-02"`
	Limit   int       `form:"limit,default=100" binding:"min=0,max=1000"`
}

// PlateCheckNotification is pushed to WebSocket clients and to the spot device.
type PlateCheckNotification struct {
	CheckID           uuid.UUID `json:"check_id"`
	SpotID            int       `json:"spot_id"`
	SpotCode          string    `json:"spot_code"`
	DetectedPlate     string    `json:"detected_plate,omitempty"`
	ReferencePlate    string    `json:"reference_plate,omitempty"`
	Matched           bool      `json:"matched"`
	SimilarityPercent float64   `json:"similarity_pct"`
	Timestamp         time.Time `json:"timestamp"`
}

// Notification builds the outbound summary of the check.
func (c *PlateCheck) Notification() PlateCheckNotification {
	return PlateCheckNotification{
		CheckID:           c.ID,
		SpotID:            c.SpotID,
		SpotCode:          c.SpotCode,
		DetectedPlate:     c.DetectedPlate.String,
		ReferencePlate:    c.ReferencePlate.String,
		Matched:           c.Matched,
		SimilarityPercent: c.SimilarityPercent,
		Timestamp:         c.CreatedAt,
	}
}

type ComparePlatesDTO struct {
	Reference string `json:"reference" binding:"required"`
	Detected  string `json:"detected"`
}
