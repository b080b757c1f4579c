package postgresql

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/repository"
)

var (
	brt     = time.FixedZone("BRT", -3*60*60)
	created = time.Date(2025, 5, 1, 5, 0, 0, 0, brt)
)

func TestSpotRepository_FindByIDMapsNullColumns(t *testing.T) {
	db, script := newScriptedDB(t,
		[]string{"id", "code", "description", "device_thing_name", "status", "last_status_source", "last_event_at", "created_at", "updated_at"},
		[]driver.Value{int64(3), "A-07", nil, nil, "free", nil, nil, created, created},
	)

	spot, err := NewPgSpotRepository(db).FindByID(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, 3, spot.ID)
	assert.Equal(t, "A-07", spot.Code)
	assert.Empty(t, spot.Description)
	assert.False(t, spot.DeviceThingName.Valid)
	assert.Equal(t, domain.SpotFree, spot.Status)
	assert.False(t, spot.LastEventAt.Valid)
	assert.Equal(t, time.UTC, spot.CreatedAt.Location())
	assert.True(t, spot.CreatedAt.Equal(created))
	assert.Equal(t, []any{int64(3)}, script.lastQuery(t).args)
}

func TestSpotRepository_FindByIDNotFound(t *testing.T) {
	db, _ := newScriptedDB(t, []string{"id"})

	_, err := NewPgSpotRepository(db).FindByID(context.Background(), 9)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeviceRepository_FindByThingName(t *testing.T) {
	seen := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
	db, _ := newScriptedDB(t,
		[]string{"id", "thing_name", "spot_id", "firmware_version", "status", "ip_address", "last_seen_at", "notes", "created_at", "updated_at"},
		[]driver.Value{int64(1), "zv-cam-07", int64(3), "1.4.2", "online", nil, seen, nil, created, created},
	)

	device, err := NewPgDeviceRepository(db).FindByThingName(context.Background(), "zv-cam-07")

	require.NoError(t, err)
	assert.Equal(t, "zv-cam-07", device.ThingName)
	assert.Equal(t, int64(3), device.SpotID.Int64)
	assert.True(t, device.SpotID.Valid)
	assert.Equal(t, "1.4.2", device.FirmwareVersion)
	assert.Empty(t, device.IPAddress)
	assert.Equal(t, domain.DeviceOnline, device.Status)
	assert.True(t, device.LastSeenAt.Time.Equal(seen))
}

func TestReservationRepository_FindActiveBySpotUsesHalfOpenWindow(t *testing.T) {
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	db, script := newScriptedDB(t,
		[]string{"id", "spot_id", "client_name", "plate", "starts_at", "ends_at", "status", "notes", "created_at", "updated_at"},
		[]driver.Value{int64(7), int64(1), "Ana Souza", "ABC1O23", at.Add(-time.Hour), at.Add(time.Hour), "active", nil, created, created},
	)

	res, err := NewPgReservationRepository(db).FindActiveBySpot(context.Background(), 1, at)

	require.NoError(t, err)
	assert.Equal(t, 7, res.ID)
	assert.Equal(t, "ABC1O23", res.Plate)
	assert.Equal(t, domain.ReservationActive, res.Status)
	assert.False(t, res.Notes.Valid)
	assert.True(t, res.Covers(at))

	q := script.lastQuery(t)
	assert.Contains(t, q.query, "starts_at <= $3 AND ends_at > $3")
	assert.Equal(t, []any{int64(1), "active", at}, q.args)
}

func TestReservationRepository_FindActiveBySpotNone(t *testing.T) {
	db, _ := newScriptedDB(t, []string{"id"})

	_, err := NewPgReservationRepository(db).FindActiveBySpot(context.Background(), 1, time.Now())

	assert.ErrorIs(t, err, repository.ErrNoActiveReservation)
}

func plateCheckRow(id uuid.UUID, reservationID any, details string) []driver.Value {
	return []driver.Value{
		id.String(), int64(1), "A-07", reservationID, "uploads/vaga-A-07/a.png", "ABC1023", 0.93,
		"ABC1O23", 0.87, 87.0, int64(87), true, []byte(details), created,
	}
}

var plateCheckCols = []string{
	"id", "spot_id", "code", "reservation_id", "image_path", "detected_plate", "ocr_confidence",
	"reference_plate", "similarity", "similarity_pct", "total_cost", "matched", "details", "created_at",
}

func TestPlateCheckRepository_FindByIDDecodesDetails(t *testing.T) {
	id := uuid.New()
	db, _ := newScriptedDB(t, plateCheckCols,
		plateCheckRow(id, int64(7), `[{"position":5,"expected":"O","obtained":"0","explanation":"typical OCR confusion (O->0) (-3)"}]`),
	)

	check, err := NewPgPlateCheckRepository(db).FindByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, check.ID)
	assert.Equal(t, "A-07", check.SpotCode)
	assert.Equal(t, int64(7), check.ReservationID.Int64)
	assert.Equal(t, "ABC1023", check.DetectedPlate.String)
	assert.Equal(t, 87, check.TotalCost)
	assert.True(t, check.Matched)
	require.Len(t, check.Details, 1)
	assert.Equal(t, 5, check.Details[0].Position)
	assert.Equal(t, time.UTC, check.CreatedAt.Location())
}

func TestPlateCheckRepository_FindBuildsFilter(t *testing.T) {
	db, script := newScriptedDB(t, plateCheckCols,
		plateCheckRow(uuid.New(), nil, `[]`),
		plateCheckRow(uuid.New(), nil, `[]`),
	)
	spotID, matched := 1, false
	to := time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)

	checks, err := NewPgPlateCheckRepository(db).Find(context.Background(), domain.PlateCheckFilterDTO{
		SpotID: &spotID, Matched: &matched, To: to, Limit: 50,
	})

	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.False(t, checks[0].ReservationID.Valid)

	q := script.lastQuery(t)
	assert.Contains(t, q.query, "pc.spot_id = $1 AND pc.matched = $2 AND pc.created_at < $3")
	assert.Contains(t, q.query, "LIMIT $4")
	assert.Equal(t, []any{int64(1), false, to.AddDate(0, 0, 1), int64(50)}, q.args)
}
