package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/plate"
)

func pngBytes(t *testing.T) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

type plateFixture struct {
	svc          *PlateService
	recognizer   *fakeRecognizer
	store        *fakeStore
	reservations *fakeReservationRepo
	checks       *fakeCheckRepo
	publisher    *fakePublisher
	broadcaster  *fakeBroadcaster
}

func newPlateFixture(detections ...plate.Detection) *plateFixture {
	f := &plateFixture{
		recognizer: &fakeRecognizer{detections: detections},
		store:      &fakeStore{},
		reservations: newFakeReservationRepo(domain.Reservation{
			ID: 7, SpotID: 1, ClientName: "Carlos", Plate: "ABC1O23",
			StartsAt: t0, EndsAt: t0.Add(4 * time.Hour), Status: domain.ReservationActive,
		}),
		checks:      &fakeCheckRepo{},
		publisher:   &fakePublisher{},
		broadcaster: &fakeBroadcaster{},
	}
	spots := newFakeSpotRepo(
		domain.Spot{ID: 1, Code: "A-01", DeviceThingName: null.StringFrom("cam-a01")},
		domain.Spot{ID: 2, Code: "A-02"},
	)
	f.svc = NewPlateService(f.recognizer, f.store, spots, f.reservations, f.checks,
		PlateServiceConfig{UpscaleFactor: 2}, zap.NewNop())
	f.svc.SetPublisher(f.publisher)
	f.svc.SetBroadcaster(f.broadcaster)
	f.svc.now = func() time.Time { return t0.Add(time.Hour) }
	return f
}

func TestPlateService_Recognize(t *testing.T) {
	f := newPlateFixture(
		plate.Detection{Text: "BRASIL", Confidence: 0.99},
		plate.Detection{Text: "abc-1d23", Confidence: 0.91},
	)
	src := image.NewRGBA(image.Rect(0, 0, 10, 5))

	got, err := f.svc.Recognize(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, "ABC1D23", got.Plate.String)
	assert.Equal(t, 0.91, got.Confidence)
	require.NotNil(t, f.recognizer.seen)
	assert.Equal(t, 20, f.recognizer.seen.Bounds().Dx(), "image is upscaled before recognition")
}

func TestPlateService_RecognizeNothing(t *testing.T) {
	f := newPlateFixture(plate.Detection{Text: "BR", Confidence: 0.9})

	got, err := f.svc.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))

	require.NoError(t, err)
	assert.False(t, got.Found())
}

func TestPlateService_RecognizeErrors(t *testing.T) {
	f := newPlateFixture()
	f.recognizer.err = errBoom
	_, err := f.svc.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, errBoom)

	f.svc.recognizer = nil
	_, err = f.svc.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, ErrNoRecognizer)

	_, err = newPlateFixture().svc.RecognizeUpload(context.Background(), strings.NewReader("nope"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestPlateService_Compare(t *testing.T) {
	svc := newPlateFixture().svc

	got := svc.Compare("abc-1o23", "ABC 1023")

	assert.Equal(t, 87, got.TotalCost)
	assert.Equal(t, 87.0, got.SimilarityPercent)
}

func TestPlateService_CheckSpotMatched(t *testing.T) {
	f := newPlateFixture(plate.Detection{Text: "ABC1023", Confidence: 0.95})

	check, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 1, Image: pngBytes(t)})

	require.NoError(t, err)
	assert.Equal(t, "A-01", check.SpotCode)
	assert.Equal(t, "ABC1023", check.DetectedPlate.String)
	assert.Equal(t, "ABC1O23", check.ReferencePlate.String)
	assert.Equal(t, int64(7), check.ReservationID.Int64)
	assert.Equal(t, 87.0, check.SimilarityPercent)
	assert.True(t, check.Matched)
	assert.Len(t, check.Details, plate.PlateLength)
	assert.Equal(t, []string{"uploads/vaga-A-01/a-01.png"}, f.store.saved)

	require.Len(t, f.checks.checks, 1)
	require.Len(t, f.publisher.published, 1)
	require.Len(t, f.broadcaster.notifications, 1)
	assert.Equal(t, check.ID, f.broadcaster.notifications[0].CheckID)
	assert.True(t, f.broadcaster.notifications[0].Matched)
}

func TestPlateService_CheckSpotBelowThreshold(t *testing.T) {
	f := newPlateFixture(plate.Detection{Text: "XYZ9K88", Confidence: 0.95})

	check, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 1, Image: pngBytes(t)})

	require.NoError(t, err)
	assert.False(t, check.Matched)
	assert.Less(t, check.Similarity, DefaultMatchThreshold)
}

func TestPlateService_CheckSpotWithoutReservation(t *testing.T) {
	f := newPlateFixture(plate.Detection{Text: "ABC1D23", Confidence: 0.9})

	check, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 2, Image: pngBytes(t)})

	require.NoError(t, err)
	assert.False(t, check.ReferencePlate.Valid)
	assert.False(t, check.ReservationID.Valid)
	assert.False(t, check.Matched)
	assert.Equal(t, 0.0, check.Similarity)
	require.Len(t, check.Details, 1)
	assert.Contains(t, check.Details[0].Explanation, "incorrect length")
}

func TestPlateService_CheckSpotNoPlateRead(t *testing.T) {
	f := newPlateFixture()

	check, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 1, Image: pngBytes(t)})

	require.NoError(t, err)
	assert.False(t, check.DetectedPlate.Valid)
	assert.False(t, check.Matched)
	assert.Equal(t, "recognition produced no text", check.Details[0].Explanation)
}

func TestPlateService_CheckSpotPublishFailureIsNotFatal(t *testing.T) {
	f := newPlateFixture(plate.Detection{Text: "ABC1O23", Confidence: 0.9})
	f.publisher.err = errBoom

	_, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 1, Image: pngBytes(t)})

	require.NoError(t, err)
	assert.Len(t, f.broadcaster.notifications, 1)
}

func TestPlateService_CheckSpotErrors(t *testing.T) {
	t.Run("unknown spot", func(t *testing.T) {
		f := newPlateFixture()
		_, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 99, Image: pngBytes(t)})
		assert.Error(t, err)
		assert.Empty(t, f.store.saved)
	})
	t.Run("invalid image", func(t *testing.T) {
		f := newPlateFixture()
		_, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 1, Image: strings.NewReader("garbage")})
		assert.ErrorIs(t, err, ErrInvalidImage)
	})
	t.Run("reservation lookup", func(t *testing.T) {
		f := newPlateFixture()
		f.reservations.err = errBoom
		_, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 1, Image: pngBytes(t)})
		assert.ErrorIs(t, err, errBoom)
	})
	t.Run("persisting", func(t *testing.T) {
		f := newPlateFixture()
		f.checks.err = errBoom
		_, err := f.svc.CheckSpot(context.Background(), CheckSpotInput{SpotID: 1, Image: pngBytes(t)})
		assert.ErrorIs(t, err, errBoom)
		assert.Empty(t, f.broadcaster.notifications)
	})
}

func TestPlateService_ListAndGetChecks(t *testing.T) {
	f := newPlateFixture(plate.Detection{Text: "ABC1O23", Confidence: 0.9})
	ctx := context.Background()
	check, err := f.svc.CheckSpot(ctx, CheckSpotInput{SpotID: 1, Image: pngBytes(t)})
	require.NoError(t, err)

	matched := true
	list, err := f.svc.ListChecks(ctx, domain.PlateCheckFilterDTO{Matched: &matched})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := f.svc.GetCheck(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, check.ID, got.ID)
}
