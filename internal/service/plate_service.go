package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/ocr"
	"github.com/Douglasgls/zona-verde-api/internal/plate"
	"github.com/Douglasgls/zona-verde-api/internal/repository"
	"github.com/Douglasgls/zona-verde-api/internal/upload"
)

var ErrInvalidImage = errors.New("invalid image")
var ErrNoRecognizer = errors.New("no text recognition engine configured")

const DefaultMatchThreshold = 0.8

// ImageStore keeps the uploaded spot photos.
type ImageStore interface {
	SavePNG(r io.Reader, spotCode string) (string, image.Image, error)
}

// PlateCheckPublisher notifies the spot device of a check outcome.
type PlateCheckPublisher interface {
	PublishPlateCheck(ctx context.Context, check *domain.PlateCheck) error
}

// PlateCheckBroadcaster pushes check outcomes to live dashboards.
type PlateCheckBroadcaster interface {
	BroadcastPlateCheck(notification domain.PlateCheckNotification)
}

type PlateServiceConfig struct {
	UpscaleFactor  int
	MatchThreshold float64
}

type PlateService struct {
	recognizer      ocr.Recognizer
	store           ImageStore
	spotRepo        repository.SpotRepository
	reservationRepo repository.ReservationRepository
	checkRepo       repository.PlateCheckRepository
	publisher       PlateCheckPublisher
	broadcaster     PlateCheckBroadcaster
	cfg             PlateServiceConfig
	logger          *zap.Logger
	now             func() time.Time
}

func NewPlateService(
	recognizer ocr.Recognizer,
	store ImageStore,
	spotRepo repository.SpotRepository,
	reservationRepo repository.ReservationRepository,
	checkRepo repository.PlateCheckRepository,
	cfg PlateServiceConfig,
	logger *zap.Logger,
) *PlateService {
	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	return &PlateService{
		recognizer:      recognizer,
		store:           store,
		spotRepo:        spotRepo,
		reservationRepo: reservationRepo,
		checkRepo:       checkRepo,
		cfg:             cfg,
		logger:          logger.Named("plate"),
		now:             time.Now,
	}
}

// SetPublisher and SetBroadcaster attach the optional outbound channels.
func (s *PlateService) SetPublisher(p PlateCheckPublisher) { s.publisher = p }

func (s *PlateService) SetBroadcaster(b PlateCheckBroadcaster) { s.broadcaster = b }

// Recognize preprocesses img, runs the recognition engine and picks the
// plate among the detected texts.
func (s *PlateService) Recognize(ctx context.Context, img image.Image) (plate.Candidate, error) {
	if s.recognizer == nil {
		return plate.Candidate{}, ErrNoRecognizer
	}

	detections, err := s.recognizer.Recognize(ctx, ocr.Preprocess(img, s.cfg.UpscaleFactor))
	if err != nil {
		return plate.Candidate{}, fmt.Errorf("recognizing text: %w", err)
	}

	candidate := plate.SelectCandidate(detections)
	if !candidate.Found() {
		raw := make([]string, 0, len(detections))
		for _, d := range detections {
			raw = append(raw, fmt.Sprintf("%s (%.2f)", d.Text, d.Confidence))
		}
		s.logger.Info("no plate among detections", zap.Strings("raw", raw))
		return candidate, nil
	}

	s.logger.Debug("plate selected",
		zap.String("plate", candidate.Plate.String), zap.Float64("confidence", candidate.Confidence))
	return candidate, nil
}

// RecognizeUpload decodes an uploaded image and recognizes its plate.
func (s *PlateService) RecognizeUpload(ctx context.Context, r io.Reader) (plate.Candidate, error) {
	img, err := upload.DecodeImage(r)
	if err != nil {
		return plate.Candidate{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return s.Recognize(ctx, img)
}

func (s *PlateService) Compare(reference, detected string) plate.Score {
	return plate.Compare(plate.Normalize(reference), plate.Normalize(detected))
}

type CheckSpotInput struct {
	SpotID int
	Image  io.Reader
}

// CheckSpot stores the photo taken at a spot, reads its plate and scores it
// against the reservation active right now. Without a reservation the check
// is still recorded, unmatched and with no reference plate.
func (s *PlateService) CheckSpot(ctx context.Context, in CheckSpotInput) (*domain.PlateCheck, error) {
	spot, err := s.spotRepo.FindByID(ctx, in.SpotID)
	if err != nil {
		return nil, err
	}

	path, img, err := s.store.SavePNG(in.Image, spot.Code)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidImage) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		return nil, fmt.Errorf("saving image: %w", err)
	}

	candidate, err := s.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	reservation, err := s.reservationRepo.FindActiveBySpot(ctx, spot.ID, at)
	if err != nil && !errors.Is(err, repository.ErrNoActiveReservation) {
		return nil, fmt.Errorf("finding active reservation: %w", err)
	}

	check := &domain.PlateCheck{
		ID:            uuid.New(),
		SpotID:        spot.ID,
		SpotCode:      spot.Code,
		ImagePath:     path,
		DetectedPlate: candidate.Plate,
		OCRConfidence: candidate.Confidence,
	}

	reference := ""
	if reservation != nil {
		reference = reservation.Plate
		check.ReservationID = null.IntFrom(int64(reservation.ID))
		check.ReferencePlate = null.StringFrom(reservation.Plate)
	}

	score := plate.Compare(reference, candidate.Plate.String)
	check.Similarity = score.Similarity
	check.SimilarityPercent = score.SimilarityPercent
	check.TotalCost = score.TotalCost
	check.Details = score.Details
	check.Matched = reservation != nil && candidate.Found() && score.Similarity >= s.cfg.MatchThreshold

	if err := s.checkRepo.Create(ctx, check); err != nil {
		return nil, fmt.Errorf("saving plate check: %w", err)
	}

	s.logger.Info("plate check recorded",
		zap.Stringer("check_id", check.ID),
		zap.String("spot", spot.Code),
		zap.String("detected", check.DetectedPlate.String),
		zap.String("reference", check.ReferencePlate.String),
		zap.Float64("similarity_pct", check.SimilarityPercent),
		zap.Bool("matched", check.Matched),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishPlateCheck(ctx, check); err != nil {
			s.logger.Warn("publishing plate check to device failed",
				zap.Stringer("check_id", check.ID), zap.Error(err))
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPlateCheck(check.Notification())
	}
	return check, nil
}

func (s *PlateService) ListChecks(ctx context.Context, filter domain.PlateCheckFilterDTO) ([]domain.PlateCheck, error) {
	return s.checkRepo.Find(ctx, filter)
}

func (s *PlateService) GetCheck(ctx context.Context, id uuid.UUID) (*domain.PlateCheck, error) {
	return s.checkRepo.FindByID(ctx, id)
}
