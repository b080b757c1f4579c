package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/repository"
)

const (
	eventProcessed = "processed"
	eventIgnored   = "ignored"
	eventError     = "error"
)

// DeviceEventService applies messages sent by spot devices through AWS IoT
// rules and the SQS queue.
type DeviceEventService struct {
	spotRepo     repository.SpotRepository
	deviceRepo   repository.DeviceRepository
	eventLogRepo repository.DeviceEventsLogRepository
	logger       *zap.Logger
}

func NewDeviceEventService(
	spotRepo repository.SpotRepository,
	deviceRepo repository.DeviceRepository,
	eventLogRepo repository.DeviceEventsLogRepository,
	logger *zap.Logger,
) *DeviceEventService {
	return &DeviceEventService{
		spotRepo:     spotRepo,
		deviceRepo:   deviceRepo,
		eventLogRepo: eventLogRepo,
		logger:       logger.Named("device_events"),
	}
}

// HandleDeviceEvent processes one SQS message body. Every message is
// recorded in the device event log. Only failures worth retrying (storage
// errors) are returned; malformed, unknown or unresolvable messages are
// logged and acknowledged.
func (s *DeviceEventService) HandleDeviceEvent(ctx context.Context, body string) error {
	entry := &domain.DeviceEventLog{
		ReceivedAt: time.Now().UTC(),
		Payload:    json.RawMessage(body),
	}

	var generic domain.GenericDeviceEvent
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		entry.Payload = nil
		s.record(ctx, entry, eventError, fmt.Sprintf("malformed payload: %v", err))
		s.logger.Warn("dropping malformed device event", zap.Error(err))
		return nil
	}
	generic.RawPayload = json.RawMessage(body)
	entry.ThingName = generic.DeviceID
	entry.MqttTopic = generic.ReceivedMqttTopic
	entry.MessageType = generic.MessageType

	log := s.logger.With(zap.String("device", generic.DeviceID), zap.String("type", generic.MessageType))

	var err error
	switch generic.MessageType {
	case domain.MessageTypeHeartbeat:
		var event domain.DeviceHeartbeatEvent
		if err = json.Unmarshal(generic.RawPayload, &event); err == nil {
			event.GenericDeviceEvent = generic
			err = s.handleHeartbeat(ctx, event)
		}
	case domain.MessageTypeSpotStatus:
		var event domain.DeviceSpotStatusEvent
		if err = json.Unmarshal(generic.RawPayload, &event); err == nil {
			event.GenericDeviceEvent = generic
			err = s.handleSpotStatus(ctx, event)
		}
	default:
		log.Warn("unhandled device message type")
		s.record(ctx, entry, eventIgnored, "unhandled message type")
		return nil
	}

	if err != nil {
		log.Error("device event failed", zap.Error(err))
		s.record(ctx, entry, eventError, err.Error())
		if isPermanent(err) {
			return nil
		}
		return err
	}
	s.record(ctx, entry, eventProcessed, "")
	return nil
}

func isPermanent(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr)
}

func (s *DeviceEventService) record(ctx context.Context, entry *domain.DeviceEventLog, status, notes string) {
	if s.eventLogRepo == nil {
		return
	}
	entry.ProcessedStatus = status
	entry.ProcessingNotes = notes
	if err := s.eventLogRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("could not store device event log", zap.Error(err))
	}
}

var reportableDeviceStatuses = []domain.DeviceStatus{
	domain.DeviceOnline, domain.DeviceOffline, domain.DeviceError, domain.DeviceMaintenance,
}

func (s *DeviceEventService) handleHeartbeat(ctx context.Context, event domain.DeviceHeartbeatEvent) error {
	if event.DeviceID == "" {
		return fmt.Errorf("%w: heartbeat without device_id", ErrInvalidInput)
	}
	status := domain.DeviceOnline
	if st := domain.DeviceStatus(event.Status); slices.Contains(reportableDeviceStatuses, st) {
		status = st
	}
	seenAt := event.EventTime()

	device, err := s.deviceRepo.FindByThingName(ctx, event.DeviceID)
	if errors.Is(err, repository.ErrNotFound) {
		device = &domain.Device{ThingName: event.DeviceID}
		s.logger.Info("registering unknown device from heartbeat", zap.String("device", event.DeviceID))
	} else if err != nil {
		return fmt.Errorf("finding device: %w", err)
	}

	if device.LastSeenAt.Valid && seenAt.Before(device.LastSeenAt.Time) {
		s.logger.Debug("stale heartbeat ignored",
			zap.String("device", event.DeviceID), zap.Time("event_at", seenAt), zap.Time("last_seen_at", device.LastSeenAt.Time))
		return nil
	}

	if device.ID != 0 && event.FirmwareVersion == "" && event.IPAddress == "" {
		return s.deviceRepo.UpdateStatus(ctx, event.DeviceID, status, seenAt)
	}

	if event.FirmwareVersion != "" {
		device.FirmwareVersion = event.FirmwareVersion
	}
	if event.IPAddress != "" {
		device.IPAddress = event.IPAddress
	}
	device.Status = status
	device.LastSeenAt.SetValid(seenAt)
	_, err = s.deviceRepo.CreateOrUpdate(ctx, device)
	return err
}

func (s *DeviceEventService) handleSpotStatus(ctx context.Context, event domain.DeviceSpotStatusEvent) error {
	spot, err := s.resolveSpot(ctx, event)
	if err != nil {
		return err
	}

	status := domain.SpotFree
	if event.IsOccupied {
		status = domain.SpotOccupied
	}
	eventAt := event.EventTime()

	// Maintenance is set by operators and is not overridden by sensors.
	if spot.Status == domain.SpotMaintenance {
		s.logger.Info("spot under maintenance, sensor update ignored", zap.String("spot", spot.Code))
		return nil
	}
	if spot.LastEventAt.Valid && !eventAt.After(spot.LastEventAt.Time) {
		s.logger.Debug("out-of-order spot status ignored",
			zap.String("spot", spot.Code), zap.Time("event_at", eventAt), zap.Time("last_event_at", spot.LastEventAt.Time))
		return nil
	}

	if err := s.spotRepo.UpdateStatus(ctx, spot.ID, status, eventAt, "device"); err != nil {
		return fmt.Errorf("updating spot status: %w", err)
	}
	s.logger.Info("spot status updated", zap.String("spot", spot.Code), zap.String("status", string(status)))
	return nil
}

// resolveSpot finds the spot by code, or by the reporting device when the
// message carries no code and the device serves exactly one spot.
func (s *DeviceEventService) resolveSpot(ctx context.Context, event domain.DeviceSpotStatusEvent) (*domain.Spot, error) {
	if event.SpotCode != "" {
		spot, err := s.spotRepo.FindByCode(ctx, event.SpotCode)
		if err != nil {
			return nil, fmt.Errorf("finding spot %q: %w", event.SpotCode, err)
		}
		return spot, nil
	}

	spots, err := s.spotRepo.FindByDeviceThingName(ctx, event.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("finding spots of device %q: %w", event.DeviceID, err)
	}
	if len(spots) != 1 {
		return nil, fmt.Errorf("%w: device %q serves %d spots and sent no spot_code", ErrInvalidInput, event.DeviceID, len(spots))
	}
	return &spots[0], nil
}
