package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hydrolink-monitor/internal/device/model"
	"hydrolink-monitor/internal/device/repository"
	"hydrolink-monitor/internal/history"
	"hydrolink-monitor/internal/logger"
	"hydrolink-monitor/internal/presence"
	appErrors "hydrolink-monitor/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher is the firmware-bound side of the broker connection.
// Settings and command topics are published retained so a unit that is
// asleep picks them up on reconnect.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

type DeviceService struct {
	repo        *repository.DeviceRepository
	refills     history.Repository
	presence    *presence.Evaluator
	publisher   Publisher
	topicPrefix string
}

func NewDeviceService(repo *repository.DeviceRepository, refills history.Repository, eval *presence.Evaluator, publisher Publisher, topicPrefix string) *DeviceService {
	return &DeviceService{
		repo:        repo,
		refills:     refills,
		presence:    eval,
		publisher:   publisher,
		topicPrefix: topicPrefix,
	}
}

// DeviceView is a device row combined with its derived presence state.
type DeviceView struct {
	model.Device
	Status presence.State `json:"status"`
}

func (s *DeviceService) requireLink(ctx context.Context, userID uuid.UUID, deviceID string) error {
	linked, err := s.repo.IsLinked(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	if !linked {
		return appErrors.ErrDeviceNotLinked
	}
	return nil
}

func (s *DeviceService) ListDevices(ctx context.Context, userID uuid.UUID) ([]DeviceView, error) {
	devices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, DeviceView{Device: d, Status: s.presence.Status(d.ID).State})
	}
	return views, nil
}

func (s *DeviceService) GetDevice(ctx context.Context, userID uuid.UUID, deviceID string) (*DeviceView, error) {
	if err := s.requireLink(ctx, userID, deviceID); err != nil {
		return nil, err
	}

	device, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	return &DeviceView{Device: *device, Status: s.presence.Status(deviceID).State}, nil
}

func (s *DeviceService) GetSettings(ctx context.Context, userID uuid.UUID, deviceID string) (*model.Settings, error) {
	if err := s.requireLink(ctx, userID, deviceID); err != nil {
		return nil, err
	}
	return s.repo.GetSettings(ctx, deviceID)
}

// UpdateSettings persists the changed fields and republishes the full
// settings document to the device's retained settings topic.
func (s *DeviceService) UpdateSettings(ctx context.Context, userID uuid.UUID, deviceID string, req *model.UpdateSettingsRequest) (*model.Settings, error) {
	if err := s.requireLink(ctx, userID, deviceID); err != nil {
		return nil, err
	}

	settings, err := s.repo.GetSettings(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if req.RefillThresholdPercentage != nil {
		settings.RefillThresholdPercentage = *req.RefillThresholdPercentage
	}
	if req.MaxFillLevelPercentage != nil {
		settings.MaxFillLevelPercentage = *req.MaxFillLevelPercentage
	}
	if req.DrumHeightCm != nil {
		settings.DrumHeightCm = *req.DrumHeightCm
	}

	if settings.RefillThresholdPercentage >= settings.MaxFillLevelPercentage {
		return nil, appErrors.NewAppError("INVALID_SETTINGS",
			"refill threshold must be below max fill level", nil)
	}

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}

	if err := s.publishSettings(deviceID, settings); err != nil {
		logger.Warn("failed to publish settings to device",
			zap.String("device_id", deviceID),
			zap.Error(err))
	}

	return settings, nil
}

// ManualRefill records the requested target level and publishes a
// refill command for the firmware to act on.
func (s *DeviceService) ManualRefill(ctx context.Context, userID uuid.UUID, deviceID string, targetPct int) error {
	if err := s.requireLink(ctx, userID, deviceID); err != nil {
		return err
	}

	settings, err := s.repo.GetSettings(ctx, deviceID)
	if err != nil {
		return err
	}
	settings.ManualRefillTarget = targetPct
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return err
	}

	command := map[string]any{
		"action":            "manualRefill",
		"target_percentage": targetPct,
		"requested_at":      time.Now().UnixMilli(),
	}
	return s.publishCommand(deviceID, command)
}

// RequestCalibration asks the firmware to remeasure the drum height.
func (s *DeviceService) RequestCalibration(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if err := s.requireLink(ctx, userID, deviceID); err != nil {
		return err
	}

	command := map[string]any{
		"action":       "calibrateDrumHeight",
		"requested_at": time.Now().UnixMilli(),
	}
	return s.publishCommand(deviceID, command)
}

// Claim registers a factory MAC against the calling account and links
// the resulting device.
func (s *DeviceService) Claim(ctx context.Context, userID uuid.UUID, req *model.ClaimRequest) (*model.Device, error) {
	mac := strings.ToUpper(strings.TrimSpace(req.MAC))

	reg, err := s.repo.FindMacRegistration(ctx, mac)
	if err != nil {
		return nil, err
	}
	if reg.ClaimedBy != nil && *reg.ClaimedBy != userID {
		return nil, appErrors.ErrDeviceAlreadyClaimed
	}

	if err := s.repo.EnsureDevice(ctx, reg.DeviceID, mac, req.Name); err != nil {
		return nil, err
	}
	if err := s.repo.MarkClaimed(ctx, mac, userID); err != nil {
		return nil, err
	}
	if err := s.repo.Link(ctx, userID, reg.DeviceID); err != nil {
		return nil, err
	}

	logger.Info("device claimed",
		zap.String("device_id", reg.DeviceID),
		zap.String("user_id", userID.String()))

	return s.repo.GetDevice(ctx, reg.DeviceID)
}

func (s *DeviceService) Unlink(ctx context.Context, userID uuid.UUID, deviceID string) error {
	return s.repo.Unlink(ctx, userID, deviceID)
}

// GetStats builds the usage summary from the latest sensor columns and
// the refill log for the current month.
func (s *DeviceService) GetStats(ctx context.Context, userID uuid.UUID, deviceID string) (*model.Stats, error) {
	if err := s.requireLink(ctx, userID, deviceID); err != nil {
		return nil, err
	}

	device, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	records, err := s.refills.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	stats := &model.Stats{WaterAvailable: device.WaterAvailable}
	if device.TotalLitersUsedToday != nil {
		stats.LitersUsedToday = *device.TotalLitersUsedToday
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for _, rec := range records {
		if !rec.WellFormed() {
			continue
		}
		t := rec.Time()
		if !t.Before(monthStart) {
			stats.RefillsThisMonth++
		}
		if stats.LastRefillDate == nil || t.After(*stats.LastRefillDate) {
			last := t
			stats.LastRefillDate = &last
		}
	}

	return stats, nil
}

func (s *DeviceService) publishSettings(deviceID string, settings *model.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	topic := fmt.Sprintf("%s/devices/%s/settings", s.topicPrefix, deviceID)
	return s.publisher.Publish(topic, 1, true, payload)
}

func (s *DeviceService) publishCommand(deviceID string, command map[string]any) error {
	payload, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}
	topic := fmt.Sprintf("%s/devices/%s/commands", s.topicPrefix, deviceID)
	if err := s.publisher.Publish(topic, 1, true, payload); err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}
	return nil
}
