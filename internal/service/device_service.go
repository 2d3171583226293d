package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CaioWing/checkpoint/internal/domain"
)

// DeviceService covers operations that span every device variant.
type DeviceService struct {
	store domain.DeviceStore
	log   *slog.Logger

	now func() time.Time
}

func NewDeviceService(store domain.DeviceStore, log *slog.Logger) *DeviceService {
	return &DeviceService{store: store, log: log, now: time.Now}
}

// CheckoutDevice checks out any entered device by id.
func (s *DeviceService) CheckoutDevice(ctx context.Context, id string) error {
	entered, err := s.store.IsDeviceEntered(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup device: %w", err)
	}
	if !entered {
		return fmt.Errorf("%w: %s is not entered", domain.ErrDeviceNotFound, id)
	}

	if err := s.store.CheckoutDevice(ctx, id, s.now()); err != nil {
		// Another request checked the device out after the lookup above.
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s is not entered", domain.ErrDeviceNotFound, id)
		}
		return fmt.Errorf("checkout device: %w", err)
	}

	s.log.Info("device checked out", "id", id)
	return nil
}

func (s *DeviceService) GetEnteredDevices(ctx context.Context, c domain.DeviceCriteria) ([]*domain.EnteredDevice, error) {
	return s.store.GetEnteredDevices(ctx, c)
}
