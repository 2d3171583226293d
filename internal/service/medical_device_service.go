package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

type MedicalDeviceService struct {
	store  domain.DeviceStore
	photos storage.PhotoStore
	log    *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewMedicalDeviceService(store domain.DeviceStore, photos storage.PhotoStore, log *slog.Logger) *MedicalDeviceService {
	return &MedicalDeviceService{
		store:  store,
		photos: photos,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *MedicalDeviceService) CheckinMedicalDevice(ctx context.Context, in MedicalDeviceInput) (*domain.MedicalDevice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	id := s.newID()
	url, err := savePhoto(ctx, s.photos, in.Photo, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &domain.MedicalDevice{
		ID:        id,
		Brand:     in.Brand,
		Model:     in.Model,
		Serial:    in.Serial,
		PhotoURL:  url,
		Owner:     domain.Owner{Name: in.OwnerName, ID: in.OwnerID},
		UpdatedAt: now,
		CheckinAt: &now,
	}

	out, err := s.store.CheckinMedicalDevice(ctx, d)
	if err != nil {
		discardPhoto(ctx, s.photos, s.log, id)
		return nil, fmt.Errorf("checkin medical device: %w", err)
	}

	s.log.Info("medical device checked in", "id", id, "serial", out.Serial, "owner_id", out.Owner.ID)
	return out, nil
}

func (s *MedicalDeviceService) GetMedicalDevices(ctx context.Context, c domain.DeviceCriteria) ([]*domain.MedicalDevice, error) {
	return s.store.GetMedicalDevices(ctx, c)
}
