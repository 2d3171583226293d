package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

type ComputerService struct {
	store  domain.DeviceStore
	photos storage.PhotoStore
	links  *Links
	log    *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewComputerService(store domain.DeviceStore, photos storage.PhotoStore, links *Links, log *slog.Logger) *ComputerService {
	return &ComputerService{
		store:  store,
		photos: photos,
		links:  links,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// RegisterFrequentComputer enrolls a computer for repeat check-in through
// its scan links. The computer is not checked in by registration.
func (s *ComputerService) RegisterFrequentComputer(ctx context.Context, in ComputerInput) (*domain.FrequentComputer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	id := s.newID()
	fc := &domain.FrequentComputer{
		Device:      in.computer(id, s.now()),
		CheckinURL:  s.links.FrequentCheckin(id),
		CheckoutURL: s.links.Checkout(id),
	}

	if in.Photo != nil {
		url, err := savePhoto(ctx, s.photos, in.Photo, id)
		if err != nil {
			return nil, err
		}
		fc.Device.PhotoURL = url
	}

	out, err := s.store.RegisterFrequentComputer(ctx, fc)
	if err != nil {
		if in.Photo != nil {
			discardPhoto(ctx, s.photos, s.log, id)
		}
		return nil, fmt.Errorf("register frequent computer: %w", err)
	}

	s.log.Info("frequent computer registered", "id", id, "brand", out.Device.Brand, "owner_id", out.Device.Owner.ID)
	return out, nil
}

// CheckinComputer records a one-shot visit of a computer.
func (s *ComputerService) CheckinComputer(ctx context.Context, in ComputerInput) (*domain.Computer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	id := s.newID()
	now := s.now()
	c := in.computer(id, now)
	c.CheckinAt = &now

	if in.Photo != nil {
		url, err := savePhoto(ctx, s.photos, in.Photo, id)
		if err != nil {
			return nil, err
		}
		c.PhotoURL = url
	}

	out, err := s.store.CheckinComputer(ctx, &c)
	if err != nil {
		if in.Photo != nil {
			discardPhoto(ctx, s.photos, s.log, id)
		}
		return nil, fmt.Errorf("checkin computer: %w", err)
	}

	s.log.Info("computer checked in", "id", id, "owner_id", out.Owner.ID)
	return out, nil
}

// CheckinFrequentComputer checks a registered frequent computer in by id.
func (s *ComputerService) CheckinFrequentComputer(ctx context.Context, id string) (*domain.FrequentComputer, error) {
	registered, err := s.store.IsFrequentComputerRegistered(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup frequent computer: %w", err)
	}
	if !registered {
		return nil, fmt.Errorf("%w: frequent computer %s", domain.ErrDeviceNotFound, id)
	}

	fc, err := s.store.CheckinFrequentComputer(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: frequent computer %s", domain.ErrDeviceNotFound, id)
		}
		return nil, fmt.Errorf("checkin frequent computer: %w", err)
	}

	s.log.Info("frequent computer checked in", "id", id)
	return fc, nil
}

func (s *ComputerService) GetComputers(ctx context.Context, c domain.DeviceCriteria) ([]*domain.Computer, error) {
	return s.store.GetComputers(ctx, c)
}

func (s *ComputerService) GetFrequentComputers(ctx context.Context, c domain.DeviceCriteria) ([]*domain.FrequentComputer, error) {
	return s.store.GetFrequentComputers(ctx, c)
}
