package service

import (
	"context"

	"github.com/CaioWing/checkpoint/internal/domain"
)

type HistoryService struct {
	store domain.HistoryStore
}

func NewHistoryService(store domain.HistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

func (s *HistoryService) GetDeviceHistory(ctx context.Context, f *domain.DeviceHistoryFilters) ([]*domain.DeviceHistoryEntry, error) {
	return s.store.GetDeviceHistory(ctx, f)
}
