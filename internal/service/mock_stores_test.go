package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/repository/memory"
	"github.com/CaioWing/checkpoint/internal/storage"
)

// --- Mock Device Store ---

// mockDeviceStore wraps the in-memory store and lets tests inject failures
// and stale guard answers.
type mockDeviceStore struct {
	*memory.DeviceStore

	mu            sync.Mutex
	writeErr      error
	staleEntered  bool
	checkoutCalls int
	checkinCalls  int
}

func newMockDeviceStore() *mockDeviceStore {
	return &mockDeviceStore{DeviceStore: memory.NewDeviceStore()}
}

func (m *mockDeviceStore) failWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *mockDeviceStore) err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeErr
}

func (m *mockDeviceStore) RegisterFrequentComputer(ctx context.Context, fc *domain.FrequentComputer) (*domain.FrequentComputer, error) {
	if err := m.err(); err != nil {
		return nil, err
	}
	return m.DeviceStore.RegisterFrequentComputer(ctx, fc)
}

func (m *mockDeviceStore) CheckinComputer(ctx context.Context, c *domain.Computer) (*domain.Computer, error) {
	m.mu.Lock()
	m.checkinCalls++
	m.mu.Unlock()
	if err := m.err(); err != nil {
		return nil, err
	}
	return m.DeviceStore.CheckinComputer(ctx, c)
}

func (m *mockDeviceStore) CheckinMedicalDevice(ctx context.Context, d *domain.MedicalDevice) (*domain.MedicalDevice, error) {
	m.mu.Lock()
	m.checkinCalls++
	m.mu.Unlock()
	if err := m.err(); err != nil {
		return nil, err
	}
	return m.DeviceStore.CheckinMedicalDevice(ctx, d)
}

func (m *mockDeviceStore) IsDeviceEntered(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	stale := m.staleEntered
	m.mu.Unlock()
	if stale {
		return true, nil
	}
	return m.DeviceStore.IsDeviceEntered(ctx, id)
}

func (m *mockDeviceStore) CheckoutDevice(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	m.checkoutCalls++
	m.mu.Unlock()
	return m.DeviceStore.CheckoutDevice(ctx, id, at)
}

// --- Mock Photo Store ---

type mockPhotoStore struct {
	mu      sync.Mutex
	photos  map[string][]byte
	saveErr error
	deleted []string
}

func newMockPhotoStore() *mockPhotoStore {
	return &mockPhotoStore{photos: make(map[string][]byte)}
}

func (m *mockPhotoStore) Save(_ context.Context, photo *storage.Photo, deviceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(photo.Body)
	if err != nil {
		return "", err
	}
	name := storage.ObjectName(deviceID, photo.Extension())
	m.photos[deviceID] = data
	return "http://photos.test/" + name, nil
}

func (m *mockPhotoStore) Delete(_ context.Context, deviceID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, deviceID)
	if _, ok := m.photos[deviceID]; !ok {
		return false
	}
	delete(m.photos, deviceID)
	return true
}

func (m *mockPhotoStore) Lookup(_ context.Context, deviceID, ext string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.photos[deviceID]; !ok {
		return "", false
	}
	return "http://photos.test/" + storage.ObjectName(deviceID, ext), true
}

func (m *mockPhotoStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.photos)
}
