// Package memory is an in-process domain.DeviceStore. Every mutation runs
// under a single lock, so check-in and checkout guards are evaluated against
// the state they modify.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/CaioWing/checkpoint/internal/domain"
)

type frequentRow struct {
	checkinURL  string
	checkoutURL string
}

type DeviceStore struct {
	mu        sync.RWMutex
	index     map[string]domain.DeviceType
	computers map[string]*domain.Computer
	frequent  map[string]frequentRow
	medical   map[string]*domain.MedicalDevice
	history   []*domain.DeviceHistoryEntry
}

var _ domain.DeviceStore = (*DeviceStore)(nil)

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{
		index:     make(map[string]domain.DeviceType),
		computers: make(map[string]*domain.Computer),
		frequent:  make(map[string]frequentRow),
		medical:   make(map[string]*domain.MedicalDevice),
	}
}

func (s *DeviceStore) RegisterFrequentComputer(_ context.Context, fc *domain.FrequentComputer) (*domain.FrequentComputer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := fc.Device
	if err := s.claim(c.ID, domain.DeviceTypeComputer); err != nil {
		return nil, err
	}
	if prev, ok := s.computers[c.ID]; ok {
		if c.PhotoURL == "" {
			c.PhotoURL = prev.PhotoURL
		}
		if c.CheckinAt == nil {
			c.CheckinAt, c.CheckoutAt = prev.CheckinAt, prev.CheckoutAt
		}
	}
	s.computers[c.ID] = cloneComputer(&c)
	s.frequent[c.ID] = frequentRow{checkinURL: fc.CheckinURL, checkoutURL: fc.CheckoutURL}

	return s.frequentLocked(c.ID), nil
}

func (s *DeviceStore) CheckinComputer(_ context.Context, c *domain.Computer) (*domain.Computer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.claim(c.ID, domain.DeviceTypeComputer); err != nil {
		return nil, err
	}

	next := cloneComputer(c)
	if prev, ok := s.computers[c.ID]; ok {
		if next.PhotoURL == "" {
			next.PhotoURL = prev.PhotoURL
		}
		if c.CheckinAt == nil {
			next.CheckinAt, next.CheckoutAt = prev.CheckinAt, prev.CheckoutAt
		} else if err := domain.CheckCheckin(prev.CheckinAt, prev.CheckoutAt, *c.CheckinAt); err != nil {
			return nil, err
		}
	}
	s.computers[c.ID] = next

	if next.CheckinAt != nil {
		s.history = append(s.history, domain.ComputerHistoryEntry(next, s.computerTypeLocked(c.ID),
			domain.HistoryEventCheckin, *next.CheckinAt))
	}
	return cloneComputer(next), nil
}

func (s *DeviceStore) CheckinMedicalDevice(_ context.Context, d *domain.MedicalDevice) (*domain.MedicalDevice, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.claim(d.ID, domain.DeviceTypeMedicalDevice); err != nil {
		return nil, err
	}

	next := cloneMedical(d)
	if prev, ok := s.medical[d.ID]; ok {
		if d.CheckinAt == nil {
			next.CheckinAt, next.CheckoutAt = prev.CheckinAt, prev.CheckoutAt
		} else if err := domain.CheckCheckin(prev.CheckinAt, prev.CheckoutAt, *d.CheckinAt); err != nil {
			return nil, err
		}
	}
	s.medical[d.ID] = next

	if next.CheckinAt != nil {
		s.history = append(s.history, domain.MedicalDeviceHistoryEntry(next, domain.HistoryEventCheckin, *next.CheckinAt))
	}
	return cloneMedical(next), nil
}

func (s *DeviceStore) CheckinFrequentComputer(_ context.Context, id string, at time.Time) (*domain.FrequentComputer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.frequent[id]; !ok {
		return nil, fmt.Errorf("%w: frequent computer %s", domain.ErrNotFound, id)
	}
	c := s.computers[id]
	if err := domain.CheckCheckin(c.CheckinAt, c.CheckoutAt, at); err != nil {
		return nil, err
	}

	c.CheckinAt = &at
	c.CheckoutAt = nil
	c.UpdatedAt = at
	s.history = append(s.history, domain.ComputerHistoryEntry(c, domain.DeviceTypeFrequentComputer,
		domain.HistoryEventCheckin, at))

	return s.frequentLocked(id), nil
}

func (s *DeviceStore) CheckoutDevice(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.index[id] {
	case domain.DeviceTypeComputer:
		c := s.computers[id]
		if err := domain.CheckCheckout(c.CheckinAt, c.CheckoutAt, at); err != nil {
			return err
		}
		c.CheckoutAt = &at
		c.UpdatedAt = at
		s.history = append(s.history, domain.ComputerHistoryEntry(c, s.computerTypeLocked(id),
			domain.HistoryEventCheckout, at))

	case domain.DeviceTypeMedicalDevice:
		d := s.medical[id]
		if err := domain.CheckCheckout(d.CheckinAt, d.CheckoutAt, at); err != nil {
			return err
		}
		d.CheckoutAt = &at
		d.UpdatedAt = at
		s.history = append(s.history, domain.MedicalDeviceHistoryEntry(d, domain.HistoryEventCheckout, at))

	default:
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
	}
	return nil
}

func (s *DeviceStore) IsDeviceEntered(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.computers[id]; ok {
		return c.Entered(), nil
	}
	if d, ok := s.medical[id]; ok {
		return d.Entered(), nil
	}
	return false, nil
}

func (s *DeviceStore) IsFrequentComputerRegistered(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.frequent[id]
	return ok, nil
}

func (s *DeviceStore) GetComputers(_ context.Context, c domain.DeviceCriteria) ([]*domain.Computer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]row[*domain.Computer], 0, len(s.computers))
	for id, comp := range s.computers {
		rows = append(rows, row[*domain.Computer]{
			rec:  computerRecord(comp, s.computerTypeLocked(id)),
			item: cloneComputer(comp),
		})
	}
	return apply(computerView, rows, c)
}

func (s *DeviceStore) GetMedicalDevices(_ context.Context, c domain.DeviceCriteria) ([]*domain.MedicalDevice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]row[*domain.MedicalDevice], 0, len(s.medical))
	for _, d := range s.medical {
		rows = append(rows, row[*domain.MedicalDevice]{rec: medicalRecord(d), item: cloneMedical(d)})
	}
	return apply(medicalView, rows, c)
}

func (s *DeviceStore) GetFrequentComputers(_ context.Context, c domain.DeviceCriteria) ([]*domain.FrequentComputer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]row[*domain.FrequentComputer], 0, len(s.frequent))
	for id := range s.frequent {
		rows = append(rows, row[*domain.FrequentComputer]{
			rec:  computerRecord(s.computers[id], domain.DeviceTypeFrequentComputer),
			item: s.frequentLocked(id),
		})
	}
	return apply(computerView, rows, c)
}

func (s *DeviceStore) GetEnteredDevices(_ context.Context, c domain.DeviceCriteria) ([]*domain.EnteredDevice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []row[*domain.EnteredDevice]
	for id, comp := range s.computers {
		if !comp.Entered() {
			continue
		}
		t := s.computerTypeLocked(id)
		rows = append(rows, row[*domain.EnteredDevice]{
			rec: computerRecord(comp, t),
			item: &domain.EnteredDevice{
				ID: comp.ID, Type: t, Brand: comp.Brand, Model: comp.Model, Color: comp.Color,
				PhotoURL: comp.PhotoURL, Owner: comp.Owner, UpdatedAt: comp.UpdatedAt,
				CheckinAt: cloneTime(comp.CheckinAt),
			},
		})
	}
	for _, d := range s.medical {
		if !d.Entered() {
			continue
		}
		rows = append(rows, row[*domain.EnteredDevice]{
			rec: medicalRecord(d),
			item: &domain.EnteredDevice{
				ID: d.ID, Type: domain.DeviceTypeMedicalDevice, Brand: d.Brand, Model: d.Model, Serial: d.Serial,
				PhotoURL: d.PhotoURL, Owner: d.Owner, UpdatedAt: d.UpdatedAt,
				CheckinAt: cloneTime(d.CheckinAt),
			},
		})
	}
	return apply(enteredView, rows, c)
}

func (s *DeviceStore) GetDeviceHistory(_ context.Context, f *domain.DeviceHistoryFilters) ([]*domain.DeviceHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := []*domain.DeviceHistoryEntry{}
	// Walk newest first so equal event dates keep the most recent write on top.
	for i := len(s.history) - 1; i >= 0; i-- {
		e := s.history[i]
		if f.Matches(e) {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EventDate.After(entries[j].EventDate)
	})

	if f != nil {
		entries = paginate(entries, f.Offset, f.Limit)
	}
	return entries, nil
}

// claim records id under variant t, failing when it belongs to the other one.
func (s *DeviceStore) claim(id string, t domain.DeviceType) error {
	if id == "" {
		return fmt.Errorf("%w: device id is required", domain.ErrInvalidInput)
	}
	if existing, ok := s.index[id]; ok && existing != t {
		return fmt.Errorf("%w: id %s is already used by a %s", domain.ErrConflict, id, existing)
	}
	s.index[id] = t
	return nil
}

func (s *DeviceStore) computerTypeLocked(id string) domain.DeviceType {
	if _, ok := s.frequent[id]; ok {
		return domain.DeviceTypeFrequentComputer
	}
	return domain.DeviceTypeComputer
}

func (s *DeviceStore) frequentLocked(id string) *domain.FrequentComputer {
	f := s.frequent[id]
	return &domain.FrequentComputer{
		Device:      *cloneComputer(s.computers[id]),
		CheckinURL:  f.checkinURL,
		CheckoutURL: f.checkoutURL,
	}
}

func paginate[T any](items []T, offset, limit *int) []T {
	start := 0
	if offset != nil && *offset > 0 {
		start = min(*offset, len(items))
	}
	end := len(items)
	if limit != nil && *limit >= 0 {
		end = min(start+*limit, end)
	}
	return items[start:end]
}

func cloneComputer(c *domain.Computer) *domain.Computer {
	cp := *c
	cp.CheckinAt = cloneTime(c.CheckinAt)
	cp.CheckoutAt = cloneTime(c.CheckoutAt)
	return &cp
}

func cloneMedical(d *domain.MedicalDevice) *domain.MedicalDevice {
	cp := *d
	cp.CheckinAt = cloneTime(d.CheckinAt)
	cp.CheckoutAt = cloneTime(d.CheckoutAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
