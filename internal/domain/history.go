package domain

import (
	"context"
	"time"
)

type HistoryEvent string

const (
	HistoryEventCheckin  HistoryEvent = "checkin"
	HistoryEventCheckout HistoryEvent = "checkout"
)

func (e HistoryEvent) Valid() bool {
	return e == HistoryEventCheckin || e == HistoryEventCheckout
}

// DeviceHistoryEntry snapshots a device at the moment of a transition.
// Entries are never updated or deleted once written.
type DeviceHistoryEntry struct {
	ID         string       `json:"id"`
	DeviceID   string       `json:"deviceId"`
	DeviceType DeviceType   `json:"deviceType"`
	Brand      string       `json:"brand"`
	Model      string       `json:"model"`
	Owner      Owner        `json:"owner"`
	Event      HistoryEvent `json:"event"`
	EventDate  time.Time    `json:"eventDate"`
	Serial     string       `json:"serial,omitempty"`
	Color      string       `json:"color,omitempty"`
}

// DeviceHistoryFilters are conjunctive; nil fields impose no constraint.
// StartDate and EndDate are inclusive.
type DeviceHistoryFilters struct {
	DeviceID   *string
	DeviceType *DeviceType
	Event      *HistoryEvent
	StartDate  *time.Time
	EndDate    *time.Time
	OwnerID    *string
	Limit      *int
	Offset     *int
}

// Matches reports whether e satisfies every supplied predicate.
func (f *DeviceHistoryFilters) Matches(e *DeviceHistoryEntry) bool {
	if f == nil {
		return true
	}
	if f.DeviceID != nil && e.DeviceID != *f.DeviceID {
		return false
	}
	if f.DeviceType != nil && e.DeviceType != *f.DeviceType {
		return false
	}
	if f.Event != nil && e.Event != *f.Event {
		return false
	}
	if f.StartDate != nil && e.EventDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.EventDate.After(*f.EndDate) {
		return false
	}
	if f.OwnerID != nil && e.Owner.ID != *f.OwnerID {
		return false
	}
	return true
}

type HistoryStore interface {
	GetDeviceHistory(ctx context.Context, f *DeviceHistoryFilters) ([]*DeviceHistoryEntry, error)
}
