package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckCheckin validates a check-in at the given time against the device's
// current timestamps.
func CheckCheckin(checkinAt, checkoutAt *time.Time, at time.Time) error {
	if entered(checkinAt, checkoutAt) {
		return ErrAlreadyEntered
	}
	if checkoutAt != nil && !at.After(*checkoutAt) {
		return fmt.Errorf("%w: check-in must follow the last checkout at %s",
			ErrInvalidInput, checkoutAt.Format(time.RFC3339Nano))
	}
	return nil
}

// CheckCheckout validates a checkout at the given time. A device that is not
// entered yields ErrNotFound.
func CheckCheckout(checkinAt, checkoutAt *time.Time, at time.Time) error {
	if !entered(checkinAt, checkoutAt) {
		return fmt.Errorf("%w: device is not entered", ErrNotFound)
	}
	if at.Before(*checkinAt) {
		return fmt.Errorf("%w: checkout must not precede check-in at %s",
			ErrInvalidInput, checkinAt.Format(time.RFC3339Nano))
	}
	return nil
}

func ComputerHistoryEntry(c *Computer, t DeviceType, ev HistoryEvent, at time.Time) *DeviceHistoryEntry {
	return &DeviceHistoryEntry{
		ID:         uuid.NewString(),
		DeviceID:   c.ID,
		DeviceType: t,
		Brand:      c.Brand,
		Model:      c.Model,
		Owner:      c.Owner,
		Event:      ev,
		EventDate:  at,
		Color:      c.Color,
	}
}

func MedicalDeviceHistoryEntry(d *MedicalDevice, ev HistoryEvent, at time.Time) *DeviceHistoryEntry {
	return &DeviceHistoryEntry{
		ID:         uuid.NewString(),
		DeviceID:   d.ID,
		DeviceType: DeviceTypeMedicalDevice,
		Brand:      d.Brand,
		Model:      d.Model,
		Owner:      d.Owner,
		Event:      ev,
		EventDate:  at,
		Serial:     d.Serial,
	}
}
