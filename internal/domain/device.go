package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DeviceType discriminates device variants in projections and history.
type DeviceType string

const (
	DeviceTypeComputer         DeviceType = "computer"
	DeviceTypeFrequentComputer DeviceType = "frequent-computer"
	DeviceTypeMedicalDevice    DeviceType = "medical-device"
)

func (t DeviceType) Valid() bool {
	switch t {
	case DeviceTypeComputer, DeviceTypeFrequentComputer, DeviceTypeMedicalDevice:
		return true
	}
	return false
}

type Owner struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type Computer struct {
	ID         string     `json:"id"`
	Brand      string     `json:"brand"`
	Model      string     `json:"model"`
	Color      string     `json:"color,omitempty"`
	PhotoURL   string     `json:"photoURL,omitempty"`
	Owner      Owner      `json:"owner"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	CheckinAt  *time.Time `json:"checkinAt,omitempty"`
	CheckoutAt *time.Time `json:"checkoutAt,omitempty"`
}

// Entered reports whether the computer is currently on site.
func (c *Computer) Entered() bool {
	return entered(c.CheckinAt, c.CheckoutAt)
}

type FrequentComputer struct {
	Device      Computer `json:"device"`
	CheckinURL  string   `json:"checkinURL,omitempty"`
	CheckoutURL string   `json:"checkoutURL,omitempty"`
}

type MedicalDevice struct {
	ID         string     `json:"id"`
	Brand      string     `json:"brand"`
	Model      string     `json:"model"`
	Serial     string     `json:"serial"`
	PhotoURL   string     `json:"photoURL"`
	Owner      Owner      `json:"owner"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	CheckinAt  *time.Time `json:"checkinAt,omitempty"`
	CheckoutAt *time.Time `json:"checkoutAt,omitempty"`
}

// Validate enforces the traceability fields every stored medical device carries.
func (d *MedicalDevice) Validate() error {
	if strings.TrimSpace(d.Serial) == "" {
		return fmt.Errorf("%w: medical device serial is required", ErrInvalidInput)
	}
	if strings.TrimSpace(d.PhotoURL) == "" {
		return fmt.Errorf("%w: medical device photo is required", ErrInvalidInput)
	}
	return nil
}

func (d *MedicalDevice) Entered() bool {
	return entered(d.CheckinAt, d.CheckoutAt)
}

// EnteredDevice is the read projection of a device currently on site.
type EnteredDevice struct {
	ID         string     `json:"id"`
	Type       DeviceType `json:"type"`
	Brand      string     `json:"brand"`
	Model      string     `json:"model"`
	Color      string     `json:"color,omitempty"`
	Serial     string     `json:"serial,omitempty"`
	PhotoURL   string     `json:"photoURL,omitempty"`
	Owner      Owner      `json:"owner"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	CheckinAt  *time.Time `json:"checkinAt,omitempty"`
	CheckoutAt *time.Time `json:"checkoutAt,omitempty"`
}

func entered(checkinAt, checkoutAt *time.Time) bool {
	return checkinAt != nil && checkoutAt == nil
}

// DeviceStore is the persistence port for every device variant. Mutating
// calls serialize per id and re-check their guard inside the same unit of
// work that writes the change.
type DeviceStore interface {
	HistoryStore

	RegisterFrequentComputer(ctx context.Context, fc *FrequentComputer) (*FrequentComputer, error)
	GetComputers(ctx context.Context, c DeviceCriteria) ([]*Computer, error)
	GetMedicalDevices(ctx context.Context, c DeviceCriteria) ([]*MedicalDevice, error)
	GetFrequentComputers(ctx context.Context, c DeviceCriteria) ([]*FrequentComputer, error)
	GetEnteredDevices(ctx context.Context, c DeviceCriteria) ([]*EnteredDevice, error)
	CheckinComputer(ctx context.Context, c *Computer) (*Computer, error)
	CheckinMedicalDevice(ctx context.Context, d *MedicalDevice) (*MedicalDevice, error)
	CheckinFrequentComputer(ctx context.Context, id string, at time.Time) (*FrequentComputer, error)
	CheckoutDevice(ctx context.Context, id string, at time.Time) error
	IsDeviceEntered(ctx context.Context, id string) (bool, error)
	IsFrequentComputerRegistered(ctx context.Context, id string) (bool, error)
}
