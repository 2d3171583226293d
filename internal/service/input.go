package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

const (
	minBrandLen     = 2
	minModelLen     = 2
	minOwnerNameLen = 3
	minOwnerIDLen   = 3
	minSerialLen    = 3
)

// ComputerInput is a computer check-in or frequent registration request.
type ComputerInput struct {
	Brand     string
	Model     string
	Color     string
	OwnerName string
	OwnerID   string
	Photo     *storage.Photo
}

// MedicalDeviceInput is a medical device check-in request. Serial and
// photo are mandatory.
type MedicalDeviceInput struct {
	Brand     string
	Model     string
	Serial    string
	OwnerName string
	OwnerID   string
	Photo     *storage.Photo
}

func (in *ComputerInput) validate() error {
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	in.Color = strings.TrimSpace(in.Color)
	in.OwnerName = strings.TrimSpace(in.OwnerName)
	in.OwnerID = strings.TrimSpace(in.OwnerID)

	var problems []string
	problems = checkLen(problems, "brand", in.Brand, minBrandLen)
	problems = checkLen(problems, "model", in.Model, minModelLen)
	problems = checkLen(problems, "ownerName", in.OwnerName, minOwnerNameLen)
	problems = checkLen(problems, "ownerId", in.OwnerID, minOwnerIDLen)
	return invalid(problems)
}

func (in *ComputerInput) computer(id string, now time.Time) domain.Computer {
	return domain.Computer{
		ID:        id,
		Brand:     in.Brand,
		Model:     in.Model,
		Color:     in.Color,
		Owner:     domain.Owner{Name: in.OwnerName, ID: in.OwnerID},
		UpdatedAt: now,
	}
}

func (in *MedicalDeviceInput) validate() error {
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	in.Serial = strings.TrimSpace(in.Serial)
	in.OwnerName = strings.TrimSpace(in.OwnerName)
	in.OwnerID = strings.TrimSpace(in.OwnerID)

	var problems []string
	problems = checkLen(problems, "brand", in.Brand, minBrandLen)
	problems = checkLen(problems, "model", in.Model, minModelLen)
	problems = checkLen(problems, "serial", in.Serial, minSerialLen)
	problems = checkLen(problems, "ownerName", in.OwnerName, minOwnerNameLen)
	problems = checkLen(problems, "ownerId", in.OwnerID, minOwnerIDLen)
	if in.Photo == nil {
		problems = append(problems, "photo is required")
	}
	return invalid(problems)
}

func checkLen(problems []string, field, value string, minLen int) []string {
	if utf8.RuneCountInString(value) < minLen {
		return append(problems, fmt.Sprintf("%s must be at least %d characters", field, minLen))
	}
	return problems
}

func invalid(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
}
