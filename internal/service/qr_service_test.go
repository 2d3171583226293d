package service

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/CaioWing/checkpoint/internal/domain"
)

func TestQRCodes_RegisteredComputer(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	fc, err := s.computers.RegisterFrequentComputer(ctx, validComputerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	qr := NewQRService(s.store, testLogger())
	checkin, checkout, err := qr.Codes(ctx, fc.Device.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checkin.URL != fc.CheckinURL || checkout.URL != fc.CheckoutURL {
		t.Fatalf("qr urls do not match registration: %s %s", checkin.URL, checkout.URL)
	}

	img, err := png.Decode(bytes.NewReader(checkin.PNG))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != defaultQRSize {
		t.Fatalf("expected %dpx image, got %d", defaultQRSize, img.Bounds().Dx())
	}
}

func TestQRCode_Guards(t *testing.T) {
	s := newTestServices(t)
	qr := NewQRService(s.store, testLogger())
	ctx := context.Background()

	if _, err := qr.Code(ctx, "missing", QRKindCheckin); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	if _, err := qr.Code(ctx, "missing", QRKind("wifi")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestQRCodes_UseRegisteredLinks(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	// Registered while the service was published under another host.
	oldLinks, err := NewLinks("https://old-gate.example.net/api/v1")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	registrar := NewComputerService(s.store, newMockPhotoStore(), oldLinks, testLogger())
	fc, err := registrar.RegisterFrequentComputer(ctx, validComputerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	qr := NewQRService(s.store, testLogger())
	checkin, checkout, err := qr.Codes(ctx, fc.Device.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.HasPrefix(checkin.URL, "https://checkpoint.example.com/") {
		t.Fatalf("qr link was re-derived from the current base url: %s", checkin.URL)
	}
	want := "https://old-gate.example.net/api/v1/computers/frequent/checkin/" + fc.Device.ID
	if checkin.URL != want {
		t.Fatalf("expected registered check-in link %s, got %s", want, checkin.URL)
	}
	if checkout.URL != fc.CheckoutURL {
		t.Fatalf("expected registered checkout link %s, got %s", fc.CheckoutURL, checkout.URL)
	}

	single, err := qr.Code(ctx, fc.Device.ID, QRKindCheckout)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if single.URL != fc.CheckoutURL {
		t.Fatalf("expected registered checkout link, got %s", single.URL)
	}
}
