package service

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/CaioWing/checkpoint/internal/domain"
)

type QRKind string

const (
	QRKindCheckin  QRKind = "checkin"
	QRKindCheckout QRKind = "checkout"

	defaultQRSize = 256
)

var (
	checkinColor  = color.RGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}
	checkoutColor = color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}
)

type QRCode struct {
	Kind QRKind `json:"kind"`
	URL  string `json:"url"`
	PNG  []byte `json:"-"`
}

// QRService renders the scan links a frequent computer was registered with
// as QR codes.
type QRService struct {
	store domain.DeviceStore
	size  int
	log   *slog.Logger
}

func NewQRService(store domain.DeviceStore, log *slog.Logger) *QRService {
	return &QRService{store: store, size: defaultQRSize, log: log}
}

// Code renders one scan link of a registered frequent computer.
func (s *QRService) Code(ctx context.Context, id string, kind QRKind) (*QRCode, error) {
	if kind != QRKindCheckin && kind != QRKindCheckout {
		return nil, fmt.Errorf("%w: unknown qr code kind %q", domain.ErrInvalidInput, kind)
	}
	fc, err := s.registration(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(fc, kind)
}

// Codes renders both scan links of a registered frequent computer.
func (s *QRService) Codes(ctx context.Context, id string) (checkin, checkout *QRCode, err error) {
	fc, err := s.registration(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var g errgroup.Group
	g.Go(func() error {
		var err error
		checkin, err = s.render(fc, QRKindCheckin)
		return err
	})
	g.Go(func() error {
		var err error
		checkout, err = s.render(fc, QRKindCheckout)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return checkin, checkout, nil
}

// registration loads the stored frequent computer. Its links are fixed at
// registration and never re-derived.
func (s *QRService) registration(ctx context.Context, id string) (*domain.FrequentComputer, error) {
	found, err := s.store.GetFrequentComputers(ctx, domain.DeviceCriteria{
		FilterBy: &domain.FilterQuery{Field: domain.FieldID, Value: id},
	})
	if err != nil {
		return nil, fmt.Errorf("lookup frequent computer: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: frequent computer %s", domain.ErrDeviceNotFound, id)
	}
	return found[0], nil
}

func (s *QRService) render(fc *domain.FrequentComputer, kind QRKind) (*QRCode, error) {
	link, fg := fc.CheckinURL, checkinColor
	if kind == QRKindCheckout {
		link, fg = fc.CheckoutURL, checkoutColor
	}
	if link == "" {
		return nil, fmt.Errorf("%w: frequent computer %s has no %s link", domain.ErrStorage, fc.Device.ID, kind)
	}

	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	q.ForegroundColor = fg
	q.BackgroundColor = color.White

	png, err := q.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return &QRCode{Kind: kind, URL: link, PNG: png}, nil
}
