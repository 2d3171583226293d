package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

func TestPhotoService_URL(t *testing.T) {
	photos := newMockPhotoStore()
	ctx := context.Background()
	if _, err := photos.Save(ctx, &storage.Photo{Name: "front.png", Body: strings.NewReader("img")}, "dev-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	svc := NewPhotoService(photos)

	url, err := svc.URL(ctx, "dev-1", "")
	if err != nil {
		t.Fatalf("expected photo url, got %v", err)
	}
	if url != "http://photos.test/dev-1.png" {
		t.Errorf("expected default png extension, got %s", url)
	}

	_, err = svc.URL(ctx, "dev-2", "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
