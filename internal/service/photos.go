package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

// savePhoto stores the photo before any record is written. Every failure is
// reported as domain.ErrUploadFailed.
func savePhoto(ctx context.Context, photos storage.PhotoStore, photo *storage.Photo, id string) (string, error) {
	url, err := photos.Save(ctx, photo, id)
	if err != nil {
		if !errors.Is(err, domain.ErrUploadFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
		}
		return "", fmt.Errorf("save photo: %w", err)
	}
	return url, nil
}

// discardPhoto removes a photo whose record could not be written.
func discardPhoto(ctx context.Context, photos storage.PhotoStore, log *slog.Logger, id string) {
	if !photos.Delete(context.WithoutCancel(ctx), id) {
		log.Warn("orphaned device photo left in store", "id", id)
	}
}

// PhotoService resolves where a device photo can be fetched from.
type PhotoService struct {
	photos storage.PhotoStore
}

func NewPhotoService(photos storage.PhotoStore) *PhotoService {
	return &PhotoService{photos: photos}
}

// URL returns the public URL of the photo stored for id under ext, which
// defaults to png.
func (s *PhotoService) URL(ctx context.Context, id, ext string) (string, error) {
	if ext == "" {
		ext = storage.DefaultExtension
	}
	url, ok := s.photos.Lookup(ctx, id, ext)
	if !ok {
		return "", fmt.Errorf("%w: no %s photo for device %s", domain.ErrNotFound, ext, id)
	}
	return url, nil
}
