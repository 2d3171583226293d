package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// DefaultExtension is assumed when looking up a photo without one.
const DefaultExtension = "png"

// Photo is an uploaded image on its way to a PhotoStore.
type Photo struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Extension returns the lower-case extension of the original file name
// without the leading dot.
func (p *Photo) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(p.Name), "."))
}

// Validate checks that the upload looks like an image with a usable name.
func (p *Photo) Validate() error {
	if p.Body == nil {
		return fmt.Errorf("photo body is empty")
	}
	if p.Extension() == "" {
		return fmt.Errorf("photo %q has no file extension", p.Name)
	}
	if p.ContentType != "" && p.ContentType != "application/octet-stream" &&
		!strings.HasPrefix(p.ContentType, "image/") {
		return fmt.Errorf("photo content type %q is not an image", p.ContentType)
	}
	return nil
}

// SafeID reports whether a device id can be used as an object name.
func SafeID(deviceID string) bool {
	return deviceID != "" && deviceID != "." && deviceID != ".." &&
		!strings.ContainsAny(deviceID, "/\\")
}

// ObjectName is the key a device photo is stored under.
func ObjectName(deviceID, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	return deviceID + "." + strings.TrimPrefix(ext, ".")
}

// PhotoStore persists device photos keyed by device id. Save fails with
// domain.ErrUploadFailed. Delete and Lookup are best effort and report
// absence instead of failing.
type PhotoStore interface {
	Save(ctx context.Context, photo *Photo, deviceID string) (string, error)
	Delete(ctx context.Context, deviceID string) bool
	Lookup(ctx context.Context, deviceID, ext string) (string, bool)
}
