package management

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

const maxUploadSize = 10 << 20

// deviceForm is a parsed check-in form. Close releases the uploaded file.
type deviceForm struct {
	brand     string
	model     string
	color     string
	serial    string
	ownerName string
	ownerID   string
	photo     *storage.Photo
	file      multipart.File
}

func (f *deviceForm) Close() {
	if f.file != nil {
		f.file.Close()
	}
}

// parseDeviceForm accepts multipart/form-data with an optional "photo" file
// part, or a plain urlencoded form without one.
func parseDeviceForm(w http.ResponseWriter, r *http.Request) (*deviceForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("%w: parse form: %v", domain.ErrInvalidInput, err)
		}
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: parse form: %v", domain.ErrInvalidInput, err)
		}
	}

	f := &deviceForm{
		brand:     r.FormValue("brand"),
		model:     r.FormValue("model"),
		color:     r.FormValue("color"),
		serial:    r.FormValue("serial"),
		ownerName: r.FormValue("ownerName"),
		ownerID:   r.FormValue("ownerId"),
	}

	file, header, err := r.FormFile("photo")
	switch {
	case err == nil:
		f.file = file
		f.photo = &storage.Photo{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return nil, fmt.Errorf("%w: read photo: %v", domain.ErrInvalidInput, err)
	}
	return f, nil
}
