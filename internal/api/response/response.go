package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/CaioWing/checkpoint/internal/domain"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// StatusFor maps a service error onto its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDeviceNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyEntered):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError writes err with its mapped status. Internal failures are
// logged and replaced by fallback so storage details never reach clients.
func ServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.ErrorContext(r.Context(), fallback, "err", err, "path", r.URL.Path)
		Error(w, status, fallback)
		return
	}
	Error(w, status, err.Error())
}

func PNG(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
