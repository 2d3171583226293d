package management

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/service"
)

type PhotoHandler struct {
	photoSvc *service.PhotoService
	log      *slog.Logger
}

func NewPhotoHandler(photoSvc *service.PhotoService, log *slog.Logger) *PhotoHandler {
	return &PhotoHandler{photoSvc: photoSvc, log: log}
}

// Redirect sends the client to the stored photo of a device. The optional
// ext query parameter selects the file extension.
func (h *PhotoHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	url, err := h.photoSvc.URL(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("ext"))
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to look up photo")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
