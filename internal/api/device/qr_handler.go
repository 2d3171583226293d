package device

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/service"
)

type QRHandler struct {
	qrSvc *service.QRService
	log   *slog.Logger
}

func NewQRHandler(qrSvc *service.QRService, log *slog.Logger) *QRHandler {
	return &QRHandler{qrSvc: qrSvc, log: log}
}

type qrCode struct {
	URL   string `json:"url"`
	Image string `json:"image"`
}

type qrPair struct {
	ID       string `json:"id"`
	Checkin  qrCode `json:"checkin"`
	Checkout qrCode `json:"checkout"`
}

// Pair returns both codes as PNG data URLs.
func (h *QRHandler) Pair(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	checkin, checkout, err := h.qrSvc.Codes(r.Context(), id)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to render qr codes")
		return
	}
	response.JSON(w, http.StatusOK, qrPair{
		ID:       id,
		Checkin:  dataURL(checkin),
		Checkout: dataURL(checkout),
	})
}

// Image returns one code as a raw PNG.
func (h *QRHandler) Image(w http.ResponseWriter, r *http.Request) {
	kind := service.QRKind(chi.URLParam(r, "kind"))
	if kind != service.QRKindCheckin && kind != service.QRKindCheckout {
		response.ServiceError(w, r, h.log, fmt.Errorf("%w: unknown qr kind %q", domain.ErrInvalidInput, kind), "")
		return
	}
	code, err := h.qrSvc.Code(r.Context(), chi.URLParam(r, "id"), kind)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to render qr code")
		return
	}
	response.PNG(w, code.PNG)
}

func dataURL(c *service.QRCode) qrCode {
	return qrCode{
		URL:   c.URL,
		Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(c.PNG),
	}
}
