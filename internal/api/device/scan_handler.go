// Package device serves the endpoints reached by scanning a frequent
// computer's QR codes at the gate, and the codes themselves.
package device

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/service"
)

type ScanHandler struct {
	computerSvc *service.ComputerService
	deviceSvc   *service.DeviceService
	log         *slog.Logger
}

func NewScanHandler(computerSvc *service.ComputerService, deviceSvc *service.DeviceService, log *slog.Logger) *ScanHandler {
	return &ScanHandler{computerSvc: computerSvc, deviceSvc: deviceSvc, log: log}
}

func (h *ScanHandler) CheckinFrequent(w http.ResponseWriter, r *http.Request) {
	fc, err := h.computerSvc.CheckinFrequentComputer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to check frequent computer in")
		return
	}
	response.JSON(w, http.StatusOK, fc)
}

func (h *ScanHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if err := h.deviceSvc.CheckoutDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.ServiceError(w, r, h.log, err, "failed to check device out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
