package management

import (
	"log/slog"
	"net/http"

	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/criteria"
	"github.com/CaioWing/checkpoint/internal/service"
)

type MedicalDeviceHandler struct {
	medicalSvc *service.MedicalDeviceService
	log        *slog.Logger
}

func NewMedicalDeviceHandler(medicalSvc *service.MedicalDeviceService, log *slog.Logger) *MedicalDeviceHandler {
	return &MedicalDeviceHandler{medicalSvc: medicalSvc, log: log}
}

func (h *MedicalDeviceHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	form, err := parseDeviceForm(w, r)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to read form")
		return
	}
	defer form.Close()

	d, err := h.medicalSvc.CheckinMedicalDevice(r.Context(), service.MedicalDeviceInput{
		Brand:     form.brand,
		Model:     form.model,
		Serial:    form.serial,
		OwnerName: form.ownerName,
		OwnerID:   form.ownerID,
		Photo:     form.photo,
	})
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to check medical device in")
		return
	}
	response.JSON(w, http.StatusCreated, d)
}

func (h *MedicalDeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	c, err := criteria.Validate(r.URL.Query())
	if err != nil {
		response.ServiceError(w, r, h.log, err, "invalid criteria")
		return
	}
	devices, err := h.medicalSvc.GetMedicalDevices(r.Context(), c)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to list medical devices")
		return
	}
	response.JSON(w, http.StatusOK, devices)
}
