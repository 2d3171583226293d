package management

import (
	"log/slog"
	"net/http"

	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/criteria"
	"github.com/CaioWing/checkpoint/internal/service"
)

type ComputerHandler struct {
	computerSvc *service.ComputerService
	log         *slog.Logger
}

func NewComputerHandler(computerSvc *service.ComputerService, log *slog.Logger) *ComputerHandler {
	return &ComputerHandler{computerSvc: computerSvc, log: log}
}

func (h *ComputerHandler) input(w http.ResponseWriter, r *http.Request) (service.ComputerInput, func(), bool) {
	form, err := parseDeviceForm(w, r)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to read form")
		return service.ComputerInput{}, nil, false
	}
	return service.ComputerInput{
		Brand:     form.brand,
		Model:     form.model,
		Color:     form.color,
		OwnerName: form.ownerName,
		OwnerID:   form.ownerID,
		Photo:     form.photo,
	}, form.Close, true
}

func (h *ComputerHandler) RegisterFrequent(w http.ResponseWriter, r *http.Request) {
	in, done, ok := h.input(w, r)
	if !ok {
		return
	}
	defer done()

	fc, err := h.computerSvc.RegisterFrequentComputer(r.Context(), in)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to register frequent computer")
		return
	}
	response.JSON(w, http.StatusCreated, fc)
}

func (h *ComputerHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	in, done, ok := h.input(w, r)
	if !ok {
		return
	}
	defer done()

	c, err := h.computerSvc.CheckinComputer(r.Context(), in)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to check computer in")
		return
	}
	response.JSON(w, http.StatusCreated, c)
}

func (h *ComputerHandler) List(w http.ResponseWriter, r *http.Request) {
	c, err := criteria.Validate(r.URL.Query())
	if err != nil {
		response.ServiceError(w, r, h.log, err, "invalid criteria")
		return
	}
	computers, err := h.computerSvc.GetComputers(r.Context(), c)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to list computers")
		return
	}
	response.JSON(w, http.StatusOK, computers)
}

func (h *ComputerHandler) ListFrequent(w http.ResponseWriter, r *http.Request) {
	c, err := criteria.Validate(r.URL.Query())
	if err != nil {
		response.ServiceError(w, r, h.log, err, "invalid criteria")
		return
	}
	computers, err := h.computerSvc.GetFrequentComputers(r.Context(), c)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to list frequent computers")
		return
	}
	response.JSON(w, http.StatusOK, computers)
}
