package management

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/criteria"
	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/service"
)

// DeviceHandler serves the cross-variant views: what is on the premises
// now and the transition history.
type DeviceHandler struct {
	deviceSvc  *service.DeviceService
	historySvc *service.HistoryService
	log        *slog.Logger
}

func NewDeviceHandler(deviceSvc *service.DeviceService, historySvc *service.HistoryService, log *slog.Logger) *DeviceHandler {
	return &DeviceHandler{deviceSvc: deviceSvc, historySvc: historySvc, log: log}
}

func (h *DeviceHandler) ListEntered(w http.ResponseWriter, r *http.Request) {
	c, err := criteria.Validate(r.URL.Query())
	if err != nil {
		response.ServiceError(w, r, h.log, err, "invalid criteria")
		return
	}
	devices, err := h.deviceSvc.GetEnteredDevices(r.Context(), c)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to list entered devices")
		return
	}
	response.JSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) History(w http.ResponseWriter, r *http.Request) {
	f, err := parseHistoryFilters(r.URL.Query())
	if err != nil {
		response.ServiceError(w, r, h.log, err, "invalid history filters")
		return
	}
	entries, err := h.historySvc.GetDeviceHistory(r.Context(), f)
	if err != nil {
		response.ServiceError(w, r, h.log, err, "failed to load device history")
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

func parseHistoryFilters(q url.Values) (*domain.DeviceHistoryFilters, error) {
	f := &domain.DeviceHistoryFilters{}

	if v := q.Get("deviceId"); v != "" {
		f.DeviceID = &v
	}
	if v := q.Get("ownerId"); v != "" {
		f.OwnerID = &v
	}
	if v := q.Get("deviceType"); v != "" {
		t := domain.DeviceType(v)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown deviceType %q", domain.ErrInvalidInput, v)
		}
		f.DeviceType = &t
	}
	if v := q.Get("event"); v != "" {
		e := domain.HistoryEvent(v)
		if !e.Valid() {
			return nil, fmt.Errorf("%w: unknown event %q", domain.ErrInvalidInput, v)
		}
		f.Event = &e
	}

	var err error
	if f.StartDate, err = parseDate(q, "startDate", false); err != nil {
		return nil, err
	}
	if f.EndDate, err = parseDate(q, "endDate", true); err != nil {
		return nil, err
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return nil, fmt.Errorf("%w: endDate is before startDate", domain.ErrInvalidInput)
	}

	if f.Limit, err = parseCount(q, "limit"); err != nil {
		return nil, err
	}
	if f.Offset, err = parseCount(q, "offset"); err != nil {
		return nil, err
	}
	return f, nil
}

// parseDate accepts RFC 3339 timestamps or bare dates. A bare end date
// covers the whole day.
func parseDate(q url.Values, key string, endOfDay bool) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD", domain.ErrInvalidInput, key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseCount(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
	}
	return &n, nil
}
