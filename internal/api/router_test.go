package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaioWing/checkpoint/internal/api/management"
	"github.com/CaioWing/checkpoint/internal/auth"
	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/repository/memory"
	"github.com/CaioWing/checkpoint/internal/service"
	"github.com/CaioWing/checkpoint/internal/storage/local"
)

var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewDeviceStore()
	photos, err := local.New(t.TempDir(), "http://gate.test/api/v1/photos")
	require.NoError(t, err)
	links, err := service.NewLinks("http://gate.test/api/v1")
	require.NoError(t, err)

	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	authHandler, err := management.NewAuthHandler(jwtMgr, "ops@example.com", "hunter22")
	require.NoError(t, err)

	router := NewRouter(RouterDeps{
		ComputerSvc:      service.NewComputerService(store, photos, links, log),
		MedicalDeviceSvc: service.NewMedicalDeviceService(store, photos, log),
		DeviceSvc:        service.NewDeviceService(store, log),
		HistorySvc:       service.NewHistoryService(store),
		QRSvc:            service.NewQRService(store, log),
		PhotoSvc:         service.NewPhotoService(photos),
		AuthHandler:      authHandler,
		Authenticator:    auth.BearerAuthenticator(jwtMgr),
		Photos:           photos.Handler(),
		CORSOrigins:      []string{"http://localhost:3000"},
		Logger:           log,
	})

	ts := &testServer{t: t, srv: httptest.NewServer(router)}
	t.Cleanup(ts.srv.Close)
	ts.token = ts.login("ops@example.com", "hunter22")
	require.NotEmpty(t, ts.token)
	return ts
}

func (ts *testServer) login(email, password string) string {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(ts.srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

func (ts *testServer) do(method, path, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, body)
	require.NoError(ts.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+ts.token)
	resp, err := noRedirect.Do(req)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) form(path string, fields map[string]string, photo []byte) *http.Response {
	ts.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(ts.t, mw.WriteField(k, v))
	}
	if photo != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="photo"; filename="device.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(ts.t, err)
		part.Write(photo)
	}
	require.NoError(ts.t, mw.Close())
	return ts.do(http.MethodPost, path, mw.FormDataContentType(), &buf)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var laptop = map[string]string{
	"brand":     "Dell",
	"model":     "Latitude 5440",
	"color":     "black",
	"ownerName": "Ana Souza",
	"ownerId":   "EMP-0042",
}

func TestHealthAndAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Empty(t, ts.login("ops@example.com", "wrong"))

	resp, err = http.Get(ts.srv.URL + "/api/v1/computers")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/v1/auth/refresh", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFrequentComputerFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.form("/api/v1/computers/frequent", laptop, []byte("\x89PNG fake"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	fc := decode[domain.FrequentComputer](t, resp)
	id := fc.Device.ID
	assert.Equal(t, "http://gate.test/api/v1/computers/frequent/checkin/"+id, fc.CheckinURL)
	assert.Equal(t, "http://gate.test/api/v1/devices/checkout/"+id, fc.CheckoutURL)
	assert.Equal(t, "http://gate.test/api/v1/photos/"+id+".png", fc.Device.PhotoURL)
	assert.Nil(t, fc.Device.CheckinAt)

	photo := ts.do(http.MethodGet, "/api/v1/photos/"+id+".png", "", nil)
	assert.Equal(t, http.StatusOK, photo.StatusCode)

	listing := ts.do(http.MethodGet, "/api/v1/photos/", "", nil)
	assert.Equal(t, http.StatusNotFound, listing.StatusCode)

	photo = ts.do(http.MethodGet, "/api/v1/devices/"+id+"/photo", "", nil)
	assert.Equal(t, http.StatusFound, photo.StatusCode)
	assert.Equal(t, fc.Device.PhotoURL, photo.Header.Get("Location"))

	photo = ts.do(http.MethodGet, "/api/v1/devices/"+id+"/photo?ext=jpg", "", nil)
	assert.Equal(t, http.StatusNotFound, photo.StatusCode)

	resp = ts.do(http.MethodPatch, "/api/v1/computers/frequent/checkin/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodPatch, "/api/v1/computers/frequent/checkin/"+id, "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	entered := decode[[]domain.EnteredDevice](t, ts.do(http.MethodGet, "/api/v1/devices/entered", "", nil))
	require.Len(t, entered, 1)
	assert.Equal(t, domain.DeviceTypeFrequentComputer, entered[0].Type)

	resp = ts.do(http.MethodPatch, "/api/v1/devices/checkout/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(http.MethodPatch, "/api/v1/devices/checkout/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	history := decode[[]domain.DeviceHistoryEntry](t,
		ts.do(http.MethodGet, "/api/v1/devices/history?deviceId="+id, "", nil))
	require.Len(t, history, 2)
	assert.Equal(t, domain.HistoryEventCheckout, history[0].Event)
	assert.Equal(t, domain.HistoryEventCheckin, history[1].Event)
}

func TestCheckinAndListing(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.form("/api/v1/computers/checkin", laptop, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	other := map[string]string{"brand": "Apple", "model": "MacBook Air", "ownerName": "Bruno Lima", "ownerId": "EMP-0077"}
	resp = ts.form("/api/v1/computers/checkin", other, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	list := decode[[]domain.Computer](t, ts.do(http.MethodGet, "/api/v1/computers?filter[brand]=Apple", "", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "EMP-0077", list[0].Owner.ID)

	list = decode[[]domain.Computer](t, ts.do(http.MethodGet, "/api/v1/computers?sort=brand&limit=1", "", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "Apple", list[0].Brand)

	resp = ts.do(http.MethodGet, "/api/v1/computers?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/v1/computers?filter[wheels]=4", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	frequent := decode[[]domain.FrequentComputer](t, ts.do(http.MethodGet, "/api/v1/computers/frequent", "", nil))
	assert.Empty(t, frequent)
}

func TestMedicalDeviceCheckin(t *testing.T) {
	ts := newTestServer(t)
	fields := map[string]string{
		"brand": "Philips", "model": "IntelliVue", "serial": "PH-99812",
		"ownerName": "Clara Reis", "ownerId": "MED-0001",
	}

	resp := ts.form("/api/v1/medicaldevices/checkin", fields, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "photo is mandatory")

	resp = ts.form("/api/v1/medicaldevices/checkin", fields, []byte("\x89PNG fake"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	d := decode[domain.MedicalDevice](t, resp)
	assert.NotEmpty(t, d.PhotoURL)
	require.NotNil(t, d.CheckinAt)

	devices := decode[[]domain.MedicalDevice](t, ts.do(http.MethodGet, "/api/v1/medicaldevices?search=intelli", "", nil))
	require.Len(t, devices, 1)

	history := decode[[]domain.DeviceHistoryEntry](t,
		ts.do(http.MethodGet, "/api/v1/devices/history?deviceType=medical-device&event=checkin", "", nil))
	require.Len(t, history, 1)
	assert.Equal(t, "PH-99812", history[0].Serial)
}

func TestValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	short := map[string]string{"brand": "D", "model": "L", "ownerName": "Al", "ownerId": "1"}
	resp := ts.form("/api/v1/computers/checkin", short, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "brand")

	resp = ts.do(http.MethodGet, "/api/v1/devices/history?event=teleport", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/v1/devices/history?startDate=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodPatch, "/api/v1/computers/frequent/checkin/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQRCodes(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.form("/api/v1/computers/frequent", laptop, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[domain.FrequentComputer](t, resp).Device.ID

	pair := decode[map[string]any](t, ts.do(http.MethodGet, fmt.Sprintf("/api/v1/computers/frequent/%s/qr", id), "", nil))
	checkin := pair["checkin"].(map[string]any)
	assert.True(t, strings.HasPrefix(checkin["image"].(string), "data:image/png;base64,"))
	assert.Contains(t, checkin["url"], "/computers/frequent/checkin/"+id)

	resp = ts.do(http.MethodGet, fmt.Sprintf("/api/v1/computers/frequent/%s/qr/checkout", id), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = ts.do(http.MethodGet, fmt.Sprintf("/api/v1/computers/frequent/%s/qr/sideways", id), "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/v1/computers/frequent/nope/qr", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.form("/api/v1/computers/checkin", laptop, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "checkpoint_devices_entered 1\n")
	assert.Contains(t, string(body), `checkpoint_http_requests_total{method="POST",route="/api/v1/computers/checkin",status="201"} 1`)
	assert.Contains(t, string(body), `route="/api/v1/auth/login"`)
}
