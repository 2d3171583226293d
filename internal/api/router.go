package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/CaioWing/checkpoint/internal/api/device"
	"github.com/CaioWing/checkpoint/internal/api/docs"
	"github.com/CaioWing/checkpoint/internal/api/management"
	"github.com/CaioWing/checkpoint/internal/api/middleware"
	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/auth"
	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/service"
)

type RouterDeps struct {
	ComputerSvc      *service.ComputerService
	MedicalDeviceSvc *service.MedicalDeviceService
	DeviceSvc        *service.DeviceService
	HistorySvc       *service.HistoryService
	QRSvc            *service.QRService
	PhotoSvc         *service.PhotoService
	AuthHandler      *management.AuthHandler
	Authenticator    auth.Authenticator
	// Photos serves locally stored photos under /api/v1/photos. Nil when
	// photos live elsewhere.
	Photos      http.Handler
	CORSOrigins []string
	Logger      *slog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	metrics := middleware.NewMetrics()
	metrics.Gauge("checkpoint_devices_entered", "Devices currently on the premises.",
		func(ctx context.Context) (float64, error) {
			entered, err := deps.DeviceSvc.GetEnteredDevices(ctx, domain.DeviceCriteria{})
			return float64(len(entered)), err
		})

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(metrics.Middleware())

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", metrics.Handler())
	r.Handle("/docs/*", http.StripPrefix("/docs/", docs.Handler()))

	computerHandler := management.NewComputerHandler(deps.ComputerSvc, deps.Logger)
	medicalHandler := management.NewMedicalDeviceHandler(deps.MedicalDeviceSvc, deps.Logger)
	deviceHandler := management.NewDeviceHandler(deps.DeviceSvc, deps.HistorySvc, deps.Logger)
	photoHandler := management.NewPhotoHandler(deps.PhotoSvc, deps.Logger)
	scanHandler := device.NewScanHandler(deps.ComputerSvc, deps.DeviceSvc, deps.Logger)
	qrHandler := device.NewQRHandler(deps.QRSvc, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(30, 60))

		r.Post("/auth/login", deps.AuthHandler.Login)

		if deps.Photos != nil {
			r.Handle("/photos/*", http.StripPrefix("/api/v1/photos/", deps.Photos))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrincipal(deps.Authenticator, auth.RoleOperator))

			r.Post("/auth/refresh", deps.AuthHandler.Refresh)

			// Computers
			r.Get("/computers", computerHandler.List)
			r.Post("/computers/checkin", computerHandler.Checkin)
			r.Get("/computers/frequent", computerHandler.ListFrequent)
			r.Post("/computers/frequent", computerHandler.RegisterFrequent)
			r.Get("/computers/frequent/{id}/qr", qrHandler.Pair)
			r.Get("/computers/frequent/{id}/qr/{kind}", qrHandler.Image)

			// Medical devices
			r.Get("/medicaldevices", medicalHandler.List)
			r.Post("/medicaldevices/checkin", medicalHandler.Checkin)

			// Any device
			r.Get("/devices/entered", deviceHandler.ListEntered)
			r.Get("/devices/history", deviceHandler.History)
			r.Get("/devices/{id}/photo", photoHandler.Redirect)

			// Scan targets encoded in the QR codes
			r.Patch("/computers/frequent/checkin/{id}", scanHandler.CheckinFrequent)
			r.Patch("/devices/checkout/{id}", scanHandler.Checkout)
		})
	})

	return r
}
