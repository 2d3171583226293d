package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CaioWing/checkpoint/internal/api"
	"github.com/CaioWing/checkpoint/internal/api/management"
	"github.com/CaioWing/checkpoint/internal/auth"
	"github.com/CaioWing/checkpoint/internal/config"
	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/repository/memory"
	"github.com/CaioWing/checkpoint/internal/repository/postgres"
	"github.com/CaioWing/checkpoint/internal/service"
	"github.com/CaioWing/checkpoint/internal/storage"
	"github.com/CaioWing/checkpoint/internal/storage/local"
	"github.com/CaioWing/checkpoint/internal/storage/s3store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Info("starting checkpoint",
		"listen", cfg.ListenAddr(),
		"store", cfg.DB.Driver,
		"photos", cfg.Photos.Driver,
		"public_base_url", cfg.PublicBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	photos, photoHandler, err := openPhotos(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info("photo storage initialized", "driver", cfg.Photos.Driver, "public_url", cfg.Photos.PublicURL)

	links, err := service.NewLinks(cfg.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("scan links: %w", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	authHandler, err := management.NewAuthHandler(jwtMgr, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	router := api.NewRouter(api.RouterDeps{
		ComputerSvc:      service.NewComputerService(store, photos, links, log),
		MedicalDeviceSvc: service.NewMedicalDeviceService(store, photos, log),
		DeviceSvc:        service.NewDeviceService(store, log),
		HistorySvc:       service.NewHistoryService(store),
		QRSvc:            service.NewQRService(store, log),
		PhotoSvc:         service.NewPhotoService(photos),
		AuthHandler:      authHandler,
		Authenticator:    auth.BearerAuthenticator(jwtMgr),
		Photos:           photoHandler,
		CORSOrigins:      cfg.CORS.Origins(),
		Logger:           log,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.DeviceStore, func(), error) {
	if cfg.DB.Driver == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return memory.NewDeviceStore(), func() {}, nil
	}

	log.Info("running database migrations", "db_host", cfg.DB.Host)
	if err := postgres.RunMigrations(cfg.DB.DSN()); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations completed")

	pool, err := pgxpool.New(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	log.Info("database connected")

	return postgres.NewDeviceStore(pool), pool.Close, nil
}

// openPhotos returns the photo store and, for local storage, the handler
// that serves the files.
func openPhotos(ctx context.Context, cfg *config.Config) (storage.PhotoStore, http.Handler, error) {
	if cfg.Photos.Driver == config.PhotosS3 {
		s, err := s3store.New(ctx, s3store.Config{
			Bucket:    cfg.Photos.S3.Bucket,
			Region:    cfg.Photos.S3.Region,
			Endpoint:  cfg.Photos.S3.Endpoint,
			AccessKey: cfg.Photos.S3.AccessKey,
			SecretKey: cfg.Photos.S3.SecretKey,
			PublicURL: cfg.Photos.PublicURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init s3 photos: %w", err)
		}
		return s, nil, nil
	}

	s, err := local.New(cfg.Photos.Path, cfg.Photos.PublicURL)
	if err != nil {
		return nil, nil, fmt.Errorf("init local photos: %w", err)
	}
	return s, s.Handler(), nil
}
