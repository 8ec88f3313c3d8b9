package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"pg-hostel/database"
	"pg-hostel/handlers"
	"pg-hostel/metrics"
	"pg-hostel/middleware"
	"pg-hostel/notify"
	"pg-hostel/services"
	"pg-hostel/store"
)

// offlinePaymentSecret signs callbacks when no gateway keys are configured.
const offlinePaymentSecret = "offline-payment-secret"

// App the wired services shared by every command.
type App struct {
	Config    *Config
	Logger    *zap.Logger
	DB        *gorm.DB
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Notices   *services.NoticeHub
	Occupancy *services.OccupancyService
	Billing   *services.BillingService
	Scheduler *services.BillScheduler
	Handler   *handlers.Handler

	closers []func() error
}

// NewLogger builds the zap logger from config.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// NewApp opens the database and wires every service.
func NewApp(cfg *Config, logger *zap.Logger) (*App, error) {
	if err := database.InitDatabase(cfg.Database.Driver, cfg.Database.DSN, logger); err != nil {
		return nil, fmt.Errorf("database initialisation failed: %w", err)
	}
	db := database.DB
	if err := database.SeedAdmin(db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, logger); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, DB: db}
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.NewMetrics(app.Registry)

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			From:      cfg.SMTP.From,
			PerSecond: cfg.SMTP.PerSecond,
		}, logger)
	}

	var idem store.IdempotencyStore = store.NewMemoryIdempotencyStore()
	if cfg.Redis.Addr != "" {
		rs, err := store.NewRedisIdempotencyStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			return nil, err
		}
		idem = rs
		app.closers = append(app.closers, rs.Close)
	}

	var (
		gateway services.PaymentGateway = services.OfflineGateway{}
		secret                          = offlinePaymentSecret
	)
	if cfg.Payment.KeyID != "" {
		gateway = services.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret)
		secret = cfg.Payment.KeySecret
	} else {
		logger.Warn("payment gateway keys not configured, using offline gateway")
	}

	docs, err := store.NewLocalDocumentStore(cfg.Uploads.Dir, cfg.Uploads.BaseURL)
	if err != nil {
		return nil, err
	}

	app.Notices = services.NewNoticeHub(16)
	app.Occupancy = services.NewOccupancyService(db, logger.Named("occupancy"), app.Metrics)
	app.Billing = services.NewBillingService(db, notifier, logger.Named("billing"), app.Metrics, services.BillingOptions{
		DefaultRent:       decimal.NewFromFloat(cfg.Billing.DefaultRent),
		NotifyConcurrency: cfg.Billing.NotifyConcurrency,
	})
	loc := cfg.Location()
	billingNow := func() time.Time { return time.Now().In(loc) }
	app.Billing.SetClock(billingNow)
	app.Scheduler = services.NewBillScheduler(app.Billing, cfg.Scheduler.Interval, logger.Named("scheduler"))
	app.Scheduler.SetClock(billingNow)

	app.Handler = &handlers.Handler{
		Tenants:        services.NewTenantService(db, app.Occupancy, notifier, logger.Named("tenants")),
		Occupancy:      app.Occupancy,
		Billing:        app.Billing,
		Reports:        services.NewReportService(db, loc),
		Proofs:         services.NewRentProofService(db, logger.Named("rent")),
		Archive:        services.NewArchiveService(db, app.Occupancy, logger.Named("archive")),
		Payments:       services.NewPaymentService(app.Billing, gateway, idem, notifier, secret, logger.Named("payments"), app.Metrics),
		Complaints:     services.NewComplaintService(db, app.Notices, logger.Named("complaints")),
		Notices:        app.Notices,
		Scheduler:      app.Scheduler,
		Documents:      docs,
		Logger:         logger,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		Now:            billingNow,
	}

	middleware.InitJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	return app, nil
}

// Router builds the HTTP router.
func (a *App) Router() http.Handler {
	return handlers.SetupRouter(a.Handler, handlers.RouterOptions{
		Metrics:      a.Metrics,
		Gatherer:     a.Registry,
		CORSOrigins:  a.Config.Server.CORSOrigins,
		LoginLimiter: middleware.NewIPRateLimiter(a.Config.Auth.LoginPerMinute, a.Config.Auth.LoginBurst),
		UploadDir:    a.Config.Uploads.Dir,
	})
}

// Close releases connections.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
