// Package bootstrap wires configuration, infrastructure and the room tab
// services into one Container shared by the server and the admin CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roomtab/backend/internal/application/notification"
	tabapp "github.com/roomtab/backend/internal/application/tab"
	"github.com/roomtab/backend/internal/domain/pos"
	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/cache"
	"github.com/roomtab/backend/internal/infrastructure/config"
	"github.com/roomtab/backend/internal/infrastructure/logger"
	"github.com/roomtab/backend/internal/infrastructure/persistence"
	"github.com/roomtab/backend/internal/infrastructure/posclient"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
	"github.com/roomtab/backend/internal/infrastructure/webhook"
)

// Container holds the wired services and the resources they own
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Telemetry *telemetry.Providers
	Database  *persistence.Database

	Sessions      *tabapp.SessionManager
	Intake        *tabapp.OrderIntake
	Closer        *tabapp.CloseReconciler
	Checkout      *tabapp.Checkout
	Occupants     *tabapp.OccupantService
	Notifications *notification.Service
	Idempotency   shared.IdempotencyStore

	amqp *webhook.AMQPSender
}

// New builds the container. The caller must call Close.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("telemetry setup: %w", err)
	}
	log = providers.WrapLogger(log, zapcore.WarnLevel)

	c := &Container{Config: cfg, Logger: log, Telemetry: providers}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log.Named("gorm"), logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, err
	}
	c.Database = db

	if err := c.wire(); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Container) wire() error {
	cfg, log := c.Config, c.Logger
	db := c.Database.DB

	if err := telemetry.InstrumentDB(db, c.Telemetry.TracerProvider()); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	if err := telemetry.RegisterPoolMetrics(c.Telemetry.Meter("roomtab.db"), db); err != nil {
		log.Warn("Database pool metrics disabled", zap.Error(err))
	}

	lockers := cache.NewRoomLockerFactory(cfg.Redis, cfg.Lock,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	locker, err := lockers.CreateLocker()
	if err != nil {
		return err
	}
	if c.Idempotency, err = lockers.CreateIdempotencyStore(); err != nil {
		return err
	}

	posClient, err := newPOSClient(cfg.POS, log)
	if err != nil {
		return err
	}

	sessionRepo := persistence.NewGormSessionRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	c.Sessions = tabapp.NewSessionManager(sessionRepo, orderRepo, cfg.Tab.TaxRate, log)

	metrics, err := telemetry.NewTabMetrics(telemetry.TabMetricsConfig{
		Meter:          c.Telemetry.Meter("roomtab.tab"),
		Logger:         log,
		Currency:       cfg.POS.Currency,
		ActiveSessions: c.Sessions.CountActiveSessions,
	})
	if err != nil {
		log.Warn("Business metrics disabled", zap.Error(err))
		metrics = telemetry.NewNoopTabMetrics()
	}

	c.amqp = webhook.NewAMQPSender(cfg.Webhook.AMQPExchange, cfg.Webhook.ConnectTimeout, log)
	sender := webhook.NewRouter(
		webhook.NewHTTPSender(cfg.Webhook.SendTimeout, cfg.Webhook.ConnectTimeout, log),
		c.amqp,
	)
	c.Notifications = notification.NewService(sender,
		persistence.NewGormWebhookEventRepository(db), orderRepo, metrics,
		notification.Config{
			Destinations: webhook.Destinations(cfg.Webhook.Destinations),
			MaxParallel:  cfg.Webhook.MaxParallel,
			TaxRate:      cfg.Tab.TaxRate,
		}, log)

	var guests tab.GuestNotifier = webhook.NoopGuestNotifier{}
	if cfg.GuestNotify.BaseURL != "" && cfg.GuestNotify.ChannelToken != "" {
		guests = webhook.NewMessagingPushNotifier(cfg.GuestNotify.BaseURL, cfg.GuestNotify.ChannelToken,
			cfg.GuestNotify.Timeout, log)
	}

	mirror := tabapp.NewMirrorSync(posClient, sessionRepo, c.Notifications, metrics,
		tabapp.MirrorSyncConfig{Currency: cfg.POS.Currency, CategoryName: cfg.POS.ShadowCategoryName}, log)

	c.Intake = tabapp.NewOrderIntake(tabapp.OrderIntakeDeps{
		Sessions:      c.Sessions,
		Mirror:        mirror,
		Orders:        orderRepo,
		Products:      persistence.NewGormProductRepository(db),
		Locker:        locker,
		Notifier:      c.Notifications,
		GuestNotifier: guests,
		Metrics:       metrics,
		LockWait:      cfg.Lock.WaitTimeout,
		TaxRate:       cfg.Tab.TaxRate,
		Logger:        log,
	})
	c.Closer = tabapp.NewCloseReconciler(tabapp.CloseReconcilerDeps{
		Sessions:     c.Sessions,
		SessionStore: sessionRepo,
		Mirror:       mirror,
		POS:          posClient,
		Locker:       locker,
		Notifier:     c.Notifications,
		Metrics:      metrics,
		LockWait:     cfg.Lock.WaitTimeout,
		Logger:       log,
	})
	c.Checkout = tabapp.NewCheckout(tabapp.CheckoutDeps{
		Sessions:   c.Sessions,
		POS:        posClient,
		Locker:     locker,
		LockWait:   cfg.Lock.WaitTimeout,
		LocationID: cfg.POS.LocationID,
		Currency:   cfg.POS.Currency,
		Logger:     log,
	})
	c.Occupants = tabapp.NewOccupantService(persistence.NewGormOccupantRepository(db), sessionRepo, log)
	return nil
}

func newPOSClient(cfg config.POSConfig, log *zap.Logger) (pos.Client, error) {
	if cfg.Provider == "memory" {
		log.Warn("Using in-memory POS; shadow items are not mirrored anywhere")
		return posclient.NewMemoryClient(), nil
	}
	return posclient.NewSquareClient(posclient.SquareConfig{
		BaseURL:     cfg.BaseURL,
		AccessToken: cfg.AccessToken,
		APIVersion:  cfg.APIVersion,
		LocationID:  cfg.LocationID,
		Timeout:     cfg.Timeout,
	}, log.Named("pos"))
}

// Close waits for in-flight notifications, then releases every resource the
// container opened.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Notifications != nil {
		drainCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := c.Notifications.Drain(drainCtx); err != nil {
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
		cancel()
	}
	if c.amqp != nil {
		errs = append(errs, c.amqp.Close())
	}
	if c.Idempotency != nil {
		errs = append(errs, c.Idempotency.Close())
	}
	if c.Database != nil {
		errs = append(errs, c.Database.Close())
	}
	errs = append(errs, c.Telemetry.Shutdown(ctx))
	return errors.Join(errs...)
}
