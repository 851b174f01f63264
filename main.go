package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-giftshop/cart"
	"go-giftshop/config"
	"go-giftshop/controllers"
	"go-giftshop/events"
	"go-giftshop/middleware"
	"go-giftshop/ordernumber"
	"go-giftshop/port"
	"go-giftshop/repository"
	"go-giftshop/repository/memrepo"
	"go-giftshop/routes"
	"go-giftshop/services"
	"go-giftshop/utils"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = 10 * time.Minute
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "giftshop").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("closed completed")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	store, ping, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if !cfg.AdminConfigured() {
		logger.Warn().Msg("ADMIN_EMAIL, ADMIN_PASSWORD(_HASH) or SESSION_SECRET missing, admin login is disabled")
	}

	emails := utils.NewEmailService(newMailer(cfg), cfg.AdminNotifyEmail, cfg.CurrencyUnit())
	publisher := newPublisher(cfg, logger)
	metrics := middleware.NewMetrics("api")

	allocator := ordernumber.New(store.Orders,
		ordernumber.WithPrefix(cfg.OrderNumberPrefix),
		ordernumber.WithLocation(cfg.Location()),
		ordernumber.WithAttempts(cfg.OrderAllocationAttempts),
	)
	orderService := services.NewOrderService(store, allocator, publisher, emails,
		services.WithPlacedCounter(metrics.OrdersPlaced),
	)

	carts := cart.NewStore(cfg.CartTTL)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		carts.Run(ctx, sweepInterval)
	}()

	sessions := utils.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	credentials := utils.AdminCredentials{
		Email:        cfg.AdminEmail,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
	}

	handler := routes.NewHandler(routes.Controllers{
		Auth:       controllers.NewAdminAuthController(credentials, sessions, cfg.CookieSecure),
		Categories: controllers.NewCategoryController(store),
		Products:   controllers.NewProductController(store),
		Orders:     controllers.NewOrderController(orderService, store.Orders, carts, cfg.Location()),
		Cart:       controllers.NewCartController(carts, store.Products, cfg.CookieSecure),
		Reviews:    controllers.NewReviewController(store),
		Coupons:    controllers.NewCouponController(store.Coupons, orderService),
		Countdowns: controllers.NewCountdownController(store.Countdowns),
		Newsletter: controllers.NewNewsletterController(store.Subscribers, emails),
	}, routes.Options{
		Sessions:       sessions,
		LoginLimiter:   middleware.NewIPRateLimiter(cfg.LoginRatePerMin),
		TrustedProxies: cfg.TrustedProxyPrefixes(),
		Metrics:        metrics,
		Health:         ping,
		AdminStaticDir: cfg.AdminStaticDir,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("storage", cfg.StorageDriver).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	stop()
	<-janitorDone
	emails.Wait()
	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close event publisher")
	}
	return nil
}

// openStore returns the configured repositories, a health check and a close func.
func openStore(ctx context.Context, cfg *config.Config) (port.Store, controllers.Pinger, func(), error) {
	logger := zerolog.Ctx(ctx)

	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		return memrepo.New().Port(), nil, func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := repository.Connect(connectCtx, cfg.MongoURI)
	if err != nil {
		return port.Store{}, nil, nil, err
	}
	db := client.Database(cfg.MongoDatabase)

	if err := repository.EnsureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return port.Store{}, nil, nil, err
	}
	logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from mongo")
		}
	}
	return repository.NewStore(db), mongoPinger(client), closeFn, nil
}

func mongoPinger(client *mongo.Client) controllers.Pinger {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}

func newMailer(cfg *config.Config) utils.Mailer {
	switch cfg.EmailProvider {
	case config.EmailPostmark:
		return utils.NewPostmarkMailer(cfg.PostmarkToken, cfg.EmailSender)
	case config.EmailSendgrid:
		return utils.NewSendgridMailer(cfg.SendgridAPIKey, cfg.EmailSender)
	default:
		return utils.LogMailer{}
	}
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info().Msg("KAFKA_BROKERS not set, order events are not published")
		return events.NopPublisher{}
	}
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaOrderTopic).Msg("publishing order events to kafka")
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
}
