package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/config"
	"github.com/iliyamo/carwash-booking/internal/database"
	"github.com/iliyamo/carwash-booking/internal/handler"
	"github.com/iliyamo/carwash-booking/internal/logger"
	"github.com/iliyamo/carwash-booking/internal/middleware"
	"github.com/iliyamo/carwash-booking/internal/notify"
	"github.com/iliyamo/carwash-booking/internal/payment"
	"github.com/iliyamo/carwash-booking/internal/queue"
	"github.com/iliyamo/carwash-booking/internal/repository"
	"github.com/iliyamo/carwash-booking/internal/router"
	"github.com/iliyamo/carwash-booking/internal/service"
)

func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpen,
	})
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable: drafts, live updates, caching and rate limiting are off")
	} else {
		defer rdb.Close()
	}
	bookingCfg := config.LoadBookingConfig()
	broadcastCfg := config.LoadBroadcastConfig()
	cacheCfg := config.LoadCacheConfig()
	loc := cfg.Location()

	// Repositories.
	profiles := repository.NewProfileRepo(db)
	tokens := repository.NewTokenRepo(db)
	catalog := repository.NewCatalogRepo(db)
	bookings := repository.NewBookingRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	subs := repository.NewSubscriptionRepo(db)
	usage := repository.NewUsageLogRepo(db)
	reviews := repository.NewReviewRepo(db)
	events := repository.NewWebhookEventRepo(db)
	analytics := repository.NewAnalyticsRepo(db)

	// Notifications: the outbox publishes to RabbitMQ and the embedded
	// consumer sends; a broker outage degrades to inline sends.
	sender := notify.NewSender(cfg.Email.APIKey, cfg.Email.From, zl)
	disp := notify.NewDispatcher(sender, notify.DispatcherConfig{
		BaseURL: cfg.BaseURL, ReplyTo: cfg.Email.AdminEmail, Timeout: cfg.ExternalCallTimeout,
	}, zl)
	pub := queue.NewPublisher(config.AMQPURL(), zl)
	defer pub.Close()
	outbox := notify.NewOutbox(pub, disp, zl)
	consumer := &queue.Consumer{URL: config.AMQPURL(), Handle: disp.Handle, Log: zl.Named("consumer"), Prefetch: 50}
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("notification consumer stopped", zap.Error(err))
		}
	}()

	// Services.
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency)
	var feed *service.BookingFeed
	var drafts *service.DraftStore
	if rdb != nil {
		feed = service.NewBookingFeed(rdb, bookingCfg.FeedBufferLimit, zl)
		drafts = service.NewDraftStore(rdb, bookingCfg.DraftTTL)
	}
	slots := service.NewSlotService(bookings, loc, bookingCfg.BlockBooked, bookingCfg.BayCapacity)
	checkout := service.NewCheckoutService(catalog, slots, vehicles, gateway, service.CheckoutConfig{
		BaseURL:          cfg.BaseURL,
		FlockCoupon:      cfg.Stripe.FlockCoupon,
		FlockMinVehicles: cfg.Stripe.FlockMinVehicles,
		Timeout:          cfg.ExternalCallTimeout,
	}, zl)
	reconciler := service.NewReconciler(service.ReconcilerDeps{
		Gateway: gateway, Bookings: bookings, Subscriptions: subs, Events: events, Catalog: catalog,
		Notifier: outbox, Feed: feed, Timeout: cfg.ExternalCallTimeout, Log: zl.Named("webhook"),
	})
	bookingSvc := service.NewBookingService(bookings, outbox, feed, zl)
	broadcaster := notify.NewBroadcaster(sender, broadcastCfg.BatchSize, broadcastCfg.Interval, "Shine Car Wash", zl)

	customer := &handler.CustomerHandler{
		Bookings: bookingSvc, Subscriptions: subs, Vehicles: vehicles,
		Reviews: service.NewReviewService(reviews, bookings), Log: zl,
	}
	if feed != nil {
		customer.Feed = feed
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(zl.Named("http")))
	e.Use(echomw.BodyLimit("2M"))

	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, profiles, tokens, zl),
		Catalog: &handler.CatalogHandler{Repo: catalog, Redis: rdb, CachePrefix: cacheCfg.Prefix, Log: zl},
		Booking: &handler.BookingHandler{
			Slots: slots, Pricer: service.NewPricer(catalog), Drafts: drafts,
			Checkout: checkout, Profiles: profiles, Log: zl,
		},
		Webhook: &handler.WebhookHandler{Processor: reconciler, Log: zl.Named("webhook")},
		Admin: &handler.AdminHandler{
			Bookings: bookingSvc, Analytics: service.NewAnalytics(analytics, loc),
			Newsletter: service.NewNewsletter(profiles, broadcaster), Log: zl,
		},
		SelfService: &handler.SelfServiceHandler{
			Tracker: service.NewUsageTracker(usage, vehicles, zl), Memberships: subs, Links: vehicles, Log: zl,
		},
		Customer:  customer,
		Readiness: &handler.Readiness{DB: db, Redis: rdb},
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl.Named("ratelimit")),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	})

	go sweepTokens(ctx, tokens, zl)

	go func() {
		addr := ":" + cfg.Port
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

// sweepTokens deletes refresh tokens that stopped being usable more than a
// day ago.
func sweepTokens(ctx context.Context, tokens *repository.TokenRepo, log *zap.Logger) {
	t := time.NewTicker(6 * time.Hour)
	defer t.Stop()
	for {
		n, err := tokens.DeleteStale(ctx, time.Now().Add(-24*time.Hour))
		if err != nil && ctx.Err() == nil {
			log.Warn("refresh token sweep failed", zap.Error(err))
		} else if n > 0 {
			log.Info("refresh tokens swept", zap.Int64("deleted", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
