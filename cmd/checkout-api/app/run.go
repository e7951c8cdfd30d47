package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/skymall/checkout-api/configs"
	"github.com/skymall/checkout-api/internal/adapter/cache"
	"github.com/skymall/checkout-api/internal/adapter/collab"
	"github.com/skymall/checkout-api/internal/adapter/gateway"
	"github.com/skymall/checkout-api/internal/adapter/http"
	"github.com/skymall/checkout-api/internal/adapter/http/middleware"
	"github.com/skymall/checkout-api/internal/adapter/kafka"
	"github.com/skymall/checkout-api/internal/adapter/queue"
	"github.com/skymall/checkout-api/internal/adapter/repo"
	"github.com/skymall/checkout-api/internal/logging"
	"github.com/skymall/checkout-api/internal/security"
	"github.com/skymall/checkout-api/internal/usecase"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logging.Init(cfg.App.Name, "./logs/app.log")
	l := logging.New("app")

	// Background goroutines (rates, outbox, consumers) stop on cleanup.
	runCtx, stop := context.WithCancel(context.Background())

	db, err := openMySQL(runCtx, cfg)
	if err != nil {
		stop()
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(runCtx).Err(); err != nil {
		stop()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	// repos
	intentRepo := repo.NewMySQLIntentRepo(db)
	refundRepo := repo.NewMySQLRefundRepo(db)
	methodRepo := repo.NewMySQLMethodRepo(db)
	sessionRepo := repo.NewMySQLSessionRepo(db)
	rateRepo := repo.NewMySQLRateRepo(db)
	webhookRepo := repo.NewMySQLWebhookEventRepo(db)
	outboxRepo := repo.NewMySQLOutboxRepo(db)

	// caches
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	sessionCache := cache.NewRedisSessionCache(rdb, cfg.Session.CacheTTL)

	// downstream services
	ct := cfg.Collaborators.Timeout
	catalog := collab.NewCatalogService(cfg.Collaborators.CatalogURL, ct)
	tax := collab.NewTaxService(cfg.Collaborators.TaxURL, ct)
	inventory := collab.NewInventoryService(cfg.Collaborators.InventoryURL, ct)
	loyalty := collab.NewLoyaltyService(cfg.Collaborators.LoyaltyURL, ct)
	risk := collab.NewRiskService(cfg.Collaborators.RiskURL, ct)
	notify := collab.NewNotificationService(cfg.Collaborators.NotificationURL, ct)
	rateSource := collab.NewRateProvider(cfg.Rates.ProviderURL, ct)

	stripeGW := gateway.NewStripeGateway(cfg.Gateway.APIKey, cfg.Gateway.PublishableKey)

	// rates: warm from the last persisted table, then refresh in background
	rates := usecase.NewCurrencyRateStore(cfg.Rates.BaseCurrency, rateSource, rateRepo, cfg.Rates.RefreshInterval)
	if err := rates.Warm(runCtx); err != nil {
		l.Warn("rate warm failed, starting empty", "err", err)
	}
	go rates.Run(runCtx)

	clock := usecase.SystemClock()
	pricing := usecase.NewPricingEngine(catalog, tax, rates, cfg.Checkout.ServiceFeeBps)
	fraud := usecase.NewFraudRiskEngine(risk, usecase.FraudConfig{
		ReviewThreshold: cfg.Fraud.ReviewThreshold,
		BlockThreshold:  cfg.Fraud.BlockThreshold,
		Timeout:         cfg.Fraud.Timeout,
		FailOpen:        cfg.Fraud.FailOpen,
		FailOpenScore:   cfg.Fraud.FailOpenScore,
	})

	payments := usecase.NewPaymentService(intentRepo, pricing, fraud, stripeGW, loyalty, idem, outboxRepo, clock, cfg.CurrencySupported)
	checkout := usecase.NewCheckoutService(sessionRepo, sessionCache, methodRepo, pricing, payments, inventory, loyalty, notify, notify, clock,
		usecase.CheckoutConfig{MaxCartItems: cfg.Checkout.MaxCartItems, SessionTTL: cfg.Session.TTL}, cfg.CurrencySupported)
	refunds := usecase.NewRefundManager(intentRepo, refundRepo, stripeGW, idem, clock, cfg.Refund.WindowDays)
	webhooks := usecase.NewWebhookService(webhookRepo, intentRepo, refundRepo, clock)

	// event plumbing
	producer, err := queue.NewRabbitProducer(ch, cfg.Rabbit.Exchange)
	if err != nil {
		stop()
		return nil, nil, err
	}
	drainer := queue.NewOutboxDrainer(outboxRepo, producer, logging.New("outbox"), cfg.Outbox.DrainInterval, cfg.Outbox.BatchSize)
	go drainer.Run(runCtx)

	setupQueueConsumers(ch, notify)
	if err := setupKafkaListener(runCtx, cfg, webhooks); err != nil {
		stop()
		return nil, nil, err
	}

	verifiers := map[string]security.WebhookVerifier{
		"stripe": gateway.NewStripeWebhookVerifier(cfg.Gateway.WebhookSecret, cfg.Gateway.SignatureMaxSkew),
		"mock":   security.NewHMACVerifier(cfg.Gateway.WebhookSecret, cfg.Gateway.SignatureMaxSkew),
	}

	handlers := http.Handlers{
		Checkout: http.NewCheckoutHandler(checkout),
		Payments: http.NewPaymentHandler(payments),
		Refunds:  http.NewRefundHandler(refunds),
		Methods:  http.NewMethodHandler(methodRepo),
		Rates:    http.NewRatesHandler(rates),
		Webhooks: http.NewWebhookHandler(webhooks, verifiers),
		Token:    http.NewTokenHandler(cfg),
	}
	router := http.NewRouter(handlers, middleware.NewAuthz(cfg))

	cleanup := func() {
		stop()
		_ = ch.Close()
		_ = conn.Close()
		_ = rdb.Close()
		_ = db.Close()
	}
	return &App{Router: router}, cleanup, nil
}

func openMySQL(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

func setupQueueConsumers(ch *amqp091.Channel, notify *collab.NotificationService) {
	h := queue.NewPaymentSucceededHandler(notify, notify)

	router := queue.NewRouter(ch, logging.New("rmq"), queue.WithPrefetch(50))
	router.Register("payment.succeeded.q", queue.JSONHandler[usecase.PaymentEventMsg]{HandleFunc: h.HandleSucceeded})

	if err := router.Start(); err != nil {
		panic(err)
	}
}

func setupKafkaListener(ctx context.Context, cfg configs.Config, webhooks *usecase.WebhookService) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		return fmt.Errorf("kafka group: %w", err)
	}

	h := kafka.NewChargeEventHandler(webhooks)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.EventsTopic}, h.Handle, logging.New("kafka"))

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logging.New("kafka").Error("consumer stopped", "err", err)
		}
	}()
	return nil
}
