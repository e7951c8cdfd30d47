package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Session struct {
		TTL      time.Duration `koanf:"ttl"`
		CacheTTL time.Duration `koanf:"cache_ttl"`
	} `koanf:"session"`

	Checkout struct {
		MaxCartItems        int      `koanf:"max_cart_items"`
		SupportedCurrencies []string `koanf:"supported_currencies"`
		ServiceFeeBps       int64    `koanf:"service_fee_bps"`
	} `koanf:"checkout"`

	Fraud struct {
		ReviewThreshold float64       `koanf:"review_threshold"`
		BlockThreshold  float64       `koanf:"block_threshold"`
		Timeout         time.Duration `koanf:"timeout"`
		// FailOpen approves with FailOpenScore when the scorer is down.
		// Set false to decline on scorer outages instead.
		FailOpen      bool    `koanf:"fail_open"`
		FailOpenScore float64 `koanf:"fail_open_score"`
	} `koanf:"fraud"`

	Refund struct {
		WindowDays int `koanf:"window_days"`
	} `koanf:"refund"`

	Rates struct {
		BaseCurrency    string        `koanf:"base_currency"`
		RefreshInterval time.Duration `koanf:"refresh_interval"`
		ProviderURL     string        `koanf:"provider_url"`
	} `koanf:"rates"`

	Gateway struct {
		APIKey           string        `koanf:"api_key"`
		PublishableKey   string        `koanf:"publishable_key"`
		WebhookSecret    string        `koanf:"webhook_secret"`
		Timeout          time.Duration `koanf:"timeout"`
		SignatureMaxSkew time.Duration `koanf:"signature_max_skew"`
	} `koanf:"gateway"`

	Collaborators struct {
		CatalogURL      string        `koanf:"catalog_url"`
		TaxURL          string        `koanf:"tax_url"`
		InventoryURL    string        `koanf:"inventory_url"`
		LoyaltyURL      string        `koanf:"loyalty_url"`
		RiskURL         string        `koanf:"risk_url"`
		NotificationURL string        `koanf:"notification_url"`
		Timeout         time.Duration `koanf:"timeout"`
	} `koanf:"collaborators"`

	Rabbit struct {
		URL      string `koanf:"url"`
		Exchange string `koanf:"exchange"`
	} `koanf:"rabbitmq"`

	Outbox struct {
		DrainInterval time.Duration `koanf:"drain_interval"`
		BatchSize     int           `koanf:"batch_size"`
	} `koanf:"outbox"`

	Kafka struct {
		Brokers     []string `koanf:"brokers"`
		GroupID     string   `koanf:"group_id"`
		EventsTopic string   `koanf:"events_topic"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
	} `koanf:"security"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix CHECKOUT_, nested with __)
	// e.g. CHECKOUT_MYSQL__DSN, CHECKOUT_GATEWAY__API_KEY
	if err := k.Load(env.Provider("CHECKOUT_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "CHECKOUT_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn required")
	}
	if c.Fraud.BlockThreshold <= c.Fraud.ReviewThreshold {
		return fmt.Errorf("fraud.block_threshold must exceed fraud.review_threshold")
	}
	if c.Refund.WindowDays <= 0 {
		return fmt.Errorf("refund.window_days required")
	}
	if len(c.Checkout.SupportedCurrencies) == 0 {
		return fmt.Errorf("checkout.supported_currencies required")
	}
	return nil
}

func (c Config) CurrencySupported(code string) bool {
	for _, cur := range c.Checkout.SupportedCurrencies {
		if strings.EqualFold(cur, code) {
			return true
		}
	}
	return false
}
