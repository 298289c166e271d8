// Package config loads per-binary settings from the environment, an optional
// .env file and an optional config.yaml.
package config

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

type Orders struct {
	Port              string        `env:"PORT" yaml:"port" default:"8081"`
	PostgresURL       string        `env:"POSTGRES_URL" yaml:"postgres_url"`
	StockPolicy       string        `env:"STOCK_POLICY" yaml:"stock_policy" default:"unguarded"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" yaml:"kafka_brokers"`
	EmailServiceURL   string        `env:"EMAIL_SERVICE_URL" yaml:"email_service_url"`
	NotifyRecipient   string        `env:"NOTIFY_RECIPIENT" yaml:"notify_recipient" default:"orders@example.com"`
	NotifyQueueSize   int           `env:"NOTIFY_QUEUE_SIZE" yaml:"notify_queue_size" default:"256"`
	NotifyWorkers     int           `env:"NOTIFY_WORKERS" yaml:"notify_workers" default:"2"`
	NotifySendTimeout time.Duration `env:"NOTIFY_SEND_TIMEOUT" yaml:"notify_send_timeout" default:"10s"`
	OTLPEndpoint      string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"otlp_endpoint" default:"localhost:4317"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"10s"`
}

func (c *Orders) validate() error {
	if c.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required")
	}
	if c.NotifyRecipient == "" && (len(c.KafkaBrokers) > 0 || c.EmailServiceURL != "") {
		return errors.New("NOTIFY_RECIPIENT is required when notifications are enabled")
	}
	return nil
}

type Catalog struct {
	Port            string        `env:"PORT" yaml:"port" default:"8082"`
	PostgresURL     string        `env:"POSTGRES_URL" yaml:"postgres_url"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"otlp_endpoint" default:"localhost:4317"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"10s"`
}

func (c *Catalog) validate() error {
	if c.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required")
	}
	return nil
}

type Email struct {
	Port            string        `env:"PORT" yaml:"port" default:"8084"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"otlp_endpoint" default:"localhost:4317"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"10s"`
}

func (c *Email) validate() error { return nil }

type Worker struct {
	KafkaBrokers    []string      `env:"KAFKA_BROKERS" yaml:"kafka_brokers"`
	GroupID         string        `env:"KAFKA_GROUP_ID" yaml:"kafka_group_id" default:"notification-worker"`
	EmailServiceURL string        `env:"EMAIL_SERVICE_URL" yaml:"email_service_url"`
	EmailRetries    int           `env:"EMAIL_RETRIES" yaml:"email_retries" default:"3"`
	EmailTimeout    time.Duration `env:"EMAIL_TIMEOUT" yaml:"email_timeout" default:"10s"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"otlp_endpoint" default:"localhost:4317"`
}

func (c *Worker) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.EmailServiceURL == "" {
		return errors.New("EMAIL_SERVICE_URL is required")
	}
	return nil
}

type Gateway struct {
	Port              string        `env:"PORT" yaml:"port" default:"8080"`
	OrdersServiceURL  string        `env:"ORDERS_SERVICE_URL" yaml:"orders_service_url"`
	CatalogServiceURL string        `env:"CATALOG_SERVICE_URL" yaml:"catalog_service_url"`
	UpstreamTimeout   time.Duration `env:"UPSTREAM_TIMEOUT" yaml:"upstream_timeout" default:"10s"`
	OTLPEndpoint      string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"otlp_endpoint" default:"localhost:4317"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"10s"`
}

func (c *Gateway) validate() error {
	if c.OrdersServiceURL == "" {
		return errors.New("ORDERS_SERVICE_URL is required")
	}
	if c.CatalogServiceURL == "" {
		return errors.New("CATALOG_SERVICE_URL is required")
	}
	return nil
}

type Migrate struct {
	PostgresURL    string `env:"POSTGRES_URL" yaml:"postgres_url"`
	MigrationsPath string `env:"MIGRATIONS_PATH" yaml:"migrations_path" default:"file://migrations"`
}

func (c *Migrate) validate() error {
	if c.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required")
	}
	return nil
}

type validator interface {
	validate() error
}

// Files are the optional YAML files read after defaults and before the
// environment. Later entries win.
var Files = []string{"config.yaml", "/etc/orderflow/config.yaml"}

// Load fills cfg from defaults, YAML files and the environment, in that order
// of precedence, after loading .env into the process environment. Variables
// already set in the environment are not overwritten by .env.
func Load(cfg validator) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "load .env")
	}

	loader := aconfig.LoaderFor(cfg, aconfig.Config{
		SkipFlags:          true,
		AllowUnknownEnvs:   true,
		AllowUnknownFields: true,
		Files:              Files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return errors.Wrap(err, "load config")
	}

	if err := cfg.validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	return nil
}
