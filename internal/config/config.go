package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/quotes.yaml"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Kommo     KommoConfig     `yaml:"kommo"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Dialer    DialerConfig    `yaml:"dialer"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Fanout    FanoutConfig    `yaml:"fanout"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// TrustProxy enables X-Forwarded-For / X-Real-IP for client addresses.
	TrustProxy bool `yaml:"trust_proxy"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

// AnalyticsConfig selects where funnel events go: postgres, clickhouse or kafka.
type AnalyticsConfig struct {
	Driver     string           `yaml:"driver"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type SMTPConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	User            string   `yaml:"user"`
	Password        string   `yaml:"password"`
	From            string   `yaml:"from"`
	AgentRecipients []string `yaml:"agent_recipients"`
}

type KommoConfig struct {
	Subdomain  string `yaml:"subdomain"`
	Token      string `yaml:"token"`
	PipelineID int    `yaml:"pipeline_id"`
	StatusID   int    `yaml:"status_id"`
}

type RabbitMQConfig struct {
	URL string `yaml:"url"`
}

type DialerConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type FanoutConfig struct {
	ChannelTimeout time.Duration `yaml:"channel_timeout"`
	CRMLinkWait    time.Duration `yaml:"crm_link_wait"`
}

type TrackerConfig struct {
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	SweepEvery   time.Duration `yaml:"sweep_every"`
	EndpointBase string        `yaml:"endpoint_base"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env, then the YAML file at CONFIG_PATH (or DefaultPath) with
// ${VAR} references expanded, then applies environment overrides and defaults.
// A missing YAML file is not an error.
func Load() (*Config, error) {
	cfg, err := LoadUnchecked()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnchecked is Load without Validate, for tools that only need a few
// sections (the funnel simulator never touches postgres).
func LoadUnchecked() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}

	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	switch c.Analytics.Driver {
	case "postgres":
	case "clickhouse":
		if c.Analytics.ClickHouse.Addr == "" {
			return errors.New("config: clickhouse analytics driver needs CLICKHOUSE_ADDR")
		}
	case "kafka":
		if len(c.Analytics.Kafka.Brokers) == 0 {
			return errors.New("config: kafka analytics driver needs KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("config: unknown analytics driver %q", c.Analytics.Driver)
	}
	return nil
}

func (c *Config) applyEnv() {
	setInt(&c.Server.Port, "PORT")
	setList(&c.Server.AllowedOrigins, "ALLOWED_ORIGINS")
	setBool(&c.Server.TrustProxy, "TRUST_PROXY")

	setString(&c.Postgres.DSN, "DATABASE_URL")
	setInt(&c.Postgres.MaxConns, "DATABASE_MAX_CONNS")

	setString(&c.Analytics.Driver, "ANALYTICS_DRIVER")
	setString(&c.Analytics.ClickHouse.Addr, "CLICKHOUSE_ADDR")
	setString(&c.Analytics.ClickHouse.Database, "CLICKHOUSE_DATABASE")
	setString(&c.Analytics.ClickHouse.Username, "CLICKHOUSE_USER")
	setString(&c.Analytics.ClickHouse.Password, "CLICKHOUSE_PASSWORD")
	setList(&c.Analytics.Kafka.Brokers, "KAFKA_BROKERS")
	setString(&c.Analytics.Kafka.Topic, "KAFKA_TOPIC")

	setString(&c.SMTP.Host, "MAIL_HOST")
	setInt(&c.SMTP.Port, "MAIL_PORT")
	setString(&c.SMTP.User, "MAIL_USER")
	setString(&c.SMTP.Password, "MAIL_PASS")
	setString(&c.SMTP.From, "MAIL_FROM")
	setList(&c.SMTP.AgentRecipients, "AGENT_EMAILS")

	setString(&c.Kommo.Subdomain, "KOMMO_SUBDOMAIN")
	setString(&c.Kommo.Token, "KOMMO_TOKEN")
	setInt(&c.Kommo.PipelineID, "KOMMO_PIPELINE_ID")
	setInt(&c.Kommo.StatusID, "KOMMO_STATUS_ID")

	setString(&c.RabbitMQ.URL, "RABBITMQ_URL")
	setString(&c.Dialer.URL, "DIALER_URL")
	setString(&c.Dialer.Token, "DIALER_TOKEN")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")

	setInt(&c.RateLimit.Requests, "RATE_LIMIT_REQUESTS")
	setDuration(&c.RateLimit.Window, "RATE_LIMIT_WINDOW")
	setDuration(&c.Fanout.ChannelTimeout, "CHANNEL_TIMEOUT")
	setDuration(&c.Fanout.CRMLinkWait, "CRM_LINK_WAIT")
	setDuration(&c.Tracker.IdleTimeout, "TRACKER_IDLE_TIMEOUT")
	setDuration(&c.Tracker.SweepEvery, "TRACKER_SWEEP_EVERY")
	setString(&c.Tracker.EndpointBase, "TRACKER_ENDPOINT")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Analytics.Driver == "" {
		c.Analytics.Driver = "postgres"
	}
	if c.Analytics.Kafka.Topic == "" {
		c.Analytics.Kafka.Topic = "quote-funnel-events"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 5
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Fanout.ChannelTimeout == 0 {
		c.Fanout.ChannelTimeout = 10 * time.Second
	}
	if c.Fanout.CRMLinkWait == 0 {
		c.Fanout.CRMLinkWait = 3 * time.Second
	}
	if c.Tracker.IdleTimeout == 0 {
		c.Tracker.IdleTimeout = 30 * time.Minute
	}
	if c.Tracker.SweepEvery == 0 {
		c.Tracker.SweepEvery = time.Minute
	}
	if c.Tracker.EndpointBase == "" {
		c.Tracker.EndpointBase = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
