// Package config loads the runtime configuration of the concierge: defaults in
// code, an optional YAML file, a .env file and OPENSTARS_* environment
// variables, applied in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by Validate.
const (
	AnalyzerKeyword = "keyword"
	AnalyzerHTTP    = "http"

	PaymentFake = "fake"
	PaymentHTTP = "http"

	NotifyLog      = "log"
	NotifySendGrid = "sendgrid"
	NotifySES      = "ses"
	NotifySQS      = "sqs"
	NotifyRedis    = "redis"

	GuardMemory = "memory"
	GuardRedis  = "redis"
)

// Config is the complete runtime configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Dialogue DialogueConfig `yaml:"dialogue" mapstructure:"dialogue"`
	Pacing   PacingConfig   `yaml:"pacing" mapstructure:"pacing"`
	Timeouts TimeoutConfig  `yaml:"timeouts" mapstructure:"timeouts"`
	Analyzer AnalyzerConfig `yaml:"analyzer" mapstructure:"analyzer"`
	Payment  PaymentConfig  `yaml:"payment" mapstructure:"payment"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
	Guard    GuardConfig    `yaml:"guard" mapstructure:"guard"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	AWS      AWSConfig      `yaml:"aws" mapstructure:"aws"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr" mapstructure:"addr"`
	InboxSize    int    `yaml:"inbox_size" mapstructure:"inbox_size"`
	MaxInputSize int    `yaml:"max_input_size" mapstructure:"max_input_size"`
}

// DialogueConfig tunes the transition engine.
type DialogueConfig struct {
	SampleSize       int    `yaml:"sample_size" mapstructure:"sample_size"`
	FallbackIndustry string `yaml:"fallback_industry" mapstructure:"fallback_industry"`
	PriceCents       int64  `yaml:"price_cents" mapstructure:"price_cents"`
	Currency         string `yaml:"currency" mapstructure:"currency"`
	// CatalogPath replaces the embedded candidate pools when set.
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
	Seed        uint64 `yaml:"seed" mapstructure:"seed"`
}

type PacingConfig struct {
	ComposeMin   time.Duration `yaml:"compose_min" mapstructure:"compose_min"`
	ComposeMax   time.Duration `yaml:"compose_max" mapstructure:"compose_max"`
	Continuation time.Duration `yaml:"continuation" mapstructure:"continuation"`
}

type TimeoutConfig struct {
	Analyze time.Duration `yaml:"analyze" mapstructure:"analyze"`
	Charge  time.Duration `yaml:"charge" mapstructure:"charge"`
	Notify  time.Duration `yaml:"notify" mapstructure:"notify"`
}

type AnalyzerConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
}

type PaymentConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	// Mode drives the fake gateway: approve or decline.
	Mode    string `yaml:"mode" mapstructure:"mode"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

type NotifyConfig struct {
	Providers   []string `yaml:"providers" mapstructure:"providers"`
	MaxAttempts int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	FromEmail   string   `yaml:"from_email" mapstructure:"from_email"`
	FromName    string   `yaml:"from_name" mapstructure:"from_name"`
	To          string   `yaml:"to" mapstructure:"to"`
	SendGridKey string   `yaml:"sendgrid_key" mapstructure:"sendgrid_key"`
	QueueURL    string   `yaml:"queue_url" mapstructure:"queue_url"`
	RedisKey    string   `yaml:"redis_key" mapstructure:"redis_key"`
	LogMask     []string `yaml:"log_mask" mapstructure:"log_mask"`
}

// DefaultLogMask hides contact details from logged leads.
var DefaultLogMask = []string{"^email$", "^phone$", "^linkedin$"}

// Channels returns the configured providers, or the log notifier when none is set.
func (n NotifyConfig) Channels() []string {
	if len(n.Providers) == 0 {
		return []string{NotifyLog}
	}
	return n.Providers
}

// Mask returns the patterns of answer keys hidden from the log notifier, or DefaultLogMask when none is set.
// An explicitly empty list disables masking.
func (n NotifyConfig) Mask() []string {
	if n.LogMask == nil {
		return DefaultLogMask
	}
	return n.LogMask
}

type GuardConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

type AWSConfig struct {
	Region   string `yaml:"region" mapstructure:"region"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080", InboxSize: 64, MaxInputSize: 4096},
		Dialogue: DialogueConfig{
			SampleSize:       3,
			FallbackIndustry: "Emerging Tech",
			PriceCents:       4900,
			Currency:         "usd",
		},
		Pacing: PacingConfig{
			ComposeMin:   600 * time.Millisecond,
			ComposeMax:   1000 * time.Millisecond,
			Continuation: 300 * time.Millisecond,
		},
		Timeouts: TimeoutConfig{
			Analyze: 5 * time.Second,
			Charge:  15 * time.Second,
			Notify:  10 * time.Second,
		},
		Analyzer: AnalyzerConfig{Provider: AnalyzerKeyword},
		Payment:  PaymentConfig{Provider: PaymentFake, Mode: "approve"},
		Notify:   NotifyConfig{MaxAttempts: 3, FromName: "OpenStars", RedisKey: "openstars:leads"},
		Guard:    GuardConfig{Provider: GuardMemory, TTL: 24 * time.Hour},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		AWS:      AWSConfig{Region: "us-east-1"},
	}
}

// envKeys maps environment variables onto configuration paths.
var envKeys = map[string]string{
	"OPENSTARS_LOG_LEVEL":           "log.level",
	"OPENSTARS_LOG_FORMAT":          "log.format",
	"OPENSTARS_ADDR":                "server.addr",
	"OPENSTARS_INBOX_SIZE":          "server.inbox_size",
	"OPENSTARS_MAX_INPUT_SIZE":      "server.max_input_size",
	"OPENSTARS_SAMPLE_SIZE":         "dialogue.sample_size",
	"OPENSTARS_FALLBACK_INDUSTRY":   "dialogue.fallback_industry",
	"OPENSTARS_PRICE_CENTS":         "dialogue.price_cents",
	"OPENSTARS_CURRENCY":            "dialogue.currency",
	"OPENSTARS_CATALOG_PATH":        "dialogue.catalog_path",
	"OPENSTARS_SEED":                "dialogue.seed",
	"OPENSTARS_COMPOSE_MIN":         "pacing.compose_min",
	"OPENSTARS_COMPOSE_MAX":         "pacing.compose_max",
	"OPENSTARS_CONTINUATION_DELAY":  "pacing.continuation",
	"OPENSTARS_ANALYZE_TIMEOUT":     "timeouts.analyze",
	"OPENSTARS_CHARGE_TIMEOUT":      "timeouts.charge",
	"OPENSTARS_NOTIFY_TIMEOUT":      "timeouts.notify",
	"OPENSTARS_ANALYZER":            "analyzer.provider",
	"OPENSTARS_ANALYZER_ENDPOINT":   "analyzer.endpoint",
	"OPENSTARS_ANALYZER_API_KEY":    "analyzer.api_key",
	"OPENSTARS_PAYMENT":             "payment.provider",
	"OPENSTARS_PAYMENT_MODE":        "payment.mode",
	"OPENSTARS_PAYMENT_BASE_URL":    "payment.base_url",
	"OPENSTARS_PAYMENT_API_KEY":     "payment.api_key",
	"OPENSTARS_NOTIFY":              "notify.providers",
	"OPENSTARS_NOTIFY_MAX_ATTEMPTS": "notify.max_attempts",
	"OPENSTARS_NOTIFY_FROM_EMAIL":   "notify.from_email",
	"OPENSTARS_NOTIFY_FROM_NAME":    "notify.from_name",
	"OPENSTARS_NOTIFY_TO":           "notify.to",
	"OPENSTARS_SENDGRID_API_KEY":    "notify.sendgrid_key",
	"OPENSTARS_NOTIFY_QUEUE_URL":    "notify.queue_url",
	"OPENSTARS_NOTIFY_REDIS_KEY":    "notify.redis_key",
	"OPENSTARS_NOTIFY_LOG_MASK":     "notify.log_mask",
	"OPENSTARS_GUARD":               "guard.provider",
	"OPENSTARS_GUARD_TTL":           "guard.ttl",
	"OPENSTARS_REDIS_ADDR":          "redis.addr",
	"OPENSTARS_REDIS_PASSWORD":      "redis.password",
	"OPENSTARS_REDIS_DB":            "redis.db",
	"OPENSTARS_AWS_REGION":          "aws.region",
	"OPENSTARS_AWS_ENDPOINT":        "aws.endpoint",
}

// Load builds the configuration. path may be empty, in which case only the
// defaults and the environment apply. A .env file in the working directory is
// loaded when present; variables already set win over it.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	for env, key := range envKeys {
		if v, ok := os.LookupEnv(env); ok {
			setPath(raw, key, v)
		}
	}

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// setPath stores value under a dotted key, creating intermediate maps.
func setPath(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Pacing.ComposeMin >= 0, "pacing.compose_min must not be negative")
	check(c.Pacing.ComposeMin <= c.Pacing.ComposeMax, "pacing.compose_min (%s) exceeds compose_max (%s)", c.Pacing.ComposeMin, c.Pacing.ComposeMax)
	check(c.Pacing.Continuation >= 0, "pacing.continuation must not be negative")
	check(c.Dialogue.SampleSize > 0, "dialogue.sample_size must be positive")
	check(c.Dialogue.PriceCents > 0, "dialogue.price_cents must be positive")
	check(c.Dialogue.Currency != "", "dialogue.currency is required")
	check(c.Server.InboxSize > 0, "server.inbox_size must be positive")
	check(c.Server.MaxInputSize > 0, "server.max_input_size must be positive")
	check(c.Timeouts.Analyze > 0 && c.Timeouts.Charge > 0 && c.Timeouts.Notify > 0, "timeouts must be positive")
	check(c.Notify.MaxAttempts > 0, "notify.max_attempts must be positive")

	switch c.Analyzer.Provider {
	case AnalyzerKeyword:
	case AnalyzerHTTP:
		check(c.Analyzer.Endpoint != "", "analyzer.endpoint is required for the http analyzer")
	default:
		check(false, "unknown analyzer provider %q", c.Analyzer.Provider)
	}

	switch c.Payment.Provider {
	case PaymentFake:
		check(c.Payment.Mode == "approve" || c.Payment.Mode == "decline", "unknown payment mode %q", c.Payment.Mode)
	case PaymentHTTP:
		check(c.Payment.BaseURL != "", "payment.base_url is required for the http gateway")
	default:
		check(false, "unknown payment provider %q", c.Payment.Provider)
	}

	for _, p := range c.Notify.Channels() {
		switch p {
		case NotifyLog, NotifyRedis:
		case NotifySendGrid:
			check(c.Notify.SendGridKey != "", "notify.sendgrid_key is required for sendgrid")
			check(c.Notify.FromEmail != "" && c.Notify.To != "", "notify.from_email and notify.to are required for sendgrid")
		case NotifySES:
			check(c.Notify.FromEmail != "" && c.Notify.To != "", "notify.from_email and notify.to are required for ses")
		case NotifySQS:
			check(c.Notify.QueueURL != "", "notify.queue_url is required for sqs")
		default:
			check(false, "unknown notify provider %q", p)
		}
	}

	for _, p := range c.Notify.Mask() {
		_, err := regexp.Compile(p)
		check(err == nil, "notify.log_mask: invalid pattern %q", p)
	}

	switch c.Guard.Provider {
	case GuardMemory, GuardRedis:
		check(c.Guard.TTL > 0, "guard.ttl must be positive")
	default:
		check(false, "unknown guard provider %q", c.Guard.Provider)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c Config) NeedsRedis() bool {
	if c.Guard.Provider == GuardRedis {
		return true
	}
	for _, p := range c.Notify.Channels() {
		if p == NotifyRedis {
			return true
		}
	}
	return false
}

// NeedsAWS reports whether any configured notifier uses the AWS SDK.
func (c Config) NeedsAWS() bool {
	for _, p := range c.Notify.Channels() {
		if p == NotifySES || p == NotifySQS {
			return true
		}
	}
	return false
}
