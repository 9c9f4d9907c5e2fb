// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const minCredentialSecretLen = 32

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	JWT          JWTConfig          `koanf:"jwt"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
	Credential   CredentialConfig   `koanf:"credential"`
	Verification VerificationConfig `koanf:"verification"`
	Scheduler    SchedulerConfig    `koanf:"scheduler"`
	Kafka        KafkaConfig        `koanf:"kafka"`
	Midtrans     MidtransConfig     `koanf:"midtrans"`
	Cloudinary   CloudinaryConfig   `koanf:"cloudinary"`
	Geo          GeoConfig          `koanf:"geo"`
	Upload       UploadConfig       `koanf:"upload"`
	Bootstrap    BootstrapConfig    `koanf:"bootstrap"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	PublicURL   string `koanf:"public_url"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int `koanf:"requests"`
	Burst    int `koanf:"burst"`
	// Credential-bearing routes (purchase, download) get their own budget.
	SensitiveRequests int `koanf:"sensitive_requests"`
	SensitiveBurst    int `koanf:"sensitive_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type CredentialConfig struct {
	Secret string `koanf:"secret"`
}

type VerificationConfig struct {
	ValidityPeriod  time.Duration `koanf:"validity_period"`
	ExtensionPeriod time.Duration `koanf:"extension_period"`
}

type SchedulerConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Schedule      string        `koanf:"schedule"`
	Timezone      string        `koanf:"timezone"`
	RecordTimeout time.Duration `koanf:"record_timeout"`
	LeaseTTL      time.Duration `koanf:"lease_ttl"`
}

type KafkaConfig struct {
	Brokers      []string      `koanf:"brokers"`
	Topic        string        `koanf:"topic"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	TLS          bool          `koanf:"tls"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type MidtransConfig struct {
	ServerKey  string `koanf:"server_key"`
	Production bool   `koanf:"production"`
}

type CloudinaryConfig struct {
	URL            string `koanf:"url"`
	DocumentFolder string `koanf:"document_folder"`
	EbookFolder    string `koanf:"ebook_folder"`
}

type GeoConfig struct {
	Endpoint         string              `koanf:"endpoint"`
	Timeout          time.Duration       `koanf:"timeout"`
	CacheTTL         time.Duration       `koanf:"cache_ttl"`
	DefaultProducts  []string            `koanf:"default_products"`
	RegionalProducts map[string][]string `koanf:"regional_products"`
}

type UploadConfig struct {
	MaxMemory  int64 `koanf:"max_memory"`
	MaxEbookMB int64 `koanf:"max_ebook_mb"`
}

type BootstrapConfig struct {
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
	AdminName     string `koanf:"admin_name"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		k := koanf.New(".")

		if err := loadDefaults(k); err != nil {
			loadErr = fmt.Errorf("load defaults: %w", err)
			return
		}

		if configPath != "" {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				loadErr = fmt.Errorf("load config file: %w", err)
				return
			}
		}

		if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
			loadErr = fmt.Errorf("load env vars: %w", err)
			return
		}

		cfg = &Config{}
		if err := k.Unmarshal("", cfg); err != nil {
			loadErr = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if err := validate(cfg); err != nil {
			loadErr = fmt.Errorf("validate config: %w", err)
			return
		}
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "studentshelf",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.public_url":  "http://localhost:8080",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "60s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire": "15m",
		"jwt.issuer":              "studentshelf",
		"jwt.audience":            "studentshelf-api",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",

		"rate_limit.requests":           100,
		"rate_limit.burst":              20,
		"rate_limit.sensitive_requests": 20,
		"rate_limit.sensitive_burst":    5,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "studentshelf",

		"verification.validity_period":  "8760h",
		"verification.extension_period": "8760h",

		"scheduler.enabled":        true,
		"scheduler.schedule":       "@daily",
		"scheduler.timezone":       "UTC",
		"scheduler.record_timeout": "30s",
		"scheduler.lease_ttl":      "30m",

		"kafka.topic":         "studentshelf.notifications",
		"kafka.tls":           false,
		"kafka.write_timeout": "10s",

		"midtrans.production": false,

		"cloudinary.document_folder": "studentshelf/student-documents",
		"cloudinary.ebook_folder":    "studentshelf/ebooks",

		"geo.endpoint":         "http://ip-api.com/json",
		"geo.timeout":          "3s",
		"geo.cache_ttl":        "24h",
		"geo.default_products": []string{"ebooks"},

		"upload.max_memory": 8 << 20,
		"upload.max_ebook_mb": 50,

		"bootstrap.admin_name": "Administrator",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"PUBLIC_URL":                  "app.public_url",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"CREDENTIAL_SECRET":           "credential.secret",
	"VERIFICATION_VALIDITY":       "verification.validity_period",
	"VERIFICATION_EXTENSION":      "verification.extension_period",
	"SCHEDULER_ENABLED":           "scheduler.enabled",
	"SCHEDULER_SCHEDULE":          "scheduler.schedule",
	"SCHEDULER_TIMEZONE":          "scheduler.timezone",
	"KAFKA_BROKERS":               "kafka.brokers",
	"KAFKA_TOPIC":                 "kafka.topic",
	"KAFKA_USERNAME":              "kafka.username",
	"KAFKA_PASSWORD":              "kafka.password",
	"KAFKA_TLS":                   "kafka.tls",
	"MIDTRANS_SERVER_KEY":         "midtrans.server_key",
	"MIDTRANS_PRODUCTION":         "midtrans.production",
	"CLOUDINARY_URL":              "cloudinary.url",
	"GEO_ENDPOINT":                "geo.endpoint",
	"ADMIN_EMAIL":                 "bootstrap.admin_email",
	"ADMIN_PASSWORD":              "bootstrap.admin_password",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if len(c.Credential.Secret) < minCredentialSecretLen {
		return fmt.Errorf(
			"CREDENTIAL_SECRET must be at least %d bytes",
			minCredentialSecretLen,
		)
	}

	if c.Verification.ValidityPeriod <= 0 {
		return fmt.Errorf("verification.validity_period must be positive")
	}

	if c.Verification.ExtensionPeriod <= 0 {
		return fmt.Errorf("verification.extension_period must be positive")
	}

	if c.Scheduler.Enabled && c.Scheduler.Schedule == "" {
		return fmt.Errorf("scheduler.schedule is required when the scheduler is enabled")
	}

	if c.Scheduler.RecordTimeout <= 0 {
		return fmt.Errorf("scheduler.record_timeout must be positive")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.Midtrans.ServerKey == "" {
			return fmt.Errorf("MIDTRANS_SERVER_KEY is required in production")
		}
	}

	if c.Upload.MaxEbookMB <= 0 {
		return fmt.Errorf("upload.max_ebook_mb must be positive")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
