// Package config loads process configuration from environment variables and
// bound CLI flags through viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. ESTEKHDAM_DATABASE_URL.
const EnvPrefix = "ESTEKHDAM"

// Server captures HTTP server level configuration.
type Server struct {
	Addr         string
	Environment  string
	LogLevel     string
	PublicURL    string
	CookieSecure bool
	// TrustProxy honours X-Forwarded-For and X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy bool
}

// RedisConfig holds session store connection settings. An empty URL selects the
// in-memory session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL settings. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SessionConfig struct {
	SigningKey string
	TTL        time.Duration
}

// SMSConfig selects the gateway. An empty URL logs messages instead of sending.
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	Sender     string
	Timeout    time.Duration
}

type CandidateConfig struct {
	DefaultPassword string
	LoginURL        string
}

type StorageConfig struct {
	UploadDir string
}

// TracingConfig enables OTLP span export. An empty Endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// BootstrapConfig seeds the first recruiter when both fields are set.
type BootstrapConfig struct {
	Username string
	Password string
}

type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	SMS       SMSConfig
	Candidate CandidateConfig
	Storage   StorageConfig
	Tracing   TracingConfig
	Bootstrap BootstrapConfig
}

func (c Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

const devSigningKey = "dev-secret-key-change-in-production"

// SetDefaults registers defaults on v. Exported so commands can bind flags
// against the same keys.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("public_url", "http://localhost:8080")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("trust_proxy", false)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("session.signing_key", devSigningKey)
	v.SetDefault("session.ttl", 12*time.Hour)

	v.SetDefault("sms.gateway_url", "")
	v.SetDefault("sms.api_key", "")
	v.SetDefault("sms.sender", "")
	v.SetDefault("sms.timeout", 5*time.Second)

	v.SetDefault("candidate.default_password", "Cand#2025")
	v.SetDefault("candidate.login_url", "")

	v.SetDefault("storage.upload_dir", "uploads")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("bootstrap.username", "")
	v.SetDefault("bootstrap.password", "")
}

// NewViper returns a viper instance reading ESTEKHDAM_* variables with defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load materializes a Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:         v.GetString("addr"),
			Environment:  v.GetString("env"),
			LogLevel:     v.GetString("log_level"),
			PublicURL:    strings.TrimRight(v.GetString("public_url"), "/"),
			CookieSecure: v.GetBool("cookie_secure"),
			TrustProxy:   v.GetBool("trust_proxy"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Session: SessionConfig{
			SigningKey: v.GetString("session.signing_key"),
			TTL:        v.GetDuration("session.ttl"),
		},
		SMS: SMSConfig{
			GatewayURL: v.GetString("sms.gateway_url"),
			APIKey:     v.GetString("sms.api_key"),
			Sender:     v.GetString("sms.sender"),
			Timeout:    v.GetDuration("sms.timeout"),
		},
		Candidate: CandidateConfig{
			DefaultPassword: v.GetString("candidate.default_password"),
			LoginURL:        v.GetString("candidate.login_url"),
		},
		Storage: StorageConfig{UploadDir: v.GetString("storage.upload_dir")},
		Tracing: TracingConfig{
			Endpoint:    v.GetString("tracing.endpoint"),
			Insecure:    v.GetBool("tracing.insecure"),
			SampleRatio: v.GetFloat64("tracing.sample_ratio"),
		},
		Bootstrap: BootstrapConfig{Username: v.GetString("bootstrap.username"), Password: v.GetString("bootstrap.password")},
	}
	if cfg.Candidate.LoginURL == "" {
		cfg.Candidate.LoginURL = cfg.Server.PublicURL + "/login"
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Candidate.DefaultPassword == "" {
		return errors.New("candidate.default_password must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if !c.IsDevelopment() && c.Session.SigningKey == devSigningKey {
		return errors.New("session.signing_key must be set outside development")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.New("tracing.sample_ratio must be between 0 and 1")
	}
	if len(c.Session.SigningKey) < 16 {
		return errors.New("session.signing_key must be at least 16 bytes")
	}
	return nil
}
