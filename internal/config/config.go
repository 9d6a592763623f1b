package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database drivers understood by cmd/server.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds environment-driven configuration.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Storage  StorageConfig
	Mail     MailConfig
	I18n     I18nConfig
	Cache    CacheConfig
	Admin    AdminConfig
}

type AppConfig struct {
	Name      string
	Env       string
	Addr      string
	ServerURL string
}

type DatabaseConfig struct {
	Driver         string
	MongoURI       string
	MongoDatabase  string
	PostgresURL    string
	MaxPoolSize    uint64
	MinPoolSize    uint64
	ConnectTimeout time.Duration
}

type RedisConfig struct {
	URL     string
	Enabled bool
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

type HTTPConfig struct {
	CORSAllowOrigins  []string
	BodyLimit         int
	AuthRateLimit     int
	AuthRateWindow    time.Duration
	SuggestRateLimit  int
	SuggestRateWindow time.Duration
}

type StorageConfig struct {
	Driver        string // local or s3
	LocalDir      string
	PublicBaseURL string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
}

type MailConfig struct {
	Driver   string // smtp or log
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type I18nConfig struct {
	DefaultLocale string
	Locales       []string
}

type CacheConfig struct {
	TTL time.Duration
}

// AdminConfig describes the account ensured at startup so a fresh install can sign in to the
// back-office.
type AdminConfig struct {
	Email    string
	Password string
}

// plain environment variable names accepted next to the STORE_ prefixed ones.
var envAliases = map[string]string{
	"app.addr":              "PORT",
	"app.server_url":        "SERVER_URL",
	"database.mongo_uri":    "MONGODB_URI",
	"database.postgres_url": "DATABASE_URL",
	"redis.url":             "REDIS_URL",
	"jwt.secret":            "JWT_SECRET",
	"mail.host":             "SMTP_HOST",
	"mail.port":             "SMTP_PORT",
	"mail.username":         "SMTP_USERNAME",
	"mail.password":         "SMTP_PASSWORD",
	"mail.from":             "SMTP_FROM",
	"storage.s3_bucket":     "S3_BUCKET",
	"admin.email":           "ADMIN_EMAIL",
	"admin.password":        "ADMIN_PASSWORD",
}

// Load reads configuration from .env, an optional config.yaml and environment variables.
// Environment wins over the file, the file wins over built-in defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("STORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		// BindEnv keeps the prefixed name working and adds the alias.
		if err := v.BindEnv(key, "STORE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := fromViper(v)
	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:      v.GetString("app.name"),
			Env:       v.GetString("app.env"),
			Addr:      v.GetString("app.addr"),
			ServerURL: v.GetString("app.server_url"),
		},
		Database: DatabaseConfig{
			Driver:         v.GetString("database.driver"),
			MongoURI:       v.GetString("database.mongo_uri"),
			MongoDatabase:  v.GetString("database.mongo_database"),
			PostgresURL:    v.GetString("database.postgres_url"),
			MaxPoolSize:    v.GetUint64("database.max_pool_size"),
			MinPoolSize:    v.GetUint64("database.min_pool_size"),
			ConnectTimeout: v.GetDuration("database.connect_timeout"),
		},
		Redis: RedisConfig{
			URL:     v.GetString("redis.url"),
			Enabled: v.GetBool("redis.enabled"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			TTL:    v.GetDuration("jwt.ttl"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			BodyLimit:         v.GetInt("http.body_limit"),
			AuthRateLimit:     v.GetInt("http.auth_rate_limit"),
			AuthRateWindow:    v.GetDuration("http.auth_rate_window"),
			SuggestRateLimit:  v.GetInt("http.suggest_rate_limit"),
			SuggestRateWindow: v.GetDuration("http.suggest_rate_window"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storage.driver"),
			LocalDir:      v.GetString("storage.local_dir"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			S3Bucket:      v.GetString("storage.s3_bucket"),
			S3Region:      v.GetString("storage.s3_region"),
			S3Endpoint:    v.GetString("storage.s3_endpoint"),
			S3AccessKey:   v.GetString("storage.s3_access_key"),
			S3SecretKey:   v.GetString("storage.s3_secret_key"),
		},
		Mail: MailConfig{
			Driver:   v.GetString("mail.driver"),
			Host:     v.GetString("mail.host"),
			Port:     v.GetInt("mail.port"),
			Username: v.GetString("mail.username"),
			Password: v.GetString("mail.password"),
			From:     v.GetString("mail.from"),
		},
		I18n: I18nConfig{
			DefaultLocale: v.GetString("i18n.default_locale"),
			Locales:       v.GetStringSlice("i18n.locales"),
		},
		Cache: CacheConfig{
			TTL: v.GetDuration("cache.ttl"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("admin.email"),
			Password: v.GetString("admin.password"),
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Addr == "" {
		cfg.App.Addr = ":8080"
	} else if !strings.Contains(cfg.App.Addr, ":") {
		// PORT=8080 style
		cfg.App.Addr = ":" + cfg.App.Addr
	}
	if cfg.App.ServerURL == "" {
		cfg.App.ServerURL = "http://localhost" + cfg.App.Addr
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverMongo
	}
	if cfg.Database.MongoURI == "" {
		cfg.Database.MongoURI = "mongodb://localhost:27017"
	}
	if cfg.Database.MongoDatabase == "" {
		cfg.Database.MongoDatabase = "storefront"
	}
	if cfg.Database.MaxPoolSize == 0 {
		cfg.Database.MaxPoolSize = 50
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 10 * time.Second
	}
	if cfg.Redis.URL != "" {
		cfg.Redis.Enabled = true
	}
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 72 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = cfg.App.Name
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if len(cfg.HTTP.CORSAllowOrigins) == 0 && cfg.App.Env != "production" {
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
	}
	if cfg.HTTP.BodyLimit == 0 {
		cfg.HTTP.BodyLimit = 10 << 20
	}
	if cfg.HTTP.AuthRateLimit == 0 {
		cfg.HTTP.AuthRateLimit = 10
	}
	if cfg.HTTP.AuthRateWindow == 0 {
		cfg.HTTP.AuthRateWindow = time.Minute
	}
	if cfg.HTTP.SuggestRateLimit == 0 {
		cfg.HTTP.SuggestRateLimit = 60
	}
	if cfg.HTTP.SuggestRateWindow == 0 {
		cfg.HTTP.SuggestRateWindow = time.Minute
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "./uploads"
	}
	if cfg.Storage.PublicBaseURL == "" && cfg.Storage.Driver == "local" {
		cfg.Storage.PublicBaseURL = strings.TrimRight(cfg.App.ServerURL, "/") + "/uploads"
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-east-1"
	}
	if cfg.Mail.Driver == "" {
		cfg.Mail.Driver = "log"
		if cfg.Mail.Host != "" {
			cfg.Mail.Driver = "smtp"
		}
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "no-reply@localhost"
	}
	if cfg.I18n.DefaultLocale == "" {
		cfg.I18n.DefaultLocale = "en"
	}
	if len(cfg.I18n.Locales) == 0 {
		cfg.I18n.Locales = []string{cfg.I18n.DefaultLocale}
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of mongo, postgres, memory; got %q", c.Database.Driver)
	}
	if c.Database.Driver == DriverPostgres && c.Database.PostgresURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.Database.MinPoolSize > c.Database.MaxPoolSize {
		return fmt.Errorf("database.min_pool_size (%d) cannot exceed database.max_pool_size (%d)",
			c.Database.MinPoolSize, c.Database.MaxPoolSize)
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("storage.s3_bucket is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("storage.driver must be local or s3; got %q", c.Storage.Driver)
	}
	if !contains(c.I18n.Locales, c.I18n.DefaultLocale) {
		return fmt.Errorf("i18n.default_locale %q is not listed in i18n.locales", c.I18n.DefaultLocale)
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return errors.New("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == DriverMemory {
			return errors.New("database.driver=memory is not allowed in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return errors.New("http.cors_allow_origins cannot be '*' in production")
			}
		}
	} else if c.JWT.Secret == "" {
		c.JWT.Secret = "dev-secret-change-me"
	}
	return nil
}

// IsProduction reports whether the app runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
