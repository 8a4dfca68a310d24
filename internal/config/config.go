package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	pkgconfig "github.com/Skotchmaster/venues/pkg/config"
	"github.com/Skotchmaster/venues/pkg/tokens"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Lockout   LockoutConfig   `mapstructure:"lockout"`
	Hash      HashConfig      `mapstructure:"hash"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	ES        ESConfig        `mapstructure:"es"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimit       string        `mapstructure:"body_limit"`
}

type DBConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type LockoutConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Duration  time.Duration `mapstructure:"duration"`
}

type HashConfig struct {
	Cost    int `mapstructure:"cost"`
	Workers int `mapstructure:"workers"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

func (k KafkaConfig) BrokerList() []string { return pkgconfig.CSV(k.Brokers) }

type ESConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Index    string `mapstructure:"index"`
}

type RateLimitConfig struct {
	Auth string `mapstructure:"auth"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// env names that do not follow the section_key convention
var envAliases = map[string][]string{
	"db.url":           {"DATABASE_URL", "DB_URL"},
	"auth.jwt_secret":  {"JWT_SECRET", "AUTH_JWT_SECRET"},
	"auth.issuer":      {"JWT_ISSUER", "AUTH_ISSUER"},
	"auth.audience":    {"JWT_AUDIENCE", "AUTH_AUDIENCE"},
	"auth.access_ttl":  {"ACCESS_TTL", "AUTH_ACCESS_TTL"},
	"auth.refresh_ttl": {"REFRESH_TTL", "AUTH_REFRESH_TTL"},
	"http.addr":        {"HTTP_ADDR"},
	"app.env":          {"APP_ENV"},
	"log.level":        {"LOG_LEVEL"},
	"hash.cost":        {"BCRYPT_COST", "HASH_COST"},
	"hash.workers":     {"HASH_WORKERS"},
	"kafka.brokers":    {"KAFKA_BROKERS"},
	"kafka.topic":      {"KAFKA_TOPIC"},
	"es.url":           {"ES_URL"},
	"es.user":          {"ES_USER"},
	"es.password":      {"ES_PASSWORD"},
	"es.index":         {"ES_INDEX"},
	"rate_limit.auth":  {"RATE_LIMIT_AUTH"},
}

// Load reads .env (if present), then an optional YAML file at path, then the
// environment. Environment wins.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault("app.name", "venues-auth")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.body_limit", "1M")

	v.SetDefault("db.url", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "venues-api")
	v.SetDefault("auth.audience", "venues-clients")
	v.SetDefault("auth.access_ttl", tokens.DefaultAccessTTL.String())
	v.SetDefault("auth.refresh_ttl", tokens.DefaultRefreshTTL.String())

	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.duration", "30m")

	v.SetDefault("hash.cost", 10)
	v.SetDefault("hash.workers", runtime.NumCPU())

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "auth_events")

	v.SetDefault("es.url", "")
	v.SetDefault("es.user", "")
	v.SetDefault("es.password", "")
	v.SetDefault("es.index", "companies")

	v.SetDefault("rate_limit.auth", "20-M")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports a missing signing key as tokens.ErrMissingSigningKey so
// startup can treat it as fatal.
func (c *Config) Validate() error {
	if err := pkgconfig.NonEmpty(c.DB.URL, "DATABASE_URL"); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: set JWT_SECRET", tokens.ErrMissingSigningKey)
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Lockout.Threshold <= 0 || c.Lockout.Duration <= 0 {
		return errors.New("lockout threshold and duration must be positive")
	}
	return nil
}

func (c *Config) AuthConfig() tokens.AuthConfig {
	return tokens.AuthConfig{
		SigningKey: []byte(c.Auth.JWTSecret),
		Issuer:     c.Auth.Issuer,
		Audience:   c.Auth.Audience,
		AccessTTL:  c.Auth.AccessTTL,
		RefreshTTL: c.Auth.RefreshTTL,
	}
}
