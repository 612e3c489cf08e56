package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Realtime sources.
const (
	RealtimeSourceLocal    = "local"
	RealtimeSourcePostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Realtime RealtimeConfig
	Sync     SyncConfig
	Import   ImportConfig
	Chat     ChatConfig
	Grid     GridConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RealtimeConfig selects where change notifications originate.
type RealtimeConfig struct {
	Source            string
	Channel           string
	MinReconnect      time.Duration
	MaxReconnect      time.Duration
	KeepAliveInterval time.Duration
}

// SyncConfig drives the scheduled timetable to occupancy sync.
type SyncConfig struct {
	Enabled bool
	At      string
	Workers int
	Retries int
}

// ImportConfig bounds timetable uploads.
type ImportConfig struct {
	PreviewTTL       time.Duration
	MaxFileSizeBytes int64
}

// ChatConfig tunes the class representative lobby.
type ChatConfig struct {
	RatePerMinute int
	Burst         int
	HistoryLimit  int
}

// GridConfig governs caching of the live room grid.
type GridConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Location resolves the configured timezone, falling back to the process local zone.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	source := strings.ToLower(v.GetString("REALTIME_SOURCE"))
	if source != RealtimeSourcePostgres {
		source = RealtimeSourceLocal
	}
	cfg.Realtime = RealtimeConfig{
		Source:            source,
		Channel:           v.GetString("REALTIME_CHANNEL"),
		MinReconnect:      parseDuration(v.GetString("REALTIME_MIN_RECONNECT"), 10*time.Second),
		MaxReconnect:      parseDuration(v.GetString("REALTIME_MAX_RECONNECT"), time.Minute),
		KeepAliveInterval: parseDuration(v.GetString("REALTIME_KEEPALIVE"), 25*time.Second),
	}

	cfg.Sync = SyncConfig{
		Enabled: v.GetBool("ENABLE_DAILY_SYNC"),
		At:      v.GetString("SYNC_AT"),
		Workers: v.GetInt("SYNC_WORKERS"),
		Retries: v.GetInt("SYNC_RETRIES"),
	}

	maxImportSize := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxImportSize <= 0 {
		maxImportSize = 2 * 1024 * 1024
	}
	cfg.Import = ImportConfig{
		PreviewTTL:       parseDuration(v.GetString("IMPORT_PREVIEW_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxImportSize,
	}

	cfg.Chat = ChatConfig{
		RatePerMinute: v.GetInt("CHAT_RATE_PER_MINUTE"),
		Burst:         v.GetInt("CHAT_BURST"),
		HistoryLimit:  v.GetInt("CHAT_HISTORY_LIMIT"),
	}

	cfg.Grid = GridConfig{
		CacheEnabled: v.GetBool("ENABLE_CACHE"),
		CacheTTL:     parseDuration(v.GetString("GRID_CACHE_TTL"), 30*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classtrack")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "classtrack")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REALTIME_SOURCE", RealtimeSourceLocal)
	v.SetDefault("REALTIME_CHANNEL", "classtrack_changes")
	v.SetDefault("REALTIME_MIN_RECONNECT", "10s")
	v.SetDefault("REALTIME_MAX_RECONNECT", "1m")
	v.SetDefault("REALTIME_KEEPALIVE", "25s")

	v.SetDefault("ENABLE_DAILY_SYNC", false)
	v.SetDefault("SYNC_AT", "06:30")
	v.SetDefault("SYNC_WORKERS", 2)
	v.SetDefault("SYNC_RETRIES", 3)

	v.SetDefault("IMPORT_PREVIEW_TTL", "30m")
	v.SetDefault("IMPORT_MAX_FILE_SIZE", 2*1024*1024)

	v.SetDefault("CHAT_RATE_PER_MINUTE", 20)
	v.SetDefault("CHAT_BURST", 5)
	v.SetDefault("CHAT_HISTORY_LIMIT", 100)

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("GRID_CACHE_TTL", "30s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
