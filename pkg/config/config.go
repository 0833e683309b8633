package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Gradebook GradebookConfig
	Classroom ClassroomConfig
	Activity  ActivityConfig
	Metrics   MetricsConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GradebookConfig governs summary caching and preference storage.
type GradebookConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ClassroomConfig configures the Google Classroom client.
type ClassroomConfig struct {
	Endpoint         string
	DefaultMaxPoints float64
	RequestTimeout   time.Duration
}

// ActivityConfig tunes the asynchronous activity log writer.
type ActivityConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET"), Issuer: v.GetString("JWT_ISSUER")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Gradebook = GradebookConfig{
		CacheEnabled: v.GetBool("ENABLE_GRADEBOOK_CACHE"),
		CacheTTL:     parseDuration(v.GetString("GRADEBOOK_CACHE_TTL"), 5*time.Minute),
	}

	maxPoints := v.GetFloat64("CLASSROOM_DEFAULT_MAX_POINTS")
	if maxPoints <= 0 {
		maxPoints = 100
	}
	cfg.Classroom = ClassroomConfig{
		Endpoint:         v.GetString("CLASSROOM_API_ENDPOINT"),
		DefaultMaxPoints: maxPoints,
		RequestTimeout:   parseDuration(v.GetString("CLASSROOM_REQUEST_TIMEOUT"), 30*time.Second),
	}

	cfg.Activity = ActivityConfig{
		Workers:    v.GetInt("ACTIVITY_WORKERS"),
		BufferSize: v.GetInt("ACTIVITY_BUFFER"),
		MaxRetries: v.GetInt("ACTIVITY_RETRIES"),
		RetryDelay: parseDuration(v.GetString("ACTIVITY_RETRY_DELAY"), time.Second),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_gradebook")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_GRADEBOOK_CACHE", true)
	v.SetDefault("GRADEBOOK_CACHE_TTL", "5m")

	v.SetDefault("CLASSROOM_API_ENDPOINT", "")
	v.SetDefault("CLASSROOM_DEFAULT_MAX_POINTS", 100)
	v.SetDefault("CLASSROOM_REQUEST_TIMEOUT", "30s")

	v.SetDefault("ACTIVITY_WORKERS", 2)
	v.SetDefault("ACTIVITY_BUFFER", 64)
	v.SetDefault("ACTIVITY_RETRIES", 3)
	v.SetDefault("ACTIVITY_RETRY_DELAY", "1s")

	v.SetDefault("ENABLE_METRICS", true)
}

// isMissingFile covers viper returning a raw fs error when SetConfigFile points at an absent .env.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
