package cfg

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ErrorModeGeneric  = "generic"
	ErrorModeDetailed = "detailed"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type DatabaseConfig struct {
	Driver     string
	Postgres   PostgresConfig
	SQLitePath string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a Redis host was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type ObservabilityConfig struct {
	ServiceName  string
	OTLPEndpoint string
	Environment  string
}

type Config struct {
	AppEnv              string
	AppPort             string
	Google              GoogleConfig
	SecretKey           string
	FrontendRedirectURI string
	CallbackErrorMode   string
	HTTPClientTimeout   time.Duration
	SnowflakeNodeID     int64
	Database            DatabaseConfig
	Redis               RedisConfig
	Observability       ObservabilityConfig
}

// Load reads configuration from the environment, after loading an optional
// .env file. Every missing or malformed key is reported in one joined error.
func Load() (*Config, error) {
	var errs []error

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.New("failed load cfg: " + err.Error())
	}

	appEnv := envOr("APP_ENV", "development")

	google := GoogleConfig{
		ClientID:     mustEnv("GOOGLE_CLIENT_ID", &errs),
		ClientSecret: mustEnv("GOOGLE_CLIENT_SECRET", &errs),
		RedirectURI:  mustEnv("GOOGLE_REDIRECT_URI", &errs),
		AuthURL:      envOr("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
		TokenURL:     envOr("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		UserInfoURL:  envOr("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v3/userinfo"),
	}
	secretKey := mustEnv("SECRET_KEY", &errs)
	frontendRedirectURI := mustEnv("FRONTEND_REDIRECT_URI", &errs)

	errorMode := envOr("CALLBACK_ERROR_MODE", ErrorModeGeneric)
	if errorMode != ErrorModeGeneric && errorMode != ErrorModeDetailed {
		errs = append(errs, errors.New("invalid env: CALLBACK_ERROR_MODE must be generic or detailed"))
	}

	timeoutSeconds := intEnv("HTTP_CLIENT_TIMEOUT_SECONDS", 10, &errs)
	nodeID := intEnv("SNOWFLAKE_NODE_ID", 1, &errs)

	database := DatabaseConfig{Driver: envOr("DB_DRIVER", DriverPostgres)}
	switch database.Driver {
	case DriverPostgres:
		database.Postgres = PostgresConfig{
			Host:     mustEnv("POSTGRES_HOST", &errs),
			Port:     envOr("POSTGRES_PORT", "5432"),
			User:     mustEnv("POSTGRES_USER", &errs),
			Password: mustEnv("POSTGRES_PASSWORD", &errs),
			DBName:   mustEnv("POSTGRES_DB", &errs),
			SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
		}
	case DriverSQLite:
		database.SQLitePath = mustEnv("SQLITE_PATH", &errs)
	default:
		errs = append(errs, errors.New("invalid env: DB_DRIVER must be postgres or sqlite"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Config{
		AppEnv:              appEnv,
		AppPort:             envOr("APP_PORT", "8080"),
		Google:              google,
		SecretKey:           secretKey,
		FrontendRedirectURI: frontendRedirectURI,
		CallbackErrorMode:   errorMode,
		HTTPClientTimeout:   time.Duration(timeoutSeconds) * time.Second,
		SnowflakeNodeID:     int64(nodeID),
		Database:            database,
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     envOr("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Observability: ObservabilityConfig{
			ServiceName:  envOr("SERVICE_NAME", "authgate"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Environment:  appEnv,
		},
	}, nil
}

func mustEnv(key string, errs *[]error) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		*errs = append(*errs, errors.New("missing env: "+key))
	}
	return value
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int, errs *[]error) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, errors.New("conversion failed env: "+key))
		return fallback
	}
	return n
}
