package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authgate/cfg"
	"authgate/internal/auth"
	"authgate/internal/google"
	"authgate/internal/server"
	"authgate/internal/session"
	"authgate/internal/user"
	"authgate/pkg/cache"
	"authgate/pkg/db"
	"authgate/pkg/idgen"
	"authgate/pkg/logger"

	_ "authgate/cmd/server/docs" // swagger docs

	"github.com/gin-gonic/gin"
)

// @title           authgate API
// @version         1.0
// @description     Google OAuth2 sign-in callback that issues session tokens.
// @BasePath        /
// @schemes         http
func main() {
	// ============
	// config
	// ============
	config, errCfg := cfg.Load()
	if errCfg != nil {
		log.Fatal(errCfg)
	}

	// ============
	// logger
	// ============
	zlogger := logger.NewZeroLog(config.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ============
	// Otel
	// ============
	if config.Observability.OTLPEndpoint != "" {
		shutdownOtel, err := initOtel(ctx, &config.Observability, zlogger)
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOtel(ctx); err != nil {
				zlogger.Error("failed to shutdown OpenTelemetry", logger.Err(err))
			}
		}()
	}

	// ============
	// DB + migrations
	// ============
	dsn := config.Database.SQLitePath
	if config.Database.Driver == cfg.DriverPostgres {
		pg := config.Database.Postgres
		dsn = db.PostgresDSN(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)
	}
	dbClient, err := db.NewSQLClient(config.Database.Driver, dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer dbClient.Close()

	if err := db.MigrateUp(dbClient); err != nil {
		log.Fatal(err)
	}

	// ============
	// Identity
	// ============
	ids, err := idgen.NewSnowflakeGenerator(config.SnowflakeNodeID)
	if err != nil {
		log.Fatal(err)
	}
	resolver := user.NewResolver(user.NewSQLStore(dbClient), ids,
		zlogger.With(logger.Field{Key: "component", Value: "user"}))

	issuer, err := session.NewIssuer(config.SecretKey, session.DefaultTTL)
	if err != nil {
		log.Fatal(err)
	}

	// ============
	// External Service
	// ============
	httpClient := &http.Client{
		Timeout: config.HTTPClientTimeout,
	}
	googleClient, err := google.NewClient(ctx, google.Config{
		ClientID:     config.Google.ClientID,
		ClientSecret: config.Google.ClientSecret,
		RedirectURI:  config.Google.RedirectURI,
		AuthURL:      config.Google.AuthURL,
		TokenURL:     config.Google.TokenURL,
		UserInfoURL:  config.Google.UserInfoURL,
	}, httpClient)
	if err != nil {
		log.Fatal(err)
	}

	var opts []auth.Option
	if config.Redis.Enabled() {
		redis := cache.NewRedisCache(net.JoinHostPort(config.Redis.Host, config.Redis.Port), config.Redis.Password)
		defer redis.Close()
		if err := redis.Ping(ctx); err != nil {
			log.Fatalf("redis unavailable: %v", err)
		}
		opts = append(opts, auth.WithCodeLedger(auth.NewCacheLedger(redis)))
		zlogger.Info("authorization code replay guard enabled")
	}

	// ============
	// Internal Service
	// ============
	authLogger := zlogger.With(logger.Field{Key: "component", Value: "auth"})
	authSvc, err := auth.NewService(googleClient, resolver, issuer, config.FrontendRedirectURI, authLogger, opts...)
	if err != nil {
		log.Fatal(err)
	}
	authHandler := auth.NewHandler(authSvc, authLogger, config.CallbackErrorMode)

	// ============
	// HTTP
	// ============
	if config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.NewRouter(server.Options{
		ServiceName: config.Observability.ServiceName,
		Logger:      zlogger,
		Database:    dbClient,
		Handlers:    []server.RouteRegistrar{authHandler},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.AppPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlogger.Info("server listening", logger.Field{Key: "addr", Value: srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	zlogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlogger.Error("graceful shutdown failed", logger.Err(err))
	}
}
