package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ledgerpay/user-service/config"
	"github.com/ledgerpay/user-service/internal/application"
	identityinfra "github.com/ledgerpay/user-service/internal/infrastructure/identity"
	pginfra "github.com/ledgerpay/user-service/internal/infrastructure/postgres"
	"github.com/ledgerpay/user-service/internal/infrastructure/rabbitmq"
	"github.com/ledgerpay/user-service/internal/infrastructure/rediscache"
	"github.com/ledgerpay/user-service/internal/interface/middleware"
	"github.com/ledgerpay/user-service/internal/interface/rpc"
	"github.com/ledgerpay/user-service/internal/router"
	"github.com/ledgerpay/user-service/pkg/helpers"
	"github.com/ledgerpay/user-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	// Postgres
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	// Redis
	rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer func() { _ = rdb.Close() }()

	// GCS
	gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		log.Fatalf("failed to init GCS client: %v", err)
	}
	defer func() { _ = gcsClient.Close() }()

	// Elasticsearch
	esClient, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("failed to init elasticsearch client: %v", err)
	}

	// RabbitMQ: one connection shared by the email publisher and the RPC
	// consumers (each consumer opens its own channel).
	rabbitPub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitPub.Close()

	// Explicit construction: repositories, cache, services, handlers.
	jwtManager := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	repo := pginfra.NewUserRepository(pool)
	cache := rediscache.NewUserCache(rdb, cfg.UserCacheTTL, logger)
	lookup := application.NewLookupService(repo, cache, logger)
	balance := application.NewBalanceService(repo, cache, lookup, logger)
	users := application.NewUserService(repo, cache, lookup, gcsClient, cfg.GCSBucket, logger, esClient, cfg.ESUsersIndex)
	idp := identityinfra.NewLocalProvider(pool, rdb, jwtManager, rabbitPub, logger)

	// Queue RPC consumers
	rpcServer := rabbitmq.NewRPCServer(rabbitPub.Connection(), logger)
	rpcServer.Bind(rabbitmq.Binding{
		Queue:   rpc.ValidateUsersQueue,
		Handler: rpc.NewValidateUsersHandler(lookup, logger).Handle,
	})
	rpcServer.Bind(rabbitmq.Binding{
		Queue:   rpc.CheckBalanceQueue,
		Handler: rpc.NewCheckBalanceHandler(balance, logger).Handle,
	})
	rpcServer.Bind(rabbitmq.Binding{
		Queue:         rpc.NewTransactionsQueue,
		Handler:       rpc.NewNewTransactionsHandler(balance, logger).Handle,
		FireAndForget: true,
	})
	if err := rpcServer.Start(ctx); err != nil {
		log.Fatalf("failed to start rpc consumers: %v", err)
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, router.Deps{
		Repo:     repo,
		Users:    users,
		Identity: idp,
		JWT:      jwtManager,
		RDB:      rdb,
		Logger:   logger,
	})
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
