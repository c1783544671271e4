package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/poolsettlement/internal/protocolfee/application"
	"github.com/wyfcoding/poolsettlement/internal/protocolfee/domain"
	"github.com/wyfcoding/poolsettlement/internal/protocolfee/infrastructure/adapter"
	"github.com/wyfcoding/poolsettlement/internal/protocolfee/infrastructure/controller"
	"github.com/wyfcoding/poolsettlement/internal/protocolfee/infrastructure/messaging"
	persistence_mysql "github.com/wyfcoding/poolsettlement/internal/protocolfee/infrastructure/persistence/mysql"
	http_server "github.com/wyfcoding/poolsettlement/internal/protocolfee/interfaces/http"
	"github.com/wyfcoding/poolsettlement/pkg/config"
	"github.com/wyfcoding/poolsettlement/pkg/db"
	"github.com/wyfcoding/poolsettlement/pkg/logger"
	"github.com/wyfcoding/poolsettlement/pkg/metrics"
	"github.com/wyfcoding/poolsettlement/pkg/middleware"
	"github.com/wyfcoding/poolsettlement/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to the config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Logger
	if err := logger.Init(cfg.Logger); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	// 3. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&persistence_mysql.AccruedFeeModel{},
		&persistence_mysql.PoolFeeModel{},
		&persistence_mysql.ControllerModel{},
		&persistence_mysql.CollectionModel{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// 4. Kafka
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		log.Fatalf("failed to create kafka producer: %v", err)
	}
	defer producer.Close()

	// 5. Metrics
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	if cfg.Metrics.Enabled {
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 6. Layers
	repo := persistence_mysql.NewFeeRepository(database)
	fetcher := controller.NewClient(time.Duration(cfg.ProtocolFee.FetchBudget) * time.Millisecond)
	vault := adapter.NewVaultClient(cfg.ProtocolFee.VaultEndpoint)
	publisher := messaging.NewKafkaPublisher(producer)

	app := application.NewProtocolFeeService(
		domain.Address(cfg.ProtocolFee.OwnerAddress),
		repo, fetcher, vault, publisher,
		domain.SHA256Deriver{}, m, logger.Get(),
	)
	if err := app.Load(context.Background()); err != nil {
		log.Fatalf("failed to load protocol fee state: %v", err)
	}

	// 7. HTTP Server
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog(), middleware.Metrics(m))
	http_server.NewProtocolFeeHandler(app).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(context.Background(), "server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// 8. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(context.Background(), "shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "server shutdown failed", "error", err)
	}
}
