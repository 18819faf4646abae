package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kevinaaaquil/bookswap/config"
	"github.com/kevinaaaquil/bookswap/events"
	"github.com/kevinaaaquil/bookswap/handlers"
	"github.com/kevinaaaquil/bookswap/logger"
	"github.com/kevinaaaquil/bookswap/middleware"
	"github.com/kevinaaaquil/bookswap/service"
	"github.com/kevinaaaquil/bookswap/store"
	"github.com/kevinaaaquil/bookswap/token"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("config: ", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatal("logger: ", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Log.Fatalw("server stopped", "error", err)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	db := store.New(cfg.MongoURI, cfg.DBName, store.Options{
		MaxPoolSize:            cfg.MongoMaxPool,
		ConnectTimeout:         cfg.MongoConnectTimeout,
		ServerSelectionTimeout: cfg.MongoServerSelectionTimeout,
		SocketTimeout:          cfg.MongoSocketTimeout,
		MaxConnIdleTime:        cfg.MongoMaxIdle,
	})
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("mongodb: %w", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Log.Errorw("mongodb disconnect", "error", err)
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongodb indexes: %w", err)
	}

	images, err := service.NewImageService(ctx, service.ImageConfig{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretKey,
		PublicBaseURL:   cfg.S3PublicBaseURL,
		Prefix:          cfg.S3Prefix,
	})
	if err != nil {
		return fmt.Errorf("s3: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Log.Errorw("kafka close", "error", err)
			}
		}()
		publisher = kp
		logger.Log.Infow("publishing events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow)
	} else {
		limiter = middleware.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTExpiry)
	router := handlers.NewRouter(handlers.RouterConfig{
		Accounts:     service.NewAccounts(db, tokens, publisher, cfg.BcryptCost),
		Listings:     service.NewListings(db, images, publisher),
		Limiter:      limiter,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxUploadMB * 1024 * 1024,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Log.Infow("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		logger.Log.Infow("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
