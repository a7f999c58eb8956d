package main

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/brokerops/charterlink/internal/avinode"
	"github.com/brokerops/charterlink/internal/breaker"
	"github.com/brokerops/charterlink/internal/broker"
	"github.com/brokerops/charterlink/internal/cache"
	"github.com/brokerops/charterlink/internal/config"
	"github.com/brokerops/charterlink/internal/handler"
	"github.com/brokerops/charterlink/internal/offers"
	"github.com/brokerops/charterlink/internal/ratelimit"
	"github.com/brokerops/charterlink/pkg/logger"
)

func main() {
	cfg := config.Load()
	appLog := logger.New(cfg.LogLevel)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	if cfg.Avinode.BearerToken == "" || cfg.Avinode.APIToken == "" {
		log.Fatal("AVINODE_BEARER_TOKEN and AVINODE_API_TOKEN are required")
	}

	rateLimiter := ratelimit.NewServiceLimiterWithDefaults()
	rateLimiter.SetServiceLimit(avinode.ServiceName, 10, 20)

	client := avinode.NewClient(cfg.Avinode, rateLimiter, appLog)
	aggregator := offers.NewAggregator(client, appLog)

	registry := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
	}, appLog)

	var offerCache cache.Cache
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host: cfg.RedisHost,
			Port: cfg.RedisPort,
			TTL:  cfg.RedisTTL,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		offerCache = redisCache
		appLog.Info("offer cache enabled", "host", cfg.RedisHost+":"+cfg.RedisPort, "ttl", cfg.RedisTTL.String())
	} else {
		offerCache = cache.NewNoOpCache()
		appLog.Info("offer cache disabled")
	}

	service := broker.NewService(client, aggregator, registry, offerCache, broker.CacheFallback(offerCache), appLog)
	brokerHandler := handler.NewBrokerHandler(service)

	api := e.Group("/api/v1")
	brokerHandler.Register(api)
	e.GET("/health", brokerHandler.Health)
	e.GET("/health/circuits", brokerHandler.CircuitMetrics)

	appLog.Info("starting charterlink server", "port", cfg.Port)

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
