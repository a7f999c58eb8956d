package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brokerops/charterlink/internal/models"
)

// Cache stores the last successfully reconciled offer bundle per trip.
// Besides saving marketplace round trips, it is the data source for the
// circuit-breaker fallback path.
type Cache interface {
	GetBundle(ctx context.Context, tripID string) (*models.FlightOfferBundle, bool)
	SetBundle(ctx context.Context, tripID string, bundle *models.FlightOfferBundle) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     "localhost",
		Port:     "6379",
		Password: "",
		DB:       0,
		TTL:      15 * time.Minute,
	}
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

func (c *RedisCache) GetBundle(ctx context.Context, tripID string) (*models.FlightOfferBundle, bool) {
	data, err := c.client.Get(ctx, generateKey(tripID)).Bytes()
	if err != nil {
		return nil, false
	}

	var bundle models.FlightOfferBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, false
	}

	return &bundle, true
}

func (c *RedisCache) SetBundle(ctx context.Context, tripID string, bundle *models.FlightOfferBundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, generateKey(tripID), data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetBundle(ctx context.Context, tripID string) (*models.FlightOfferBundle, bool) {
	return nil, false
}

func (c *NoOpCache) SetBundle(ctx context.Context, tripID string, bundle *models.FlightOfferBundle) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

func generateKey(tripID string) string {
	hash := sha256.Sum256([]byte(tripID))
	return "offers:" + hex.EncodeToString(hash[:])
}
