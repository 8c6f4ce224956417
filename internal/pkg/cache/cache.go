package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/config"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	once   sync.Once
)

// Options derives redis options from config. REDIS_URL wins over host/port.
func Options(cfg config.Cache, db int) (*redis.Options, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		opts.DB = db
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       db,
	}, nil
}

// SetupCache initializes the shared redis client on DB 0. A failed ping is
// only logged: every caller degrades when redis is away.
func SetupCache(cfg config.Cache) {
	once.Do(func() {
		opts, err := Options(cfg, 0)
		if err != nil {
			log.Errorf("Invalid redis configuration: %v", err)
			opts = &redis.Options{Addr: cfg.Addr()}
		}
		client = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warnf("Could not connect to redis at %s: %v", opts.Addr, err)
			return
		}
		log.Infof("Connected to redis: %s", opts.Addr)
	})
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		panic("cache not initialized. Call SetupCache first.")
	}
	return client
}

// Ping checks the shared client.
func Ping(ctx context.Context) error {
	return GetClient().Ping(ctx).Err()
}
