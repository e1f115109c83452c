package config

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis dials the Redis instance that backs the unread counter
// cache. The cache is advisory, so an unreachable Redis is not fatal: the
// function returns nil and counter reads degrade to database counts until
// the next restart.
func ConnectRedis() *redis.Client {
	opts, err := redisOptions()
	if err != nil {
		log.Printf("Warning: invalid REDIS_URL: %v", err)
		log.Println("Unread counters will fall back to database counts")
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		log.Println("Unread counters will fall back to database counts")
		client.Close()
		return nil
	}

	log.Printf("Connected to Redis (counter db %d)", opts.DB)
	return client
}

// redisOptions builds client options from REDIS_URL when set, otherwise
// from the individual REDIS_* variables. REDIS_COUNTER_DB selects a
// dedicated logical database so counter keys never collide with other
// tenants of the same instance.
func redisOptions() (*redis.Options, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return redis.ParseURL(url)
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0
	if dbStr := os.Getenv("REDIS_COUNTER_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			db = parsed
		}
	}

	// Counter operations are single-key INCRBY/DECRBY round trips; short
	// timeouts keep a degraded Redis from stalling the create path.
	return &redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MaxRetries:   3,
	}, nil
}
