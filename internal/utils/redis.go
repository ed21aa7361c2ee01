// Package utils opens the optional Redis and Postgres connections from environment settings.
package utils

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"rep-lookup/internal/logger"
)

// OpenRedis opens a client for addr, or returns nil when addr is empty.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// OpenRedisFromEnv returns nil unless REDIS_HOST is set; Redis is an optional cache tier here.
// An unparsable REDIS_DB falls back to 0.
func OpenRedisFromEnv() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	addr := host + ":" + port
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return OpenRedis(addr, os.Getenv("REDIS_PASS"), db)
}
