package redis

import (
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// SetClient installs the shared client (called from internal/initial).
func SetClient(c *redis.Client) {
	client = c
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

func IsConnected() bool {
	return client != nil
}

// GetClient exposes the raw client; callers that cache hold it directly.
func GetClient() *redis.Client {
	return client
}
