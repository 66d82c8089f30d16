package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	initialFetchTimeout = 15 * time.Second
	redisConnectTimeout = 5 * time.Second
)
