// Package redis provides the Redis connection used by the shared execution
// store, with connection pooling, lifecycle management and health checks.
//
// It wraps go-redis with the service logger and configuration conventions:
//
//	cfg := redis.Config{Enabled: true, Addr: "localhost:6379"}
//	comp := redis.NewComponent(cfg, log)
//	// after Start
//	store := execution.NewRedisStore(comp.Client(), execution.Options{})
package redis
