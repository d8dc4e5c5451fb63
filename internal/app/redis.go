package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/config"
)

// Key families written by the service. Datastore segments are grouped by
// family so the ride cache, sweep lease and idempotency store report apart.
var redisKeyFamilies = []string{"cache:ride", "lease", "idempotency"}

const otherKeyFamily = "other"

// NewRedisClient connects to Redis and checks the connection. Commands are
// traced to New Relic when nrApp is set.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(redisOptions(cfg))

	if nrApp != nil {
		client.AddHook(datastoreHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis %s: %w", cfg.Addr, err)
	}

	return client, nil
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// datastoreHook records a New Relic datastore segment per command when the
// request context carries a transaction.
type datastoreHook struct{}

func (datastoreHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (datastoreHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		txn := newrelic.FromContext(ctx)
		if txn == nil {
			return next(ctx, cmd)
		}
		segment := newrelic.DatastoreSegment{
			StartTime:  txn.StartSegmentNow(),
			Product:    newrelic.DatastoreRedis,
			Operation:  strings.ToUpper(cmd.Name()),
			Collection: keyFamily(cmd),
		}
		err := next(ctx, cmd)
		segment.End()
		return err
	}
}

func (datastoreHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		txn := newrelic.FromContext(ctx)
		if txn == nil || len(cmds) == 0 {
			return next(ctx, cmds)
		}
		segment := newrelic.DatastoreSegment{
			StartTime:  txn.StartSegmentNow(),
			Product:    newrelic.DatastoreRedis,
			Operation:  "PIPELINE",
			Collection: keyFamily(cmds[0]),
		}
		err := next(ctx, cmds)
		segment.End()
		return err
	}
}

// keyFamily returns the family of the first key a command touches.
func keyFamily(cmd redis.Cmder) string {
	args := cmd.Args()
	keyPos := 1
	switch strings.ToLower(cmd.Name()) {
	case "eval", "evalsha":
		// EVAL script numkeys key...
		keyPos = 3
	}
	if len(args) <= keyPos {
		return otherKeyFamily
	}
	key, ok := args[keyPos].(string)
	if !ok {
		return otherKeyFamily
	}
	for _, family := range redisKeyFamilies {
		if strings.HasPrefix(key, family+":") {
			return family
		}
	}
	return otherKeyFamily
}
