package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only while it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore hands out named leases so that only one replica runs a job at a time.
type LockStore struct {
	client *redis.Client
	owner  string
}

// NewLockStore creates a new LockStore with a per-process owner token.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{
		client: client,
		owner:  uuid.New().String(),
	}
}

// AcquireLease attempts to take the named lease for ttl.
// Returns true if the lease was acquired, false if another owner holds it.
func (s *LockStore) AcquireLease(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lease:%s", name)

	ok, err := s.client.SetNX(ctx, key, s.owner, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseLease releases the named lease if this store still owns it.
func (s *LockStore) ReleaseLease(ctx context.Context, name string) error {
	key := fmt.Sprintf("lease:%s", name)

	return releaseScript.Run(ctx, s.client, []string{key}, s.owner).Err()
}
