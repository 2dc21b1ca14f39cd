package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces initial-state keys.
const DefaultRedisPrefix = "office_switcher:initial-state"

// RedisSlots stores initial-state slots in Redis under "<prefix>:<app>:<key>".
type RedisSlots struct {
	client redis.Cmdable
	prefix string
}

// NewRedisSlots wraps client. An empty prefix uses DefaultRedisPrefix.
func NewRedisSlots(client redis.Cmdable, prefix string) *RedisSlots {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisSlots{client: client, prefix: prefix}
}

// Load implements StateSlots. A missing key is reported as unset, not as an error.
func (r *RedisSlots) Load(ctx context.Context, app, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(app, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load state %s/%s: %w", app, key, err)
	}
	return v, true, nil
}

// Provide implements SlotWriter. Slots do not expire.
func (r *RedisSlots) Provide(ctx context.Context, app, key, value string) error {
	if err := r.client.Set(ctx, r.key(app, key), value, 0).Err(); err != nil {
		return fmt.Errorf("provide state %s/%s: %w", app, key, err)
	}
	return nil
}

func (r *RedisSlots) key(app, key string) string {
	return r.prefix + ":" + app + ":" + key
}
