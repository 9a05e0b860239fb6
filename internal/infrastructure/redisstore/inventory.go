package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	dominv "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
)

// DefaultKey is the hash holding one field per item.
const DefaultKey = "pizzashop:inventory"

const pingTimeout = 5 * time.Second

// reserveScript decrements a field only while it is positive. Missing fields count as zero.
var reserveScript = redis.NewScript(`
local qty = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if qty > 0 then
	redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
	return 1
end
return 0
`)

// Inventory shares stock between processes through a Redis hash.
type Inventory struct {
	client redis.UniversalClient
	key    string
}

var _ dominv.Store = (*Inventory)(nil)

// Open connects to redisURL and seeds any item not already present.
func Open(ctx context.Context, redisURL string, seed map[string]int) (*Inventory, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}

	inv := New(client, DefaultKey)
	if err := inv.Seed(ctx, seed); err != nil {
		_ = client.Close()
		return nil, err
	}
	return inv, nil
}

func New(client redis.UniversalClient, key string) *Inventory {
	if key == "" {
		key = DefaultKey
	}
	return &Inventory{client: client, key: key}
}

// Seed sets quantities for items that have no value yet; existing stock is left alone
// so a restarted process does not refill shared inventory.
func (i *Inventory) Seed(ctx context.Context, seed map[string]int) error {
	if len(seed) == 0 {
		return nil
	}
	_, err := i.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for name, qty := range seed {
			if qty < 0 {
				return fmt.Errorf("redisstore: seed %s: %w", name, dominv.ErrInvalidQuantity)
			}
			p.HSetNX(ctx, i.key, name, qty)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: seed: %w", err)
	}
	return nil
}

func (i *Inventory) Reserve(ctx context.Context, name string) (bool, error) {
	n, err := reserveScript.Run(ctx, i.client, []string{i.key}, name).Int()
	if err != nil {
		return false, fmt.Errorf("redisstore: reserve %s: %w", name, err)
	}
	return n == 1, nil
}

func (i *Inventory) Snapshot(ctx context.Context) (map[string]int, error) {
	raw, err := i.client.HGetAll(ctx, i.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: snapshot: %w", err)
	}
	out := make(map[string]int, len(raw))
	for name, v := range raw {
		qty, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("redisstore: snapshot %s: %w", name, err)
		}
		out[name] = qty
	}
	return out, nil
}

func (i *Inventory) Close() error {
	return i.client.Close()
}
