package storecart

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/sharecart-backend/internal/sharecart"
	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

const defaultTTL = 48 * time.Hour

type redisLists interface {
	RPush(ctx context.Context, key string, values ...any) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// Params wires the Redis-backed storefront cart.
type Params struct {
	Redis   redisLists
	Catalog sharecart.Catalog
	CartURL string
	TTL     time.Duration
}

// Cart stores one append-only Redis list of lines per session. Identical
// product and variation lines are merged on read.
type Cart struct {
	redis   redisLists
	catalog sharecart.Catalog
	cartURL string
	ttl     time.Duration
}

func New(p Params) (*Cart, error) {
	if p.Redis == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if strings.TrimSpace(p.CartURL) == "" {
		return nil, fmt.Errorf("cart url required")
	}
	if p.TTL <= 0 {
		p.TTL = defaultTTL
	}
	return &Cart{redis: p.Redis, catalog: p.Catalog, cartURL: p.CartURL, ttl: p.TTL}, nil
}

func (c *Cart) URL() string {
	return c.cartURL
}

func (c *Cart) Items(ctx context.Context, sessionID string) ([]types.CartLine, error) {
	if sessionID == "" {
		return nil, nil
	}
	raw, err := c.redis.LRange(ctx, c.redis.CartKey(sessionID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return mergeLines(raw)
}

// Add appends line after checking the product is purchasable in the requested
// quantity, counting what the cart already holds. Refusals return false.
func (c *Cart) Add(ctx context.Context, sessionID string, line types.CartLine) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("session id required")
	}
	if line.ProductID <= 0 || line.Quantity <= 0 {
		return false, nil
	}
	product, err := c.catalog.Product(ctx, line.ProductID)
	if err != nil {
		return false, err
	}
	if product == nil || !product.IsActive {
		return false, nil
	}
	if product.StockQty != nil {
		current, err := c.Items(ctx, sessionID)
		if err != nil {
			return false, err
		}
		held := 0
		for _, existing := range current {
			if existing.ProductID == line.ProductID {
				held += existing.Quantity
			}
		}
		if held+line.Quantity > *product.StockQty {
			return false, nil
		}
	}

	payload, err := json.Marshal(line.Normalized())
	if err != nil {
		return false, fmt.Errorf("encode cart line: %w", err)
	}
	key := c.redis.CartKey(sessionID)
	if _, err := c.redis.RPush(ctx, key, string(payload)); err != nil {
		return false, fmt.Errorf("append cart line: %w", err)
	}
	if _, err := c.redis.Expire(ctx, key, c.ttl); err != nil {
		return false, fmt.Errorf("refresh cart ttl: %w", err)
	}
	return true, nil
}

func (c *Cart) Empty(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := c.redis.Del(ctx, c.redis.CartKey(sessionID)); err != nil {
		return fmt.Errorf("empty cart: %w", err)
	}
	return nil
}

func mergeLines(raw []string) ([]types.CartLine, error) {
	out := make([]types.CartLine, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, entry := range raw {
		var line types.CartLine
		if err := json.Unmarshal([]byte(entry), &line); err != nil {
			return nil, fmt.Errorf("decode cart line: %w", err)
		}
		line = line.Normalized()
		id := lineIdentity(line)
		if pos, ok := index[id]; ok {
			out[pos].Quantity += line.Quantity
			continue
		}
		index[id] = len(out)
		out = append(out, line)
	}
	return out, nil
}

func lineIdentity(line types.CartLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", line.ProductID)
	if line.HasVariation() {
		fmt.Fprintf(&b, ":%d", line.VariationID)
	}
	names := make([]string, 0, len(line.VariationAttributes))
	for name := range line.VariationAttributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "|%s=%s", name, line.VariationAttributes[name])
	}
	return b.String()
}
