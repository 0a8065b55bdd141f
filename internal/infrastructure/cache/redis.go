package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ inventory.SummaryCache = (*SummaryCache)(nil)

const keyPrefix = "ledger:summary:"

// NewRedis crea y valida la conexión go-redis.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// SummaryCache cache de resúmenes por tipo en Redis.
// Cada alcance (un producto o "all") tiene un contador de versión en ledger:summary:gen:{scope};
// las entradas viven en ledger:summary:{scope}:v{n}:{from}:{to}. Invalidate incrementa el contador
// del producto y el de "all": las entradas anteriores dejan de leerse y expiran por TTL.
type SummaryCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewSummaryCache ttl <= 0 usa 60s.
func NewSummaryCache(rdb redis.Cmdable, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SummaryCache{rdb: rdb, ttl: ttl}
}

type cachedSummary struct {
	Type      string          `json:"type"`
	Quantity  int64           `json:"quantity"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Count     int64           `json:"count"`
}

func scope(productID string) string {
	if productID == "" {
		return "all"
	}
	return productID
}

// GenKey contador de versión de un alcance.
func GenKey(productID string) string {
	return keyPrefix + "gen:" + scope(productID)
}

// Key clave de una entrada para un filtro y una versión. El tipo no forma parte del resumen.
func Key(f repository.MovementFilter, version int64) string {
	return fmt.Sprintf("%s%s:v%d:%s:%s", keyPrefix, scope(f.ProductID), version, stamp(f.From), stamp(f.To))
}

func stamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%d", t.UTC().UnixNano())
}

func (c *SummaryCache) version(ctx context.Context, productID string) (int64, error) {
	v, err := c.rdb.Get(ctx, GenKey(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version: %w", err)
	}
	return v, nil
}

// Get devuelve la versión vigente del alcance y, si existe, la entrada guardada bajo ella.
func (c *SummaryCache) Get(ctx context.Context, f repository.MovementFilter) ([]repository.MovementSummary, int64, bool, error) {
	version, err := c.version(ctx, f.ProductID)
	if err != nil {
		return nil, 0, false, err
	}
	raw, err := c.rdb.Get(ctx, Key(f, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, version, false, nil
		}
		return nil, 0, false, fmt.Errorf("redis get: %w", err)
	}
	var items []cachedSummary
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, false, fmt.Errorf("decodificar resumen: %w", err)
	}
	out := make([]repository.MovementSummary, 0, len(items))
	for _, it := range items {
		out = append(out, repository.MovementSummary{
			Type: entity.MovementType(it.Type), Quantity: it.Quantity, TotalCost: it.TotalCost, Count: it.Count,
		})
	}
	return out, version, true, nil
}

// Set guarda el resumen bajo la versión que devolvió Get.
func (c *SummaryCache) Set(ctx context.Context, f repository.MovementFilter, version int64, summary []repository.MovementSummary) error {
	items := make([]cachedSummary, 0, len(summary))
	for _, s := range summary {
		items = append(items, cachedSummary{Type: string(s.Type), Quantity: s.Quantity, TotalCost: s.TotalCost, Count: s.Count})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("codificar resumen: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(f, version), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate avanza la versión del producto y la global en un solo MULTI.
func (c *SummaryCache) Invalidate(ctx context.Context, productID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if productID != "" {
			pipe.Incr(ctx, GenKey(productID))
		}
		pipe.Incr(ctx, GenKey(""))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis incr version: %w", err)
	}
	return nil
}
