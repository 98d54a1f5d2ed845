package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

type planCacheKey struct {
	serviceType  reflect.Type
	serviceKey   any
	ifUnresolved IfUnresolved
	requiredType reflect.Type
}

// planCache 缓存某个注册表快照上的计划。
// 同一个键并发首次访问时只规划一次，发布后的计划完整可见。
type planCache struct {
	plans sync.Map // planCacheKey -> *Plan
	ids   sync.Map // planCacheKey -> string，singleflight 的键
	seq   atomic.Uint64
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

func newPlanCache() *planCache {
	return &planCache{}
}

func (c *planCache) flightKey(key planCacheKey) string {
	if id, ok := c.ids.Load(key); ok {
		return id.(string)
	}
	id, _ := c.ids.LoadOrStore(key, fmt.Sprintf("p%d", c.seq.Add(1)))
	return id.(string)
}

// getOrCreate 返回缓存的计划，或调用 create 并发布结果。错误不缓存。
func (c *planCache) getOrCreate(key planCacheKey, create func() (*Plan, error)) (*Plan, error) {
	if v, ok := c.plans.Load(key); ok {
		c.hits.Add(1)
		return v.(*Plan), nil
	}
	v, err, _ := c.group.Do(c.flightKey(key), func() (any, error) {
		if v, ok := c.plans.Load(key); ok {
			return v, nil
		}
		c.misses.Add(1)
		pl, err := create()
		if err != nil {
			return nil, err
		}
		c.plans.Store(key, pl)
		return pl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Plan), nil
}

// CacheStats 是计划缓存的命中统计。
type CacheStats struct {
	Hits   int64
	Misses int64
}

func (c *planCache) stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
